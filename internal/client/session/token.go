package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const tokenFile = "token"

func GetConfigDir(profileName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "chatly", profileName)
}

// The key is derived from the machine id so the token file is useless if
// copied to another host. Falls back to the hostname on systems without one.
func getEncryptionKey() []byte {
	paths := []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}
	var id string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err == nil {
			id = strings.TrimSpace(string(data))
			break
		}
	}

	if id == "" {
		hostname, _ := os.Hostname()
		id = hostname
	}

	return pbkdf2.Key([]byte(id), []byte("chatly-token"), 4096, 32, sha256.New)
}

func encrypt(data []byte) (string, error) {
	key := getEncryptionKey()
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, data, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func decrypt(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	key := getEncryptionKey()
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// LoadToken reads the durable token for the profile. An empty string means
// unauthenticated. A file written before encryption was added is re-saved
// encrypted.
func LoadToken(profileName string) string {
	configDir := GetConfigDir(profileName)
	if configDir == "" {
		return ""
	}

	data, err := os.ReadFile(filepath.Join(configDir, tokenFile))
	if err != nil {
		return ""
	}

	decrypted, err := decrypt(string(data))
	if err != nil {
		token := strings.TrimSpace(string(data))
		if token != "" {
			SaveToken(profileName, token)
		}
		return token
	}
	return string(decrypted)
}

func SaveToken(profileName, token string) error {
	configDir := GetConfigDir(profileName)
	if configDir == "" {
		return fmt.Errorf("could not get config directory")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	encrypted, err := encrypt([]byte(token))
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, tokenFile), []byte(encrypted), 0600)
}

func ClearToken(profileName string) {
	configDir := GetConfigDir(profileName)
	if configDir != "" {
		os.Remove(filepath.Join(configDir, tokenFile))
	}
}
