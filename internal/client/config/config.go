package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the client reads from the environment.
// A .env file in the working directory is honored if present.
type Config struct {
	APIURL       string // base URL of the Chatly REST API
	SocketURL    string // websocket endpoint for the realtime channel
	Profile      string // config profile name, scopes the token file
	CloudName    string // image host account
	UploadPreset string // image host unsigned upload preset
	Debug        bool
}

func Load() Config {
	godotenv.Load()

	cfg := Config{
		APIURL:       getenv("CHATLY_API_URL", "http://localhost:5000/api/v1"),
		SocketURL:    getenv("CHATLY_SOCKET_URL", "ws://localhost:5000/socket"),
		Profile:      getenv("CHATLY_PROFILE", "default"),
		CloudName:    os.Getenv("CHATLY_CLOUD_NAME"),
		UploadPreset: os.Getenv("CHATLY_UPLOAD_PRESET"),
	}
	if v := os.Getenv("CHATLY_DEBUG"); v == "1" || v == "true" {
		cfg.Debug = true
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
