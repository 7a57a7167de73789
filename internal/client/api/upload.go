package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Uploader pushes avatar images to the external image host using an
// unsigned upload preset. It is independent of the API client: the host
// takes no bearer token.
type Uploader struct {
	uploadURL string
	preset    string
	http      *http.Client
}

func NewUploader(cloudName, preset string) *Uploader {
	return &Uploader{
		uploadURL: fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/upload", cloudName),
		preset:    preset,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

// newUploaderForURL exists for tests.
func newUploaderForURL(uploadURL, preset string) *Uploader {
	return &Uploader{uploadURL: uploadURL, preset: preset, http: &http.Client{Timeout: 60 * time.Second}}
}

// Upload sends the file and returns the hosted image URL.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := w.WriteField("upload_preset", u.preset); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{Status: resp.StatusCode, Message: "image upload failed"}
	}

	var out struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.SecureURL, nil
}
