package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chatly-app/chatly-tui/internal/client/model"
)

// ListMessages fetches the full timeline of a chat, oldest first.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	query := url.Values{"chatId": []string{chatID}}
	var data struct {
		Messages []model.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "message", query, nil, &data); err != nil {
		return nil, err
	}
	return data.Messages, nil
}

// SendMessage is the durable write; the realtime emit that follows it is
// only a fan-out hint.
func (c *Client) SendMessage(ctx context.Context, chatID, content string) (*model.Message, error) {
	body := map[string]string{"chatId": chatID, "content": content}
	var data struct {
		Message *model.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "message", nil, body, &data); err != nil {
		return nil, err
	}
	return data.Message, nil
}
