package api

import (
	"context"
	"net/http"

	"github.com/chatly-app/chatly-tui/internal/client/model"
)

type chatData struct {
	Chat *model.Chat `json:"chat"`
}

func (c *Client) ListChats(ctx context.Context) ([]model.Chat, error) {
	var data struct {
		Chats []model.Chat `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "chats", nil, nil, &data); err != nil {
		return nil, err
	}
	return data.Chats, nil
}

// AccessChat opens the direct chat with the given user, creating it
// server-side on first access.
func (c *Client) AccessChat(ctx context.Context, userID string) (*model.Chat, error) {
	body := map[string]string{"userId": userID}
	var data chatData
	if err := c.do(ctx, http.MethodPost, "chats", nil, body, &data); err != nil {
		return nil, err
	}
	return data.Chat, nil
}

func (c *Client) CreateGroup(ctx context.Context, name string, userIDs []string, avatar string) (*model.Chat, error) {
	body := map[string]any{"name": name, "users": userIDs, "avatar": avatar}
	var data chatData
	if err := c.do(ctx, http.MethodPost, "chats/group", nil, body, &data); err != nil {
		return nil, err
	}
	return data.Chat, nil
}

func (c *Client) AddToGroup(ctx context.Context, chatID string, userIDs []string) (*model.Chat, error) {
	body := map[string]any{"chatId": chatID, "users": userIDs}
	var data chatData
	if err := c.do(ctx, http.MethodPost, "chats/group/add", nil, body, &data); err != nil {
		return nil, err
	}
	return data.Chat, nil
}

func (c *Client) RemoveFromGroup(ctx context.Context, chatID, userID string) error {
	body := map[string]string{"chatId": chatID, "userId": userID}
	return c.do(ctx, http.MethodDelete, "chats/group/remove", nil, body, nil)
}

func (c *Client) LeaveGroup(ctx context.Context, chatID string) error {
	body := map[string]string{"chatId": chatID}
	return c.do(ctx, http.MethodDelete, "chats/group/leave", nil, body, nil)
}

func (c *Client) UpdateGroup(ctx context.Context, chatID, name, description, avatar string) (*model.Chat, error) {
	body := map[string]string{
		"chatId":          chatID,
		"name":            name,
		"chatDescription": description,
		"avatar":          avatar,
	}
	var data chatData
	if err := c.do(ctx, http.MethodPatch, "chats/group/update", nil, body, &data); err != nil {
		return nil, err
	}
	return data.Chat, nil
}
