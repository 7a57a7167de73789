package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/chatly-app/chatly-tui/internal/client/model"
)

func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var data struct {
		User *model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "user", nil, nil, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, avatar, username, bio string) (*model.User, error) {
	body := map[string]string{"avatar": avatar, "username": username, "bio": bio}
	var data struct {
		User *model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPatch, "user", nil, body, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

func (c *Client) SearchUsers(ctx context.Context, q string) ([]model.User, error) {
	query := url.Values{"q": []string{q}}
	var data struct {
		Users []model.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "user/search", query, nil, &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}

// SuggestedUsers bootstraps discovery when the chat list is empty.
func (c *Client) SuggestedUsers(ctx context.Context) ([]model.User, error) {
	var data struct {
		Users []model.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "user/suggestions", nil, nil, &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}
