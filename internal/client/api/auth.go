package api

import (
	"context"
	"net/http"

	"github.com/chatly-app/chatly-tui/internal/client/model"
)

type authData struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// GuestLogin starts an anonymous session. The returned user still needs a
// profile before entering chats.
func (c *Client) GuestLogin(ctx context.Context) (string, *model.User, error) {
	var data authData
	if err := c.do(ctx, http.MethodPost, "auth/guest-login", nil, nil, &data); err != nil {
		return "", nil, err
	}
	return data.Token, data.User, nil
}

func (c *Client) SendOTP(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "auth/send-otp", nil, body, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, *model.User, error) {
	body := map[string]string{"email": email, "otp": otp}
	var data authData
	if err := c.do(ctx, http.MethodPost, "auth/verify-otp", nil, body, &data); err != nil {
		return "", nil, err
	}
	return data.Token, data.User, nil
}

func (c *Client) SetProfile(ctx context.Context, avatar, username string) (*model.User, error) {
	body := map[string]string{"avatar": avatar, "username": username}
	var data struct {
		User *model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "auth/set-profile", nil, body, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}
