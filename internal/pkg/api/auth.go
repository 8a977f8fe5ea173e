package api

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
)

// Me is the auth bootstrap call: it resolves the current user from the
// refresh cookie or bearer token.
func (c *Client) Me(ctx context.Context) (user.AuthResponse, error) {
	var resp user.AuthResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return user.AuthResponse{}, err
	}
	return resp, nil
}

// Login forwards credentials and keeps the issued token for later calls
func (c *Client) Login(ctx context.Context, req user.LoginRequest) (user.AuthResponse, error) {
	var resp user.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return user.AuthResponse{}, err
	}
	if resp.Success && resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return resp, nil
}

// Logout ends the backend session. The local token is dropped even when the
// call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.SetToken("")
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}
