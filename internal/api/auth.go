package api

import (
	"context"
	"net/http"

	"edusocial/internal/models"
)

func (c *Client) Login(ctx context.Context, req LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.post(ctx, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login2FA completes a login using the temporary token from the first step.
func (c *Client) Login2FA(ctx context.Context, tempToken string, req TwoFactorRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login-2fa",
		body:   req,
		header: http.Header{"Authorization": {"Bearer " + tempToken}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.post(ctx, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/auth/me"}, &u, "user"); err != nil {
		return nil, err
	}
	return &u, nil
}

// Check succeeds when the current token is still accepted.
func (c *Client) Check(ctx context.Context) error {
	return c.get(ctx, "/auth/check", nil, nil)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.post(ctx, "/auth/refresh-token", RefreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GoogleLogin(ctx context.Context, credential string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.post(ctx, "/auth/google", map[string]string{"credential": credential}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FacebookLogin(ctx context.Context, accessToken string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.post(ctx, "/auth/facebook", map[string]string{"accessToken": accessToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OAuthConnections(ctx context.Context) ([]models.OAuthConnection, error) {
	var out []models.OAuthConnection
	if err := c.fetch(ctx, request{method: http.MethodGet, path: "/auth/oauth/connections"}, &out, "connections"); err != nil {
		return nil, err
	}
	return out, nil
}

// ConnectOAuth links a provider to the current account. Google sends
// {"token"}, Facebook {"accessToken"}.
func (c *Client) ConnectOAuth(ctx context.Context, provider, token string) error {
	body := map[string]string{"accessToken": token}
	if provider == "google" {
		body = map[string]string{"token": token}
	}
	return c.post(ctx, "/auth/oauth/connect/"+pathID(provider), body, nil)
}

func (c *Client) DisconnectOAuth(ctx context.Context, provider string) error {
	return c.delete(ctx, "/auth/oauth/disconnect/"+pathID(provider), nil, nil)
}
