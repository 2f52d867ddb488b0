package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

type AuthService struct {
	client *Client
}

type refreshResult struct {
	Token string `json:"token"`
}

func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	return do[domain.AuthResult](ctx, s.client, "auth.login", http.MethodPost, "/auth/login", creds)
}

func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	return do[domain.AuthResult](ctx, s.client, "auth.register", http.MethodPost, "/auth/register", reg)
}

func (s *AuthService) Logout(ctx context.Context) error {
	_, err := do[json.RawMessage](ctx, s.client, "auth.logout", http.MethodPost, "/auth/logout", nil)
	return err
}

func (s *AuthService) Me(ctx context.Context) (domain.User, error) {
	return do[domain.User](ctx, s.client, "auth.me", http.MethodGet, "/auth/me", nil)
}

func (s *AuthService) Refresh(ctx context.Context) (string, error) {
	result, err := do[refreshResult](ctx, s.client, "auth.refresh", http.MethodPost, "/auth/refresh", nil)
	return result.Token, err
}
