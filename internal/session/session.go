// Package session keeps the signed-in user and bearer token, persisted to
// the same durable storage as the cart mirror.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
	"github.com/joao-fontenele/storefront-sync/internal/storage"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// Auth is the auth endpoint set. *api.AuthService satisfies it.
type Auth interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (domain.User, error)
	Refresh(ctx context.Context) (string, error)
}

type Session struct {
	auth   Auth
	kv     storage.KV
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *domain.User
}

func New(auth Auth, kv storage.KV, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{auth: auth, kv: kv, logger: logger, now: time.Now}
}

// Restore loads a previously persisted session. An expired token is
// discarded together with the stored user.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.kv.Get(ctx, storage.KeyAuthToken)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read auth token: %w", err)
	}

	if s.expired(string(token)) {
		s.logger.Info("discarding expired session")
		return s.forget(ctx)
	}

	var user *domain.User
	data, err := s.kv.Get(ctx, storage.KeyUser)
	switch {
	case err == nil:
		var u domain.User
		if err := json.Unmarshal(data, &u); err != nil {
			s.logger.Warn("discarding corrupt stored user", "error", err)
		} else {
			user = &u
		}
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("read user: %w", err)
	}

	s.mu.Lock()
	s.token = string(token)
	s.user = user
	s.mu.Unlock()
	return nil
}

func (s *Session) Login(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	result, err := s.auth.Login(ctx, creds)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.store(ctx, result); err != nil {
		return domain.User{}, err
	}
	s.logger.Info("signed in", "user_id", result.User.ID)
	return result.User, nil
}

func (s *Session) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	if reg.ConfirmPassword != "" && reg.ConfirmPassword != reg.Password {
		return domain.User{}, ErrPasswordMismatch
	}
	result, err := s.auth.Register(ctx, reg)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.store(ctx, result); err != nil {
		return domain.User{}, err
	}
	s.logger.Info("registered", "user_id", result.User.ID)
	return result.User, nil
}

// Logout always clears the local session, even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	callErr := s.auth.Logout(ctx)
	if callErr != nil {
		s.logger.Warn("logout request failed", "error", callErr)
	}
	if err := s.forget(ctx); err != nil {
		return err
	}
	return callErr
}

// Me refreshes the stored user profile from the server.
func (s *Session) Me(ctx context.Context) (domain.User, error) {
	user, err := s.auth.Me(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.saveUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Session) Refresh(ctx context.Context) error {
	token, err := s.auth.Refresh(ctx)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, storage.KeyAuthToken, []byte(token)); err != nil {
		return fmt.Errorf("store auth token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Token implements api.TokenSource. Expired tokens are reported as absent.
func (s *Session) Token(context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" || s.expired(token) {
		return "", nil
	}
	return token, nil
}

func (s *Session) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *Session) Authenticated() bool {
	token, _ := s.Token(context.Background())
	return token != ""
}

func (s *Session) store(ctx context.Context, result domain.AuthResult) error {
	if err := s.kv.Set(ctx, storage.KeyAuthToken, []byte(result.Token)); err != nil {
		return fmt.Errorf("store auth token: %w", err)
	}
	s.mu.Lock()
	s.token = result.Token
	s.mu.Unlock()
	return s.saveUser(ctx, result.User)
}

func (s *Session) saveUser(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyUser, data); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return nil
}

func (s *Session) forget(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, storage.KeyAuthToken); err != nil {
		return fmt.Errorf("delete auth token: %w", err)
	}
	if err := s.kv.Delete(ctx, storage.KeyUser); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// expired reads exp without verifying the signature; verification is the
// server's job. Tokens that are not JWTs are treated as opaque and valid.
func (s *Session) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}
