package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

type ctxKey struct{}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) issueToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify returns the user id carried by a valid token.
func (s *Server) verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	_, ok := s.users[claims.Subject]
	s.mu.Unlock()
	if !ok {
		return "", errors.New("unknown subject")
	}
	return claims.Subject, nil
}

// owner resolves the cart owner: the signed-in user, or the shared guest
// cart for anonymous requests.
func (s *Server) owner(r *http.Request) (string, bool) {
	token := bearer(r)
	if token == "" {
		return guestOwner, true
	}
	id, err := s.verify(token)
	if err != nil {
		s.logger.Info("rejected token", "error", err)
		return "", false
	}
	return id, true
}

func (s *Server) requireUser(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, "Please login to continue.")
			return
		}
		id, err := s.verify(token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.Registration
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := s.now().UTC()
	acct := &account{
		user: domain.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      req.Name,
			Role:      "customer",
			CreatedAt: now,
			UpdatedAt: now,
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		s.writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	s.accounts[email] = acct
	s.users[acct.user.ID] = acct
	s.mu.Unlock()

	s.respondWithToken(w, http.StatusCreated, acct.user)
	s.logger.Info("user registered", "user_id", acct.user.ID)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.Credentials
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		s.writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.respondWithToken(w, http.StatusOK, acct.user)
	s.logger.Info("user logged in", "user_id", acct.user.ID)
}

func (s *Server) respondWithToken(w http.ResponseWriter, status int, user domain.User) {
	token, err := s.issueToken(user.ID)
	if err != nil {
		s.logger.Error("failed to sign token", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, status, domain.AuthResult{User: user, Token: token})
}

// Tokens are stateless, so logout has nothing to revoke.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := s.users[userFrom(r.Context())]
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, acct.user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := s.issueToken(userFrom(r.Context()))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("sign token: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
