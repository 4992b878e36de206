// Package auth manages the authctl session: login, transparent refresh and logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wisdom-oss/authorization-service/internal/client/storage"
	"github.com/wisdom-oss/authorization-service/internal/validation"
	pkgapi "github.com/wisdom-oss/authorization-service/pkg/api"
)

// refreshSkew обновляет access token немного раньше срока, чтобы он не истек в пути
const refreshSkew = 30 * time.Second

// ErrNotLoggedIn is returned when no session is stored
var ErrNotLoggedIn = errors.New("not logged in, run 'authctl login' first")

//go:generate moq -out tokenapi_mock.go . TokenAPI

// TokenAPI is the part of the HTTP client used for sessions
type TokenAPI interface {
	BaseURL() string
	PasswordGrant(ctx context.Context, username, password, scope string) (*pkgapi.TokenResponse, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)
	Revoke(ctx context.Context, bearer, token string) error
}

// Service предоставляет функции авторизации CLI
type Service struct {
	api   TokenAPI
	store storage.SessionStorage
	now   func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(api TokenAPI, store storage.SessionStorage) *Service {
	return &Service{api: api, store: store, now: time.Now}
}

// Login exchanges credentials for a token pair and stores it
func (s *Service) Login(ctx context.Context, username, password, scope string) (*storage.Session, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	resp, err := s.api.PasswordGrant(ctx, username, password, scope)
	if err != nil {
		return nil, err
	}

	session := s.sessionFrom(username, resp)
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Session returns the stored session without contacting the server
func (s *Service) Session(ctx context.Context) (*storage.Session, error) {
	session, err := s.store.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// AccessToken returns a usable access token, refreshing the pair when it is about to expire
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return "", err
	}
	if !session.Expired(s.now().Add(refreshSkew)) {
		return session.AccessToken, nil
	}

	session, err = s.refresh(ctx, session)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

// Refresh rotates the stored pair unconditionally
func (s *Service) Refresh(ctx context.Context) (*storage.Session, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, session)
}

func (s *Service) refresh(ctx context.Context, session *storage.Session) (*storage.Session, error) {
	resp, err := s.api.RefreshGrant(ctx, session.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("session expired, log in again: %w", err)
	}

	next := s.sessionFrom(session.Username, resp)
	if err := s.store.SaveSession(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return next, nil
}

// Logout deletes the local session and revokes the refresh token on the server.
// The local session is removed even when the server cannot be reached; the
// returned error then only reports the failed revocation.
func (s *Service) Logout(ctx context.Context) error {
	session, err := s.Session(ctx)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSession(ctx); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	// отзыв refresh token удаляет и выданные вместе с ним access token
	if err := s.api.Revoke(ctx, session.AccessToken, session.RefreshToken); err != nil {
		return &RevokeError{Err: err}
	}
	return nil
}

// RevokeError reports that the server side revocation of a logout failed
type RevokeError struct {
	Err error
}

func (e *RevokeError) Error() string {
	return "local session deleted, but the server did not revoke the tokens: " + e.Err.Error()
}

func (e *RevokeError) Unwrap() error {
	return e.Err
}

func (s *Service) sessionFrom(username string, resp *pkgapi.TokenResponse) *storage.Session {
	return &storage.Session{
		ServerURL:    s.api.BaseURL(),
		Username:     username,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Scope:        resp.Scope,
		ExpiresAt:    s.now().Unix() + resp.ExpiresIn,
	}
}
