package storage

//go:generate moq -out session_mock.go . SessionStorage

import (
	"context"
	"time"
)

// SessionStorage keeps the authctl session between invocations.
type SessionStorage interface {
	// SaveSession replaces the stored session
	SaveSession(ctx context.Context, session *Session) error

	// GetSession returns ErrSessionNotFound when nobody is logged in
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession returns ErrSessionNotFound when nobody is logged in
	DeleteSession(ctx context.Context) error
}

// Session представляет сохраненную пару токенов
type Session struct {
	ServerURL    string `json:"server_url"`
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	ExpiresAt    int64  `json:"expires_at"` // unix время истечения access token
}

// Expired reports whether the access token is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}
