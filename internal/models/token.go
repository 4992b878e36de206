package models

// AccessToken представляет выданный access token
// Все метки времени хранятся как unix seconds
type AccessToken struct {
	Scopes         ScopeSet `json:"scopes"`           // snapshot на момент выдачи
	RefreshTokenID *int64   `json:"refresh_token_id"` // refresh token, выданный вместе с этим токеном
	Token          string   `json:"token"`
	ID             int64    `json:"id"`
	AccountID      int64    `json:"account_id"`
	CreatedAt      int64    `json:"created_at"`
	ExpiresAt      int64    `json:"expires_at"`
	IsActive       bool     `json:"active"`
}

// ExpiredAt reports whether the token is expired at now. The boundary is inclusive.
func (t *AccessToken) ExpiredAt(now int64) bool {
	return now >= t.ExpiresAt
}

// RefreshToken представляет одноразовый refresh token
type RefreshToken struct {
	Scopes    ScopeSet `json:"scopes"` // snapshot на момент выдачи
	Token     string   `json:"token"`
	ID        int64    `json:"id"`
	AccountID int64    `json:"account_id"`
	CreatedAt int64    `json:"created_at"`
	ExpiresAt int64    `json:"expires_at"`
}

// ExpiredAt reports whether the token is expired at now. The boundary is inclusive.
func (t *RefreshToken) ExpiredAt(now int64) bool {
	return now >= t.ExpiresAt
}

// TokenPair is an access token and the refresh token issued alongside it.
type TokenPair struct {
	Access  *AccessToken
	Refresh *RefreshToken
}
