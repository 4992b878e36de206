package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

const accessTokenColumns = `id, token, account_id, refresh_token_id, created_at, expires_at, is_active`

const refreshTokenColumns = `id, token, account_id, created_at, expires_at`

func scanAccessToken(row interface{ Scan(dest ...any) error }) (*models.AccessToken, error) {
	token := &models.AccessToken{}
	var refreshID sql.NullInt64

	err := row.Scan(
		&token.ID,
		&token.Token,
		&token.AccountID,
		&refreshID,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if refreshID.Valid {
		token.RefreshTokenID = &refreshID.Int64
	}

	return token, nil
}

func scanRefreshToken(row interface{ Scan(dest ...any) error }) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	err := row.Scan(
		&token.ID,
		&token.Token,
		&token.AccountID,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// CreateAccessToken stores a new access token with its scope snapshot
func (s *Storage) CreateAccessToken(ctx context.Context, token *models.AccessToken) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO access_tokens (token, account_id, refresh_token_id, created_at, expires_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var refreshID sql.NullInt64
	if token.RefreshTokenID != nil {
		refreshID = sql.NullInt64{Int64: *token.RefreshTokenID, Valid: true}
	}

	err := s.queryRow(ctx, query,
		token.Token,
		token.AccountID,
		refreshID,
		token.CreatedAt,
		token.ExpiresAt,
		token.IsActive,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("failed to save access token: %w", s.mapError(err))
	}

	snapshot := `
		INSERT INTO access_token_scopes (token_id, scope_id)
		SELECT CAST(? AS BIGINT), id FROM scopes WHERE value = ?
		ON CONFLICT DO NOTHING
	`
	if _, err := s.assign(ctx, snapshot, `SELECT COUNT(*) FROM scopes WHERE value = ?`, token.ID, token.Scopes.Values()); err != nil {
		return fmt.Errorf("failed to save access token scopes: %w", err)
	}

	return nil
}

// CreateRefreshToken stores a new refresh token with its scope snapshot
func (s *Storage) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO refresh_tokens (token, account_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`

	err := s.queryRow(ctx, query,
		token.Token,
		token.AccountID,
		token.CreatedAt,
		token.ExpiresAt,
	).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", s.mapError(err))
	}

	snapshot := `
		INSERT INTO refresh_token_scopes (token_id, scope_id)
		SELECT CAST(? AS BIGINT), id FROM scopes WHERE value = ?
		ON CONFLICT DO NOTHING
	`
	if _, err := s.assign(ctx, snapshot, `SELECT COUNT(*) FROM scopes WHERE value = ?`, token.ID, token.Scopes.Values()); err != nil {
		return fmt.Errorf("failed to save refresh token scopes: %w", err)
	}

	return nil
}

// GetAccessToken retrieves access token by token value, nil if unknown
func (s *Storage) GetAccessToken(ctx context.Context, token string) (*models.AccessToken, error) {
	return s.getAccessToken(ctx, `SELECT `+accessTokenColumns+` FROM access_tokens WHERE token = ?`, token)
}

// GetAccessTokenByID retrieves access token by ID, nil if unknown
func (s *Storage) GetAccessTokenByID(ctx context.Context, id int64) (*models.AccessToken, error) {
	return s.getAccessToken(ctx, `SELECT `+accessTokenColumns+` FROM access_tokens WHERE id = ?`, id)
}

func (s *Storage) getAccessToken(ctx context.Context, query string, arg any) (*models.AccessToken, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	token, err := scanAccessToken(s.queryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get access token: %w", s.mapError(err))
	}

	scopes, err := s.ScopesForAccessToken(ctx, token.ID)
	if err != nil {
		return nil, err
	}
	token.Scopes = scopes

	return token, nil
}

// GetRefreshToken retrieves refresh token by token value, nil if unknown
func (s *Storage) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	refreshToken, err := scanRefreshToken(s.queryRow(ctx, `SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token = ?`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", s.mapError(err))
	}

	scopes, err := s.ScopesForRefreshToken(ctx, refreshToken.ID)
	if err != nil {
		return nil, err
	}
	refreshToken.Scopes = scopes

	return refreshToken, nil
}

// ScopesForAccessToken returns the scope snapshot of an access token
func (s *Storage) ScopesForAccessToken(ctx context.Context, tokenID int64) (models.ScopeSet, error) {
	query := `
		SELECT sc.value FROM scopes sc
		JOIN access_token_scopes ts ON ts.scope_id = sc.id
		WHERE ts.token_id = ?
	`
	values, err := s.stringColumn(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token scopes: %w", err)
	}
	return models.NewScopeSet(values...), nil
}

// ScopesForRefreshToken returns the scope snapshot of a refresh token
func (s *Storage) ScopesForRefreshToken(ctx context.Context, tokenID int64) (models.ScopeSet, error) {
	query := `
		SELECT sc.value FROM scopes sc
		JOIN refresh_token_scopes ts ON ts.scope_id = sc.id
		WHERE ts.token_id = ?
	`
	values, err := s.stringColumn(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token scopes: %w", err)
	}
	return models.NewScopeSet(values...), nil
}

// TokensForAccount returns all tokens owned by the account, newest first
func (s *Storage) TokensForAccount(ctx context.Context, accountID int64) ([]*models.AccessToken, []*models.RefreshToken, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	access, err := s.listAccessTokens(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	refresh, err := s.listRefreshTokens(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	return access, refresh, nil
}

func (s *Storage) listAccessTokens(ctx context.Context, accountID int64) ([]*models.AccessToken, error) {
	rows, err := s.query(ctx, `SELECT `+accessTokenColumns+` FROM access_tokens WHERE account_id = ? ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query access tokens: %w", err)
	}

	var tokens []*models.AccessToken
	for rows.Next() {
		token, err := scanAccessToken(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan access token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration error: %w", s.mapError(err))
	}
	_ = rows.Close()

	for _, token := range tokens {
		if token.Scopes, err = s.ScopesForAccessToken(ctx, token.ID); err != nil {
			return nil, err
		}
	}

	return tokens, nil
}

func (s *Storage) listRefreshTokens(ctx context.Context, accountID int64) ([]*models.RefreshToken, error) {
	rows, err := s.query(ctx, `SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE account_id = ? ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh tokens: %w", err)
	}

	var tokens []*models.RefreshToken
	for rows.Next() {
		token, err := scanRefreshToken(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration error: %w", s.mapError(err))
	}
	_ = rows.Close()

	for _, token := range tokens {
		if token.Scopes, err = s.ScopesForRefreshToken(ctx, token.ID); err != nil {
			return nil, err
		}
	}

	return tokens, nil
}

// DeleteAccessToken deletes access token by ID
func (s *Storage) DeleteAccessToken(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `DELETE FROM access_tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}

	return affected(result, storage.ErrTokenNotFound)
}

// DeleteRefreshToken deletes refresh token by ID
func (s *Storage) DeleteRefreshToken(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `DELETE FROM refresh_tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	return affected(result, storage.ErrTokenNotFound)
}

// DeleteAccessTokensByRefresh deletes access tokens paired with the refresh token
func (s *Storage) DeleteAccessTokensByRefresh(ctx context.Context, refreshID int64) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `DELETE FROM access_tokens WHERE refresh_token_id = ?`, refreshID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete paired access tokens: %w", err)
	}

	return count(result)
}

// DeleteAccountTokens deletes every token of the account
func (s *Storage) DeleteAccountTokens(ctx context.Context, accountID int64) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// access tokens первыми, чтобы ON DELETE SET NULL не трогал удаляемые строки
	result, err := s.exec(ctx, `DELETE FROM access_tokens WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete access tokens: %w", err)
	}
	accessCount, err := count(result)
	if err != nil {
		return 0, err
	}

	result, err = s.exec(ctx, `DELETE FROM refresh_tokens WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	refreshCount, err := count(result)
	if err != nil {
		return 0, err
	}

	return accessCount + refreshCount, nil
}

// DeleteExpiredTokens removes all tokens that expired at or before now
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now int64) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.exec(ctx, `DELETE FROM access_tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired access tokens: %w", err)
	}
	accessCount, err := count(result)
	if err != nil {
		return 0, err
	}

	result, err = s.exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	refreshCount, err := count(result)
	if err != nil {
		return 0, err
	}

	return accessCount + refreshCount, nil
}
