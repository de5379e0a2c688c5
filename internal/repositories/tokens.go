package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/onair/internal/shared"
)

// TokenRepository persists OAuth tokens keyed by provider name.
type TokenRepository struct {
	db       *sql.DB
	provider string
}

// NewTokenRepository creates a new [TokenRepository] for a single provider.
func NewTokenRepository(db *sql.DB, provider string) *TokenRepository {
	return &TokenRepository{db: db, provider: provider}
}

// Load returns the stored token, or [shared.ErrNotAuthenticated] when none is stored.
func (r *TokenRepository) Load() (*oauth2.Token, error) {
	var (
		access    string
		refresh   string
		tokenType string
		expiry    sql.NullTime
	)

	err := r.db.QueryRow(`
		SELECT access_token, refresh_token, token_type, expiry
		FROM oauth_tokens
		WHERE provider = ?
	`, r.provider).Scan(&access, &refresh, &tokenType, &expiry)
	if err == sql.ErrNoRows {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	token := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: tokenType}
	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	return token, nil
}

// Save stores token, replacing any previous one.
func (r *TokenRepository) Save(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrInvalidInput)
	}

	var expiry any
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO oauth_tokens (provider, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`, r.provider, token.AccessToken, token.RefreshToken, token.TokenType, expiry, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing a missing token is not an error.
func (r *TokenRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM oauth_tokens WHERE provider = ?`, r.provider); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
