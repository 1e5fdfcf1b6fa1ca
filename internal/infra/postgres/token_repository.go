package postgres

import (
	"context"
	"fmt"

	"shippinglabel/internal/tokens"
)

const (
	tokensDDL = `CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		rate_limit INTEGER NOT NULL DEFAULT 60,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		comment TEXT
	);`
	tokensIndexDDL = `CREATE INDEX IF NOT EXISTS idx_tokens_created_at ON tokens (created_at);`
)

// TokenRepository reads API tokens and their rate limits.
type TokenRepository struct {
	DB  *DB
	DSN string
}

// NewTokenRepository reads tokens from the database at dsn.
func NewTokenRepository(db *DB, dsn string) *TokenRepository {
	return &TokenRepository{DB: db, DSN: dsn}
}

// LoadTokens creates the table if needed and returns every token.
func (r *TokenRepository) LoadTokens(ctx context.Context) (map[string]tokens.Entry, error) {
	db, err := r.DB.Get(r.DSN)
	if err != nil {
		return nil, err
	}
	for _, ddl := range []string{tokensDDL, tokensIndexDDL} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("ensure tokens schema: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit, COALESCE(comment, '') FROM tokens`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	out := make(map[string]tokens.Entry)
	for rows.Next() {
		var (
			token string
			entry tokens.Entry
		)
		if err := rows.Scan(&token, &entry.RateLimit, &entry.Comment); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out[token] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
