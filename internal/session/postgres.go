package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
)

// PostgresStore persists session mappings in a single table, one row per
// placeholder. Survives restarts, unlike the memory store.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logger.Logger
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS session_mappings (
	session_id  TEXT NOT NULL,
	placeholder TEXT NOT NULL,
	original    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, placeholder)
)`

// NewPostgresStore connects to Postgres and ensures the schema.
func NewPostgresStore(cfg config.SessionConfig, log *logger.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{db: db, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, sessionSchema); err != nil {
		return nil, fmt.Errorf("failed to ensure session schema: %w", err)
	}

	log.Info("Postgres session store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	return store, nil
}

// Merge upserts the mappings for a session.
func (s *PostgresStore) Merge(ctx context.Context, sessionID string, mappings map[string]string) error {
	if len(mappings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO session_mappings (session_id, placeholder, original)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, placeholder) DO UPDATE SET original = EXCLUDED.original`

	for placeholder, original := range mappings {
		if _, err := tx.ExecContext(ctx, query, sessionID, placeholder, original); err != nil {
			return fmt.Errorf("failed to store mapping: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mappings: %w", err)
	}

	s.logger.Debug("Session mappings stored",
		zap.String("session_id", sessionID),
		zap.Int("entries", len(mappings)),
	)
	return nil
}

// Get returns the session's accumulated mapping.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (map[string]string, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT placeholder, original FROM session_mappings WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session mappings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var placeholder, original string
		if err := rows.Scan(&placeholder, &original); err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		out[placeholder] = original
	}
	return out, rows.Err()
}

// Delete removes all mappings for a session.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_mappings WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if idx := strings.LastIndex(userPart, ":"); idx > strings.Index(userPart, "//")+1 {
				parts[0] = userPart[:idx] + ":***"
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
