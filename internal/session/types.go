package session

import (
	"context"
	"fmt"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
)

// Store accumulates placeholder mappings per conversation session. The masking
// core owns no cross-call state; everything that must survive between a mask
// call and a later unmask call lives here, keyed by a caller-chosen session
// identifier.
type Store interface {
	// Merge adds the mappings from one mask call to the session's
	// accumulated table. Existing keys are never overwritten with different
	// values because placeholder counters are monotonic per call and keys
	// from different calls differ by index.
	Merge(ctx context.Context, sessionID string, mappings map[string]string) error
	// Get returns the session's accumulated mapping. A session that was
	// never written returns an empty map, not an error.
	Get(ctx context.Context, sessionID string) (map[string]string, error)
	// Delete removes a session and its mappings.
	Delete(ctx context.Context, sessionID string) error
	// Close releases any backing resources.
	Close() error
}

// New creates the store selected by configuration.
func New(cfg config.SessionConfig, log *logger.Logger) (Store, error) {
	switch cfg.Store {
	case "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "redis":
		return NewRedisStore(cfg, log)
	case "postgres":
		return NewPostgresStore(cfg, log)
	default:
		return nil, fmt.Errorf("unknown session store: %s", cfg.Store)
	}
}
