package llm

import (
	"context"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
)

// Client generates a response for a masked prompt. The prompt handed in must
// already be de-identified; the response may echo placeholder tokens, which
// the caller resolves with the session's mapping.
type Client interface {
	// Name returns the client identifier (e.g. "openai", "simulate").
	Name() string
	// Generate produces a response for the masked prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// New creates the client selected by configuration. An openai mode without an
// API key falls back to simulation, matching how the service should behave in
// development environments.
func New(cfg config.LLMConfig, log *logger.Logger) Client {
	if cfg.Mode == "openai" && cfg.APIKey != "" {
		return NewOpenAIClient(cfg, log)
	}
	if cfg.Mode == "openai" {
		log.Warn("LLM mode is openai but no API key configured, using simulation")
	}
	return NewSimulatedClient(log)
}
