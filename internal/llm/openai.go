package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
)

const systemPrompt = "You are a helpful and empathetic AI assistant. Provide supportive, " +
	"informative responses while maintaining user privacy. Bracketed tokens such as " +
	"[EMAIL_0] are placeholders; repeat them verbatim when you refer to them."

// OpenAIClient calls the chat completions API. On API failure it falls back
// to a simulated response so the conversation flow keeps working.
type OpenAIClient struct {
	client   *openai.Client
	model    string
	cfg      config.LLMConfig
	fallback *SimulatedClient
	logger   *logger.Logger
}

// NewOpenAIClient creates an OpenAI-backed client. BaseURL may point at any
// OpenAI-compatible endpoint (e.g. a local server or a mock in tests).
func NewOpenAIClient(cfg config.LLMConfig, log *logger.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL + "/v1"
	}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		cfg:      cfg,
		fallback: NewSimulatedClient(log),
		logger:   log,
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string { return "openai" }

// Generate sends the masked prompt to the chat completions endpoint.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		c.logger.Warn("OpenAI call failed, falling back to simulation", zap.Error(err))
		// The request context may already be expired; the fallback must
		// still produce a response.
		return c.fallback.Generate(context.WithoutCancel(ctx), prompt)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api call: no choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
