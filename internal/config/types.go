package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Masking   MaskingConfig   `yaml:"masking" mapstructure:"masking"`
	NER       NERConfig       `yaml:"ner" mapstructure:"ner"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// MaskingConfig contains entity detection and masking configuration
type MaskingConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	Categories    []string `yaml:"categories" mapstructure:"categories"`
	LogDetections bool     `yaml:"log_detections" mapstructure:"log_detections"`
}

// NERConfig configures the optional person-name recognizer
type NERConfig struct {
	Type      string `yaml:"type" mapstructure:"type"` // none, pattern, or onnx
	ModelPath string `yaml:"model_path" mapstructure:"model_path"`
	MaxLength int    `yaml:"max_length" mapstructure:"max_length"`
}

// LLMConfig contains response-generation configuration
type LLMConfig struct {
	Mode    string        `yaml:"mode" mapstructure:"mode"` // simulate or openai
	Model   string        `yaml:"model" mapstructure:"model"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SessionConfig contains mapping-store configuration
type SessionConfig struct {
	Store       string        `yaml:"store" mapstructure:"store"` // memory, redis, or postgres
	TTL         time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisURL    string        `yaml:"redis_url" mapstructure:"redis_url"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	KeyPrefix   string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// RateLimitConfig contains per-client rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
	Burst   int     `yaml:"burst" mapstructure:"burst"`
}

// AuditConfig contains detection audit log configuration
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains dashboard WebSocket configuration
type WebSocketConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Events   struct {
		BroadcastDetections  bool `yaml:"broadcast_detections" mapstructure:"broadcast_detections"`
		BroadcastRequests    bool `yaml:"broadcast_requests" mapstructure:"broadcast_requests"`
		BroadcastSystem      bool `yaml:"broadcast_system" mapstructure:"broadcast_system"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Masking: MaskingConfig{
			Enabled:       true,
			Categories:    []string{"all"},
			LogDetections: true,
		},
		NER: NERConfig{
			Type:      "none",
			MaxLength: 256,
		},
		LLM: LLMConfig{
			Mode:    "simulate",
			Model:   "gpt-3.5-turbo",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Store:     "memory",
			TTL:       time.Hour,
			KeyPrefix: "veil",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     10,
			Burst:   20,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    "logs/detections.jsonl",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
			Path:    "/ws",
		},
	}

	cfg.WebSocket.Events.BroadcastDetections = true
	cfg.WebSocket.Events.BroadcastRequests = true
	cfg.WebSocket.Events.BroadcastSystem = true
	cfg.WebSocket.Events.BroadcastConnections = true

	return cfg
}
