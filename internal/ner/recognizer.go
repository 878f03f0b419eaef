package ner

import (
	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
	"github.com/promptveil/veil/internal/masking"
	"go.uber.org/zap"
)

// FromConfig builds the person-name recognizer selected by configuration.
// "none" yields nil, which disables the NAME pass. A backend that cannot be
// initialized also yields nil: name recognition is an optional capability and
// its absence must never be an error.
func FromConfig(cfg config.NERConfig, log *logger.Logger) masking.NameRecognizer {
	switch cfg.Type {
	case "pattern":
		return NewPatternRecognizer(log)
	case "onnx":
		r := newONNXRecognizer(cfg, log)
		if r == nil {
			log.Warn("ONNX name recognizer unavailable, NAME detection disabled",
				zap.String("model_path", cfg.ModelPath),
			)
			return nil
		}
		return r
	default:
		return nil
	}
}
