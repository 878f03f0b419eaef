package ner

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
)

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

// TestPatternRecognizer tests the heuristic name recognizer
func TestPatternRecognizer(t *testing.T) {
	ctx := context.Background()
	r := NewPatternRecognizer(nopLogger())

	t.Run("IntroducerPhrase", func(t *testing.T) {
		text := "Hello, my name is John Smith and I need help."
		spans, err := r.Recognize(ctx, text)
		if err != nil {
			t.Fatalf("Recognize failed: %v", err)
		}
		if len(spans) != 1 {
			t.Fatalf("Expected 1 span, got %d: %v", len(spans), spans)
		}
		if spans[0].Text != "John Smith" {
			t.Errorf("Expected 'John Smith', got %q", spans[0].Text)
		}
		if text[spans[0].Start:spans[0].End] != spans[0].Text {
			t.Errorf("Span offsets do not cover the reported text")
		}
	})

	t.Run("Honorific", func(t *testing.T) {
		spans, err := r.Recognize(ctx, "Please ask Dr. Chen about the dosage.")
		if err != nil {
			t.Fatalf("Recognize failed: %v", err)
		}
		if len(spans) != 1 || spans[0].Text != "Chen" {
			t.Errorf("Expected [Chen], got %v", spans)
		}
	})

	t.Run("NoNames", func(t *testing.T) {
		spans, err := r.Recognize(ctx, "the appointment is at noon tomorrow")
		if err != nil {
			t.Fatalf("Recognize failed: %v", err)
		}
		if len(spans) != 0 {
			t.Errorf("Expected no spans, got %v", spans)
		}
	})

	t.Run("BareCapitalizedWordIgnored", func(t *testing.T) {
		// Capitalized words without an introducer must not be claimed
		spans, err := r.Recognize(ctx, "Boston is lovely in October.")
		if err != nil {
			t.Fatalf("Recognize failed: %v", err)
		}
		if len(spans) != 0 {
			t.Errorf("Expected no spans for bare capitalized words, got %v", spans)
		}
	})
}

// TestFromConfig tests recognizer selection
func TestFromConfig(t *testing.T) {
	t.Run("None", func(t *testing.T) {
		if r := FromConfig(config.NERConfig{Type: "none"}, nopLogger()); r != nil {
			t.Error("Expected nil recognizer for type none")
		}
	})

	t.Run("Pattern", func(t *testing.T) {
		if r := FromConfig(config.NERConfig{Type: "pattern"}, nopLogger()); r == nil {
			t.Error("Expected pattern recognizer")
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if r := FromConfig(config.NERConfig{Type: "something-else"}, nopLogger()); r != nil {
			t.Error("Expected nil recognizer for unknown type")
		}
	})
}
