// Package audit appends detection records to a JSONL file. Records carry
// category counts and timings only; masked values and original text are
// never written.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/logger"
)

// Record is one audit entry for a single masking operation.
type Record struct {
	Timestamp   time.Time      `json:"timestamp"`
	RequestID   string         `json:"request_id,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	Path        string         `json:"path"`
	Categories  map[string]int `json:"categories"`
	TotalMasked int            `json:"total_masked"`
	DurationMS  float64        `json:"duration_ms"`
}

// Recorder writes audit records to a JSONL file. A nil Recorder is valid
// and discards everything.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	logger *logger.Logger
}

// NewRecorder opens (or creates) the audit file for appending.
func NewRecorder(path string, log *logger.Logger) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	log.Info("Audit recorder started",
		zap.String("component", "audit"),
		zap.String("path", path),
	)

	return &Recorder{
		file:   f,
		enc:    json.NewEncoder(f),
		logger: log,
	}, nil
}

// Write appends one record. Failures are logged, not returned; auditing
// never blocks request handling.
func (r *Recorder) Write(rec Record) {
	if r == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.enc.Encode(rec); err != nil {
		r.logger.Error("Failed to write audit record",
			zap.String("component", "audit"),
			zap.Error(err),
		)
	}
}

// Close flushes and closes the audit file.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
