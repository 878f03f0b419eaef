package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/logger"
)

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

// TestRecorder tests JSONL audit output
func TestRecorder(t *testing.T) {
	t.Run("WritesOneLinePerRecord", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "detections.jsonl")
		rec, err := NewRecorder(path, nopLogger())
		if err != nil {
			t.Fatalf("Failed to create recorder: %v", err)
		}

		rec.Write(Record{
			SessionID:   "s1",
			Path:        "/api/chat",
			Categories:  map[string]int{"EMAIL": 1, "PHONE": 1},
			TotalMasked: 2,
			DurationMS:  1.5,
		})
		rec.Write(Record{
			SessionID:   "s2",
			Path:        "/api/mask",
			Categories:  map[string]int{"DISEASE": 1},
			TotalMasked: 1,
			DurationMS:  0.4,
		})
		if err := rec.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("Failed to open audit file: %v", err)
		}
		defer f.Close()

		var records []Record
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var r Record
			if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
				t.Fatalf("Malformed audit line: %v", err)
			}
			records = append(records, r)
		}

		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}
		if records[0].SessionID != "s1" || records[0].Categories["EMAIL"] != 1 {
			t.Errorf("Unexpected first record: %+v", records[0])
		}
		if records[0].Timestamp.IsZero() {
			t.Error("Recorder should fill in the timestamp")
		}
		if records[1].TotalMasked != 1 {
			t.Errorf("Unexpected second record: %+v", records[1])
		}
	})

	t.Run("CreatesParentDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "logs", "detections.jsonl")
		rec, err := NewRecorder(path, nopLogger())
		if err != nil {
			t.Fatalf("Failed to create recorder in nested dir: %v", err)
		}
		rec.Close()

		if _, err := os.Stat(path); err != nil {
			t.Errorf("Audit file not created: %v", err)
		}
	})

	t.Run("AppendsAcrossOpens", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "detections.jsonl")

		for i := 0; i < 2; i++ {
			rec, err := NewRecorder(path, nopLogger())
			if err != nil {
				t.Fatalf("Open %d failed: %v", i, err)
			}
			rec.Write(Record{Timestamp: time.Now(), Path: "/api/mask", TotalMasked: 1})
			rec.Close()
		}

		data, _ := os.ReadFile(path)
		lines := 0
		for _, b := range data {
			if b == '\n' {
				lines++
			}
		}
		if lines != 2 {
			t.Errorf("Expected 2 lines after reopen, got %d", lines)
		}
	})

	t.Run("NilRecorderDiscards", func(t *testing.T) {
		var rec *Recorder
		rec.Write(Record{TotalMasked: 1}) // must not panic
		if err := rec.Close(); err != nil {
			t.Errorf("Nil Close should be a no-op, got %v", err)
		}
	})
}
