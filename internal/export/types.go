package export

import (
	"strings"
	"time"

	"github.com/promptveil/veil/internal/audit"
	"github.com/promptveil/veil/internal/masking"
)

// ExportRecord is one flattened audit entry. Category counts become fixed
// columns so the output has a stable schema for columnar tooling.
type ExportRecord struct {
	Timestamp    string  `parquet:"timestamp" json:"timestamp"`
	RequestID    string  `parquet:"request_id" json:"request_id"`
	SessionID    string  `parquet:"session_id" json:"session_id"`
	Path         string  `parquet:"path" json:"path"`
	MentalHealth int32   `parquet:"mental_health" json:"mental_health"`
	Disease      int32   `parquet:"disease" json:"disease"`
	Email        int32   `parquet:"email" json:"email"`
	Phone        int32   `parquet:"phone" json:"phone"`
	Age          int32   `parquet:"age" json:"age"`
	Location     int32   `parquet:"location" json:"location"`
	Gender       int32   `parquet:"gender" json:"gender"`
	Name         int32   `parquet:"name" json:"name"`
	TotalMasked  int32   `parquet:"total_masked" json:"total_masked"`
	DurationMS   float64 `parquet:"duration_ms" json:"duration_ms"`
}

// FromAuditRecord flattens an audit record into export columns.
func FromAuditRecord(rec audit.Record) ExportRecord {
	out := ExportRecord{
		Timestamp:   rec.Timestamp.UTC().Format(time.RFC3339Nano),
		RequestID:   rec.RequestID,
		SessionID:   rec.SessionID,
		Path:        rec.Path,
		TotalMasked: int32(rec.TotalMasked),
		DurationMS:  rec.DurationMS,
	}

	for tag, n := range rec.Categories {
		switch masking.Category(tag) {
		case masking.CategoryMentalHealth:
			out.MentalHealth = int32(n)
		case masking.CategoryDisease:
			out.Disease = int32(n)
		case masking.CategoryEmail:
			out.Email = int32(n)
		case masking.CategoryPhone:
			out.Phone = int32(n)
		case masking.CategoryAge:
			out.Age = int32(n)
		case masking.CategoryLocation:
			out.Location = int32(n)
		case masking.CategoryGender:
			out.Gender = int32(n)
		case masking.CategoryName:
			out.Name = int32(n)
		}
	}

	return out
}

// Result represents the outcome of one export run
type Result struct {
	TotalRecords int64         `json:"total_records"`
	Exported     int64         `json:"exported"`
	Skipped      int64         `json:"skipped"`
	Duration     time.Duration `json:"duration"`
	Errors       []string      `json:"errors,omitempty"`
}

// Config contains export pipeline configuration
type Config struct {
	BatchSize      int `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	ProgressReport int `yaml:"progress_report" mapstructure:"progress_report"` // 10000
}

// DefaultConfig returns the default export configuration
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      1000,
		ProgressReport: 10000,
	}
}

// FileFormat represents supported output formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
)

// DetectFileFormat detects the output format from the file extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	case strings.HasSuffix(filename, ".csv"):
		return FormatCSV
	default:
		return FormatCSV
	}
}
