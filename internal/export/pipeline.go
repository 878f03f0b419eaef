package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/audit"
)

// Pipeline converts an audit JSONL file into a columnar file for offline
// analysis of detection rates.
type Pipeline struct {
	config *Config
	logger *zap.Logger
}

// NewPipeline creates a new export pipeline
func NewPipeline(config *Config, logger *zap.Logger) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	return &Pipeline{
		config: config,
		logger: logger,
	}
}

// Export reads audit records from inputPath and writes them to outputPath.
// The output format is chosen by the output file extension.
func (p *Pipeline) Export(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	format := DetectFileFormat(outputPath)

	p.logger.Info("Starting audit export",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("format", string(format)),
		zap.Int("batch_size", p.config.BatchSize))

	start := time.Now()
	result := &Result{}

	input, err := os.Open(inputPath)
	if err != nil {
		return result, fmt.Errorf("failed to open audit file: %w", err)
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		return result, fmt.Errorf("failed to create output file: %w", err)
	}
	defer output.Close()

	var writer recordWriter
	switch format {
	case FormatParquet:
		writer = newParquetWriter(output)
	case FormatCSV:
		writer, err = newCSVWriter(output)
		if err != nil {
			return result, fmt.Errorf("failed to write CSV header: %w", err)
		}
	default:
		return result, fmt.Errorf("unsupported output format: %s", format)
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	batch := make([]ExportRecord, 0, p.config.BatchSize)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		result.TotalRecords++

		var rec audit.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			p.logger.Warn("Skipping malformed audit record",
				zap.Int64("line", result.TotalRecords),
				zap.Error(err))
			result.Skipped++
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		batch = append(batch, FromAuditRecord(rec))
		if len(batch) >= p.config.BatchSize {
			if err := p.flush(writer, batch, result); err != nil {
				return result, err
			}
			batch = batch[:0]
		}

		if p.config.ProgressReport > 0 && result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.reportProgress(result, start)
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read audit file: %w", err)
	}

	if err := p.flush(writer, batch, result); err != nil {
		return result, err
	}
	if err := writer.Close(); err != nil {
		return result, fmt.Errorf("failed to finalize output: %w", err)
	}

	result.Duration = time.Since(start)

	p.logger.Info("Audit export completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("exported", result.Exported),
		zap.Int64("skipped", result.Skipped),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (p *Pipeline) flush(writer recordWriter, batch []ExportRecord, result *Result) error {
	for i := range batch {
		if err := writer.Write(&batch[i]); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		result.Exported++
	}
	return nil
}

func (p *Pipeline) reportProgress(result *Result, start time.Time) {
	elapsed := time.Since(start)
	rate := float64(result.TotalRecords) / elapsed.Seconds()

	p.logger.Info("Export progress",
		zap.Int64("records_read", result.TotalRecords),
		zap.Int64("exported", result.Exported),
		zap.Int64("skipped", result.Skipped),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

// recordWriter abstracts the two output encodings
type recordWriter interface {
	Write(rec *ExportRecord) error
	Close() error
}

type parquetWriter struct {
	w *parquet.Writer
}

func newParquetWriter(f *os.File) *parquetWriter {
	return &parquetWriter{w: parquet.NewWriter(f, parquet.SchemaOf(new(ExportRecord)))}
}

func (p *parquetWriter) Write(rec *ExportRecord) error {
	return p.w.Write(rec)
}

func (p *parquetWriter) Close() error {
	return p.w.Close()
}

type csvWriter struct {
	w *csv.Writer
}

var csvHeader = []string{
	"timestamp", "request_id", "session_id", "path",
	"mental_health", "disease", "email", "phone",
	"age", "location", "gender", "name",
	"total_masked", "duration_ms",
}

func newCSVWriter(f *os.File) (*csvWriter, error) {
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	return &csvWriter{w: w}, nil
}

func (c *csvWriter) Write(rec *ExportRecord) error {
	return c.w.Write([]string{
		rec.Timestamp,
		rec.RequestID,
		rec.SessionID,
		rec.Path,
		strconv.Itoa(int(rec.MentalHealth)),
		strconv.Itoa(int(rec.Disease)),
		strconv.Itoa(int(rec.Email)),
		strconv.Itoa(int(rec.Phone)),
		strconv.Itoa(int(rec.Age)),
		strconv.Itoa(int(rec.Location)),
		strconv.Itoa(int(rec.Gender)),
		strconv.Itoa(int(rec.Name)),
		strconv.Itoa(int(rec.TotalMasked)),
		strconv.FormatFloat(rec.DurationMS, 'f', 3, 64),
	})
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}
