//go:build onnx
// +build onnx

package ner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
	"github.com/promptveil/veil/internal/masking"
)

// onnxRecognizer runs a token-classification model (BIO tagging) through ONNX
// Runtime and maps PER-tagged tokens back to byte spans in the input text.
// Requires build tag 'onnx'.
type onnxRecognizer struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	vocab      map[string]int64
	bPer       int
	iPer       int
	maxLength  int
	logger     *logger.Logger
	mu         sync.Mutex
}

var wordRe = regexp.MustCompile(`\S+`)

// newONNXRecognizer initializes the ONNX Runtime backend. Any failure returns
// nil so the caller degrades to no NAME detection.
func newONNXRecognizer(cfg config.NERConfig, log *logger.Logger) masking.NameRecognizer {
	// Allow user to provide shared library path via environment variable.
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		log.Error("ONNX Runtime environment init failed", zap.Error(err))
		return nil
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		log.Error("Failed to inspect ONNX model IO", zap.Error(err), zap.String("model", cfg.ModelPath))
		return nil
	}

	// Prefer common transformer inputs order
	preferredInputs := []string{"input_ids", "attention_mask"}
	available := map[string]bool{}
	for _, ii := range inputsInfo {
		available[strings.ToLower(ii.Name)] = true
	}
	var inputNames []string
	for _, name := range preferredInputs {
		if available[name] {
			inputNames = append(inputNames, name)
		}
	}
	if len(inputNames) == 0 || len(outputsInfo) == 0 {
		log.Error("ONNX model lacks expected IO", zap.String("model", cfg.ModelPath))
		return nil
	}
	outputName := outputsInfo[0].Name

	vocab, err := loadVocab(filepath.Join(filepath.Dir(cfg.ModelPath), "vocab.txt"))
	if err != nil {
		log.Error("Failed to load tokenizer vocab", zap.Error(err))
		return nil
	}

	bPer, iPer, err := loadPerLabels(filepath.Join(filepath.Dir(cfg.ModelPath), "labels.txt"))
	if err != nil {
		log.Error("Failed to load label map", zap.Error(err))
		return nil
	}

	sess, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		log.Error("ONNX Runtime session creation failed", zap.Error(err), zap.String("model", cfg.ModelPath))
		return nil
	}

	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = 256
	}

	log.Info("ONNX name recognizer ready",
		zap.String("model", cfg.ModelPath),
		zap.Strings("inputs", inputNames),
		zap.String("output", outputName),
	)

	return &onnxRecognizer{
		session:    sess,
		inputNames: inputNames,
		outputName: outputName,
		vocab:      vocab,
		bPer:       bPer,
		iPer:       iPer,
		maxLength:  maxLength,
		logger:     log,
	}
}

// Recognize tags whitespace tokens and merges consecutive PER tokens into
// spans over the original text.
func (r *onnxRecognizer) Recognize(ctx context.Context, text string) ([]masking.Span, error) {
	words := wordRe.FindAllStringIndex(text, -1)
	if len(words) == 0 {
		return nil, nil
	}
	if len(words) > r.maxLength {
		words = words[:r.maxLength]
	}

	seqLen := len(words)
	inputIDs := make([]int64, seqLen)
	attention := make([]int64, seqLen)
	unk := r.vocab["[UNK]"]
	for i, loc := range words {
		token := strings.ToLower(strings.Trim(text[loc[0]:loc[1]], `.,!?;:"'`))
		id, ok := r.vocab[token]
		if !ok {
			id = unk
		}
		inputIDs[i] = id
		attention[i] = 1
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor[int64](shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, attention)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	inputs := make([]ort.Value, 0, len(r.inputNames))
	for _, name := range r.inputNames {
		if strings.Contains(strings.ToLower(name), "mask") {
			inputs = append(inputs, maskTensor)
		} else {
			inputs = append(inputs, idsTensor)
		}
	}

	outputs := make([]ort.Value, 1)
	r.mu.Lock()
	err = r.session.Run(inputs, outputs)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("onnx returned no outputs")
	}
	defer outputs[0].Destroy()

	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type (want float32 tensor)")
	}
	outShape := logits.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unsupported output shape %v", outShape)
	}
	numLabels := int(outShape[2])
	data := logits.GetData()
	if len(data) < seqLen*numLabels {
		return nil, fmt.Errorf("unexpected flat data length %d for shape %v", len(data), outShape)
	}

	// Argmax per token, then merge B-PER/I-PER runs into spans.
	var spans []masking.Span
	current := -1 // start word index of the open span, -1 when closed
	var lastEnd int
	for i := 0; i < seqLen; i++ {
		best, bestScore := 0, data[i*numLabels]
		for l := 1; l < numLabels; l++ {
			if s := data[i*numLabels+l]; s > bestScore {
				best, bestScore = l, s
			}
		}

		isPer := best == r.bPer || best == r.iPer
		continues := best == r.iPer && current >= 0

		if isPer && (current < 0 || !continues) {
			if current >= 0 {
				spans = append(spans, masking.Span{Start: current, End: lastEnd, Text: text[current:lastEnd]})
			}
			current = words[i][0]
			lastEnd = words[i][1]
		} else if isPer {
			lastEnd = words[i][1]
		} else if current >= 0 {
			spans = append(spans, masking.Span{Start: current, End: lastEnd, Text: text[current:lastEnd]})
			current = -1
		}
	}
	if current >= 0 {
		spans = append(spans, masking.Span{Start: current, End: lastEnd, Text: text[current:lastEnd]})
	}

	return spans, nil
}

// loadVocab reads a one-token-per-line vocabulary file.
func loadVocab(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		vocab[scanner.Text()] = id
		id++
	}
	return vocab, scanner.Err()
}

// loadPerLabels returns the indexes of the B-PER and I-PER tags in the
// model's label map.
func loadPerLabels(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	bPer, iPer := -1, -1
	scanner := bufio.NewScanner(f)
	idx := 0
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "B-PER":
			bPer = idx
		case "I-PER":
			iPer = idx
		}
		idx++
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	if bPer < 0 || iPer < 0 {
		return 0, 0, fmt.Errorf("label map has no PER tags")
	}
	return bPer, iPer, nil
}
