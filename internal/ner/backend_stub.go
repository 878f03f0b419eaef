//go:build !onnx
// +build !onnx

package ner

import (
	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
	"github.com/promptveil/veil/internal/masking"
)

// Stub used when the 'onnx' build tag is not set. The ONNX recognizer needs
// CGO and the onnxruntime shared library, so the default build opts out.
func newONNXRecognizer(cfg config.NERConfig, log *logger.Logger) masking.NameRecognizer {
	return nil
}
