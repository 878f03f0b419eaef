package ner

import (
	"context"
	"regexp"

	"github.com/promptveil/veil/internal/logger"
	"github.com/promptveil/veil/internal/masking"
)

// PatternRecognizer finds likely person names with introducer phrases and
// honorifics followed by capitalized word runs. It is a deliberately
// conservative heuristic: missing a name is acceptable, claiming an arbitrary
// capitalized word is not.
type PatternRecognizer struct {
	patterns []*regexp.Regexp
	logger   *logger.Logger
}

var namePatterns = []string{
	`\b(?:[Mm]y name is|[Nn]ame's|[Ii] am|[Ii]'m|[Cc]all me|[Tt]his is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\b`,
	`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`,
}

// NewPatternRecognizer creates the heuristic recognizer.
func NewPatternRecognizer(log *logger.Logger) *PatternRecognizer {
	r := &PatternRecognizer{logger: log}
	for _, expr := range namePatterns {
		// Patterns are fixed; compile failure would be a programming error,
		// but degrade the same way the masker does.
		if re, err := regexp.Compile(expr); err == nil {
			r.patterns = append(r.patterns, re)
		}
	}
	return r
}

// Recognize returns spans for the captured name groups, relative to text.
func (r *PatternRecognizer) Recognize(ctx context.Context, text string) ([]masking.Span, error) {
	var spans []masking.Span
	for _, re := range r.patterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			// Group 1 holds the name; m[2]:m[3] are its offsets.
			if len(m) < 4 || m[2] < 0 {
				continue
			}
			spans = append(spans, masking.Span{
				Start: m[2],
				End:   m[3],
				Text:  text[m[2]:m[3]],
			})
		}
	}
	return spans, nil
}
