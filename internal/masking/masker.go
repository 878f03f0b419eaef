package masking

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/promptveil/veil/internal/config"
	"github.com/promptveil/veil/internal/logger"
	"go.uber.org/zap"
)

// Masker detects sensitive spans and replaces them with typed placeholder
// tokens. A Masker holds only immutable state (compiled rules, the optional
// name recognizer); all per-call state lives in a session local to Mask, so
// concurrent Mask calls need no coordination.
type Masker struct {
	rules      []rule
	enabled    map[Category]bool
	recognizer NameRecognizer
	logger     *logger.Logger
	config     config.MaskingConfig
}

type rule struct {
	category Category
	patterns []*regexp.Regexp
}

// session is the transient state scoped to one Mask call: zero-initialized
// counters, the accumulating mapping, and the in-progress masked text.
type session struct {
	text     string
	counters map[Category]int
	mappings map[string]string
	detected []string
}

// New creates a masker from configuration. Patterns that fail to compile are
// skipped with a warning so the category degrades to zero matches instead of
// aborting startup.
func New(cfg config.MaskingConfig, log *logger.Logger) (*Masker, error) {
	m := &Masker{
		enabled: make(map[Category]bool),
		logger:  log,
		config:  cfg,
	}

	raw := categoryPatterns()
	for _, cat := range Categories {
		exprs, ok := raw[cat]
		if !ok {
			continue // NAME is recognizer-driven
		}
		var compiled []*regexp.Regexp
		for _, expr := range exprs {
			re, err := regexp.Compile(expr)
			if err != nil {
				log.Warn("Skipping pattern that failed to compile",
					zap.String("category", string(cat)),
					zap.Error(err),
				)
				continue
			}
			compiled = append(compiled, re)
		}
		m.rules = append(m.rules, rule{category: cat, patterns: compiled})
	}

	if err := m.configureCategories(cfg.Categories); err != nil {
		return nil, fmt.Errorf("failed to configure categories: %w", err)
	}

	log.Info("Masker initialized",
		zap.Int("total_categories", len(Categories)),
		zap.Int("enabled_categories", m.countEnabled()),
	)

	return m, nil
}

// SetNameRecognizer installs the optional person-name capability. A nil
// recognizer leaves the NAME pass disabled.
func (m *Masker) SetNameRecognizer(r NameRecognizer) {
	m.recognizer = r
}

// configureCategories enables/disables categories based on configuration
func (m *Masker) configureCategories(names []string) error {
	for _, cat := range Categories {
		m.enabled[cat] = false
	}

	for _, name := range names {
		if name == "all" {
			for _, cat := range Categories {
				m.enabled[cat] = true
			}
			continue
		}

		found := false
		for _, cat := range Categories {
			if string(cat) == strings.ToUpper(name) {
				m.enabled[cat] = true
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown category: %s", name)
		}
	}

	return nil
}

// Mask scans text with the ordered category rules and replaces each detected
// span with a unique placeholder of the form [CATEGORY_N]. It never fails:
// text with no matches comes back unchanged with an empty mapping.
func (m *Masker) Mask(ctx context.Context, text string) Result {
	if !m.config.Enabled {
		return Result{
			OriginalText:     text,
			MaskedText:       text,
			Mappings:         map[string]string{},
			DetectedEntities: []string{},
		}
	}

	s := &session{
		text:     text,
		counters: make(map[Category]int),
		mappings: make(map[string]string),
		detected: make([]string, 0),
	}

	for _, r := range m.rules {
		if !m.enabled[r.category] {
			continue
		}
		for _, re := range r.patterns {
			m.applyPattern(s, r.category, re)
		}
	}

	if m.enabled[CategoryName] && m.recognizer != nil {
		m.applyNameSpans(ctx, s)
	}

	if m.config.LogDetections && len(s.detected) > 0 {
		m.logger.Debug("Sensitive entities masked",
			zap.Int("count", len(s.detected)),
			zap.Strings("entities", categoryTags(s.detected)),
		)
	}

	return Result{
		OriginalText:     text,
		MaskedText:       s.text,
		Mappings:         s.mappings,
		DetectedEntities: s.detected,
	}
}

// applyPattern runs one expression over the current text. Placeholder indexes
// are assigned from the forward-ordered match list, then the rewrites are
// applied right-to-left so earlier offsets stay valid.
func (m *Masker) applyPattern(s *session, cat Category, re *regexp.Regexp) {
	locs := re.FindAllStringIndex(s.text, -1)
	if len(locs) == 0 {
		return
	}

	type replacement struct {
		start, end int
		token      string
	}
	repls := make([]replacement, 0, len(locs))

	for _, loc := range locs {
		original := s.text[loc[0]:loc[1]]
		token := s.placeholder(cat)
		s.mappings[token] = original
		s.detected = append(s.detected, fmt.Sprintf("%s: %s", cat, original))
		repls = append(repls, replacement{start: loc[0], end: loc[1], token: token})
	}

	for i := len(repls) - 1; i >= 0; i-- {
		r := repls[i]
		s.text = s.text[:r.start] + r.token + s.text[r.end:]
	}
}

// applyNameSpans feeds the partially masked text to the recognizer and treats
// the returned spans like pattern matches. Recognizer failure degrades to an
// empty NAME pass.
func (m *Masker) applyNameSpans(ctx context.Context, s *session) {
	spans, err := m.recognizer.Recognize(ctx, s.text)
	if err != nil {
		m.logger.Warn("Name recognizer unavailable, skipping NAME pass", zap.Error(err))
		return
	}
	if len(spans) == 0 {
		return
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	// Drop out-of-bounds and overlapping spans; the survivors behave exactly
	// like non-overlapping regex matches.
	valid := spans[:0]
	prevEnd := 0
	for _, sp := range spans {
		if sp.Start < prevEnd || sp.Start < 0 || sp.End > len(s.text) || sp.Start >= sp.End {
			continue
		}
		valid = append(valid, sp)
		prevEnd = sp.End
	}

	type replacement struct {
		start, end int
		token      string
	}
	repls := make([]replacement, 0, len(valid))

	for _, sp := range valid {
		original := s.text[sp.Start:sp.End]
		token := s.placeholder(CategoryName)
		s.mappings[token] = original
		s.detected = append(s.detected, fmt.Sprintf("%s: %s", CategoryName, original))
		repls = append(repls, replacement{start: sp.Start, end: sp.End, token: token})
	}

	for i := len(repls) - 1; i >= 0; i-- {
		r := repls[i]
		s.text = s.text[:r.start] + r.token + s.text[r.end:]
	}
}

// placeholder allocates the next token for a category. Counters are strictly
// monotonic per category within one session, so tokens never collide.
func (s *session) placeholder(cat Category) string {
	token := fmt.Sprintf("[%s_%d]", cat, s.counters[cat])
	s.counters[cat]++
	return token
}

// EnabledCategories returns the names of currently enabled categories.
func (m *Masker) EnabledCategories() []string {
	var out []string
	for _, cat := range Categories {
		if m.enabled[cat] {
			out = append(out, string(cat))
		}
	}
	return out
}

func (m *Masker) countEnabled() int {
	n := 0
	for _, on := range m.enabled {
		if on {
			n++
		}
	}
	return n
}

// categoryTags strips original values from detection lines so logs carry
// category names only, never the sensitive text.
func categoryTags(detected []string) []string {
	tags := make([]string, len(detected))
	for i, d := range detected {
		if idx := strings.Index(d, ":"); idx > 0 {
			tags[i] = d[:idx]
		} else {
			tags[i] = d
		}
	}
	return tags
}
