// Package matcher applies the active pattern set to raw post text and
// returns the first match in priority order.
package matcher

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/resilience"
)

// PatternSource is the slice of the store the matcher depends on.
type PatternSource interface {
	ActivePatterns(ctx context.Context, ft model.FieldType, minConfidence float64, limit int) ([]model.ExtractionPattern, error)
	RecordPatternHit(ctx context.Context, id string) error
	RecordPatternMiss(ctx context.Context, id string) error
}

// Options tunes the matcher. Zero values fall back to the defaults below.
type Options struct {
	// MinConfidence excludes low-confidence patterns from matching. Default 0.5.
	MinConfidence float64
	// MaxPatterns caps how many patterns are tried per call, bounding
	// worst-case cost against adversarial pattern counts. Default 10.
	MaxPatterns int
	// Retry controls transparent retries of counter writes.
	Retry resilience.RetryConfig
}

// Matcher extracts field values by applying stored patterns in
// (priority desc, confidence desc) order.
type Matcher struct {
	patterns PatternSource
	cache    *regexCache
	opts     Options
}

// New creates a Matcher over the given pattern source.
func New(patterns PatternSource, opts Options) *Matcher {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = 0.5
	}
	if opts.MaxPatterns <= 0 {
		opts.MaxPatterns = 10
	}
	return &Matcher{
		patterns: patterns,
		cache:    newRegexCache(),
		opts:     opts,
	}
}

// Invalidate drops a pattern's compiled regex from the cache. Call after a
// pattern's regex_source is updated in the store.
func (m *Matcher) Invalidate(patternID string) {
	m.cache.invalidate(patternID)
}

// Extract applies the active patterns for one field type against text.
// A nil result with nil error means no pattern matched: the field is absent
// from the text, which is a normal outcome, not an error.
//
// Counter updates are best-effort and independent of the returned value: a
// counter-write failure is retried, then logged, and never changes the
// extraction handed back to the caller.
func (m *Matcher) Extract(ctx context.Context, text string, ft model.FieldType) (*model.Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if _, err := model.ParseFieldType(string(ft)); err != nil {
		return nil, err
	}

	patterns, err := m.patterns.ActivePatterns(ctx, ft, m.opts.MinConfidence, m.opts.MaxPatterns)
	if err != nil {
		return nil, eris.Wrap(err, "matcher: load active patterns")
	}

	// Patterns that compiled but lost to a lower-ranked winner count as
	// failures; when nothing matches at all the field is simply absent and
	// nobody is penalized.
	var outranked []string

	for _, p := range patterns {
		re, err := m.cache.get(p.ID, p.RegexSource)
		if err != nil {
			// A corrupted persisted pattern must not crash extraction:
			// count it as a failure and move on.
			zap.L().Warn("stored pattern does not compile",
				zap.String("pattern_id", p.ID),
				zap.String("field_type", string(ft)),
				zap.Error(err),
			)
			m.recordMiss(ctx, p.ID)
			continue
		}

		match := re.FindStringSubmatch(text)
		if match == nil {
			outranked = append(outranked, p.ID)
			continue
		}

		value := match[0]
		if len(match) > 1 && match[1] != "" {
			value = match[1]
		}

		m.recordHit(ctx, p.ID)
		for _, id := range outranked {
			m.recordMiss(ctx, id)
		}
		return &model.Extraction{
			FieldType:  ft,
			Value:      strings.TrimSpace(value),
			PatternID:  p.ID,
			Method:     model.MethodPattern,
			Confidence: p.Confidence,
		}, nil
	}

	return nil, nil
}

func (m *Matcher) recordHit(ctx context.Context, id string) {
	err := resilience.Do(ctx, m.opts.Retry, func(ctx context.Context) error {
		return m.patterns.RecordPatternHit(ctx, id)
	})
	if err != nil {
		zap.L().Warn("pattern hit counter update failed",
			zap.String("pattern_id", id), zap.Error(err))
	}
}

func (m *Matcher) recordMiss(ctx context.Context, id string) {
	err := resilience.Do(ctx, m.opts.Retry, func(ctx context.Context) error {
		return m.patterns.RecordPatternMiss(ctx, id)
	})
	if err != nil {
		zap.L().Warn("pattern miss counter update failed",
			zap.String("pattern_id", id), zap.Error(err))
	}
}
