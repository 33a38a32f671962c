// Package learner grows the pattern set from accumulated corrections by
// abstracting corrected values into structural skeletons, clustering equal
// shapes, and replay-validating each candidate against history before
// promotion.
package learner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/store"
)

// ErrLearnInProgress is returned when a learning run is started while
// another is still executing. Runs read aggregate statistics and then write
// patterns, so they never overlap.
var ErrLearnInProgress = eris.New("learner: learning run already in progress")

// Store is the slice of the persistence layer the learner depends on.
type Store interface {
	ListCorrections(ctx context.Context, fieldName string, limit int) ([]model.Correction, error)
	ListGroundTruth(ctx context.Context, fieldName string, limit int) ([]model.GroundTruthEntry, error)
	FieldsWithCorrections(ctx context.Context, min int) ([]string, error)
	ListPatterns(ctx context.Context, filter store.PatternFilter) ([]model.ExtractionPattern, error)
	CreatePattern(ctx context.Context, p model.ExtractionPattern) (*model.ExtractionPattern, error)
}

// Options tunes the generalizer thresholds. Zero values fall back to the
// defaults below.
type Options struct {
	// MinValues is the number of corrected values required before
	// generalization is attempted at all. Default 3.
	MinValues int
	// MinClusterSize drops single-example shapes as noise. Default 2.
	MinClusterSize int
	// MinReplays is the number of historical replays a candidate needs
	// before its success ratio means anything. Default 3.
	MinReplays int
	// PromoteRatio is the replay success ratio a candidate must exceed
	// (strictly) to be promoted. Default 0.7.
	PromoteRatio float64
}

func (o Options) withDefaults() Options {
	if o.MinValues <= 0 {
		o.MinValues = 3
	}
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = 2
	}
	if o.MinReplays <= 0 {
		o.MinReplays = 3
	}
	if o.PromoteRatio <= 0 {
		o.PromoteRatio = 0.7
	}
	return o
}

// Candidate reports the fate of one materialized skeleton, whether promoted
// or not, for audit output.
type Candidate struct {
	FieldType model.FieldType `json:"field_type"`
	Regex     string          `json:"regex"`
	Members   int             `json:"members"`
	Replays   int             `json:"replays"`
	Successes int             `json:"successes"`
	Ratio     float64         `json:"ratio"`
	Promoted  bool            `json:"promoted"`
	Reason    string          `json:"reason,omitempty"`
}

// Result is the outcome of one learning run for one field.
type Result struct {
	FieldName  string                    `json:"field_name"`
	Candidates []Candidate               `json:"candidates"`
	Promoted   []model.ExtractionPattern `json:"promoted"`
}

// Learner turns correction history into validated extraction patterns.
type Learner struct {
	store Store
	opts  Options
	mu    sync.Mutex
}

// New creates a Learner over the given store.
func New(s Store, opts Options) *Learner {
	return &Learner{store: s, opts: opts.withDefaults()}
}

// LearnField runs one generalization pass for a single field. Fewer than
// MinValues corrected values is expected steady state and yields an empty
// result, not an error.
func (l *Learner) LearnField(ctx context.Context, fieldName string) (*Result, error) {
	if !l.mu.TryLock() {
		return nil, ErrLearnInProgress
	}
	defer l.mu.Unlock()
	return l.learnField(ctx, fieldName)
}

// LearnAll runs generalization for every field that has accumulated at
// least MinValues corrections.
func (l *Learner) LearnAll(ctx context.Context) ([]Result, error) {
	if !l.mu.TryLock() {
		return nil, ErrLearnInProgress
	}
	defer l.mu.Unlock()

	fields, err := l.store.FieldsWithCorrections(ctx, l.opts.MinValues)
	if err != nil {
		return nil, eris.Wrap(err, "learner: list fields with corrections")
	}

	var results []Result
	for _, f := range fields {
		res, err := l.learnField(ctx, f)
		if err != nil {
			return nil, err
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results, nil
}

type replaySample struct {
	raw      string
	expected string
}

func (l *Learner) learnField(ctx context.Context, fieldName string) (*Result, error) {
	ft, err := model.FieldTypeForName(fieldName)
	if err != nil {
		return nil, err
	}

	samples, values, err := l.loadHistory(ctx, fieldName)
	if err != nil {
		return nil, err
	}

	res := &Result{FieldName: fieldName}
	if len(values) < l.opts.MinValues {
		zap.L().Debug("not enough corrected values to generalize",
			zap.String("field", fieldName),
			zap.Int("values", len(values)),
			zap.Int("required", l.opts.MinValues),
		)
		return res, nil
	}

	existing, err := l.existingSources(ctx, ft)
	if err != nil {
		return nil, err
	}

	for _, cluster := range clusterBySkeleton(values, l.opts.MinClusterSize) {
		cand := Candidate{
			FieldType: ft,
			Regex:     "(" + cluster.skeleton + ")",
			Members:   cluster.members,
		}

		re, err := regexp.Compile(cand.Regex)
		if err != nil {
			// Skeletons are regex fragments by construction, but a bad one
			// must not abort the run.
			cand.Reason = fmt.Sprintf("does not compile: %v", err)
			res.Candidates = append(res.Candidates, cand)
			continue
		}

		if existing[cand.Regex] {
			cand.Reason = "pattern already exists"
			res.Candidates = append(res.Candidates, cand)
			continue
		}

		cand.Replays, cand.Successes = replay(re, samples)
		if cand.Replays > 0 {
			cand.Ratio = float64(cand.Successes) / float64(cand.Replays)
		}

		switch {
		case cand.Replays < l.opts.MinReplays:
			cand.Reason = fmt.Sprintf("only %d replays, need %d", cand.Replays, l.opts.MinReplays)
		case cand.Ratio <= l.opts.PromoteRatio:
			cand.Reason = fmt.Sprintf("replay ratio %.2f not above %.2f", cand.Ratio, l.opts.PromoteRatio)
		default:
			p, err := l.store.CreatePattern(ctx, model.ExtractionPattern{
				FieldType:   ft,
				RegexSource: cand.Regex,
				Description: fmt.Sprintf("learned from %d corrections of %s", cluster.members, fieldName),
				Confidence:  cand.Ratio,
				Priority:    model.PriorityLearned,
				IsActive:    true,
				Source:      model.SourceLearned,
			})
			if err != nil {
				return nil, eris.Wrapf(err, "learner: promote candidate for %s", fieldName)
			}
			cand.Promoted = true
			res.Promoted = append(res.Promoted, *p)
			zap.L().Info("promoted learned pattern",
				zap.String("field", fieldName),
				zap.String("regex", cand.Regex),
				zap.Float64("confidence", cand.Ratio),
			)
		}
		res.Candidates = append(res.Candidates, cand)
	}

	return res, nil
}

// loadHistory gathers ground truth (trusted first) and corrections for one
// field, returning replay samples plus the distinct corrected values that
// feed skeleton clustering.
func (l *Learner) loadHistory(ctx context.Context, fieldName string) ([]replaySample, []string, error) {
	truth, err := l.store.ListGroundTruth(ctx, fieldName, 0)
	if err != nil {
		return nil, nil, eris.Wrap(err, "learner: list ground truth")
	}
	corrections, err := l.store.ListCorrections(ctx, fieldName, 0)
	if err != nil {
		return nil, nil, eris.Wrap(err, "learner: list corrections")
	}

	samples := make([]replaySample, 0, len(truth)+len(corrections))
	values := make([]string, 0, len(truth)+len(corrections))
	for _, g := range truth {
		samples = append(samples, replaySample{raw: g.RawText, expected: g.CorrectValue})
		values = append(values, g.CorrectValue)
	}
	for _, c := range corrections {
		samples = append(samples, replaySample{raw: c.RawSourceText, expected: c.CorrectedValue})
		values = append(values, c.CorrectedValue)
	}
	return samples, values, nil
}

func (l *Learner) existingSources(ctx context.Context, ft model.FieldType) (map[string]bool, error) {
	patterns, err := l.store.ListPatterns(ctx, store.PatternFilter{FieldType: ft})
	if err != nil {
		return nil, eris.Wrap(err, "learner: list existing patterns")
	}
	existing := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		existing[p.RegexSource] = true
	}
	return existing, nil
}

type skeletonCluster struct {
	skeleton string
	members  int
}

// clusterBySkeleton groups values whose skeletons are exactly equal and
// keeps clusters of at least minSize, preserving first-seen order.
func clusterBySkeleton(values []string, minSize int) []skeletonCluster {
	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		sk := Skeleton(v)
		if counts[sk] == 0 {
			order = append(order, sk)
		}
		counts[sk]++
	}

	var clusters []skeletonCluster
	for _, sk := range order {
		if counts[sk] >= minSize {
			clusters = append(clusters, skeletonCluster{skeleton: sk, members: counts[sk]})
		}
	}
	return clusters
}

// replay applies a candidate to every historical sample. A sample with raw
// source text succeeds when the candidate extracts the expected value from
// it; a value-only sample succeeds when the candidate matches the whole
// corrected value.
func replay(re *regexp.Regexp, samples []replaySample) (replays, successes int) {
	for _, s := range samples {
		replays++
		if s.raw != "" {
			m := re.FindStringSubmatch(s.raw)
			if m == nil {
				continue
			}
			got := m[0]
			if len(m) > 1 && m[1] != "" {
				got = m[1]
			}
			if strings.TrimSpace(got) == strings.TrimSpace(s.expected) {
				successes++
			}
			continue
		}

		loc := re.FindStringIndex(s.expected)
		if loc != nil && loc[0] == 0 && loc[1] == len(s.expected) {
			successes++
		}
	}
	return replays, successes
}
