package venue

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/scenescout/extract-cli/internal/model"
)

// Registry is the slice of the store the resolver reads.
type Registry interface {
	ListVenues(ctx context.Context) ([]model.KnownVenue, error)
	ListLocationCorrections(ctx context.Context) ([]model.LocationCorrection, error)
}

// Options tunes the resolver. Zero values fall back to the defaults below.
type Options struct {
	// Threshold excludes matches at or below this similarity. Default 0.5.
	Threshold float64
	// MaxResults caps the ranked result list. Default 10.
	MaxResults int
}

// Resolver ranks registry venues by trigram similarity to a free-text query.
// The index is built lazily from the registry and reused across calls;
// Refresh invalidates it after registry writes.
type Resolver struct {
	reg  Registry
	opts Options

	mu       sync.RWMutex
	idx      *trigramIndex
	venues   []model.KnownVenue
	evidence map[string]venueEvidence
}

// venueEvidence aggregates the location-correction trail for one canonical
// venue name.
type venueEvidence struct {
	confidence float64
	count      int
}

// NewResolver creates a Resolver over the given registry.
func NewResolver(reg Registry, opts Options) *Resolver {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.5
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	return &Resolver{reg: reg, opts: opts}
}

// Refresh drops the cached index so the next lookup rebuilds it from the
// registry. Call after venue or location-correction writes.
func (r *Resolver) Refresh() {
	r.mu.Lock()
	r.idx = nil
	r.mu.Unlock()
}

// FindSimilarVenues returns venues whose canonical name or any alias is
// similar to query, ranked by similarity desc, then accumulated correction
// confidence desc, then correction count desc. An often-confirmed venue
// outranks a rarely-confirmed equally-similar one. threshold <= 0 uses the
// resolver default; matches at or below the threshold are excluded.
func (r *Resolver) FindSimilarVenues(ctx context.Context, query string, threshold float64) ([]model.VenueMatch, error) {
	return r.find(ctx, query, threshold, kindName, kindAlias)
}

// FindSimilarAddresses matches query against registry street addresses
// instead of names.
func (r *Resolver) FindSimilarAddresses(ctx context.Context, query string, threshold float64) ([]model.VenueMatch, error) {
	return r.find(ctx, query, threshold, kindAddress)
}

func (r *Resolver) find(ctx context.Context, query string, threshold float64, kinds ...entryKind) ([]model.VenueMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if threshold <= 0 {
		threshold = r.opts.Threshold
	}

	if err := r.ensureIndex(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Keep only the best-scoring entry per venue so a venue matched on both
	// its name and an alias appears once.
	best := make(map[int]hit)
	for _, h := range r.idx.search(query, threshold, kinds...) {
		if prev, ok := best[h.entry.venueIdx]; !ok || h.similarity > prev.similarity {
			best[h.entry.venueIdx] = h
		}
	}

	matches := make([]model.VenueMatch, 0, len(best))
	for venueIdx, h := range best {
		v := r.venues[venueIdx]
		ev := r.evidence[normalizeText(v.Name)]
		matches = append(matches, model.VenueMatch{
			Venue:           v,
			Similarity:      h.similarity,
			MatchedText:     h.entry.text,
			ConfidenceScore: ev.confidence,
			CorrectionCount: ev.count,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if matches[i].ConfidenceScore != matches[j].ConfidenceScore {
			return matches[i].ConfidenceScore > matches[j].ConfidenceScore
		}
		if matches[i].CorrectionCount != matches[j].CorrectionCount {
			return matches[i].CorrectionCount > matches[j].CorrectionCount
		}
		return matches[i].Venue.Name < matches[j].Venue.Name
	})

	if len(matches) > r.opts.MaxResults {
		matches = matches[:r.opts.MaxResults]
	}
	return matches, nil
}

func (r *Resolver) ensureIndex(ctx context.Context) error {
	r.mu.RLock()
	ready := r.idx != nil
	r.mu.RUnlock()
	if ready {
		return nil
	}

	venues, err := r.reg.ListVenues(ctx)
	if err != nil {
		return eris.Wrap(err, "venue: list registry")
	}
	corrections, err := r.reg.ListLocationCorrections(ctx)
	if err != nil {
		return eris.Wrap(err, "venue: list location corrections")
	}

	idx := newTrigramIndex()
	for i, v := range venues {
		idx.add(i, kindName, v.Name)
		for _, a := range v.Aliases {
			idx.add(i, kindAlias, a)
		}
		if v.Address != "" {
			idx.add(i, kindAddress, v.Address)
		}
	}

	evidence := make(map[string]venueEvidence)
	for _, lc := range corrections {
		key := normalizeText(lc.CorrectedVenueName)
		ev := evidence[key]
		ev.count += lc.CorrectionCount
		if lc.ConfidenceScore > ev.confidence {
			ev.confidence = lc.ConfidenceScore
		}
		evidence[key] = ev
	}

	r.mu.Lock()
	r.idx = idx
	r.venues = venues
	r.evidence = evidence
	r.mu.Unlock()
	return nil
}
