package matcher

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/scenescout/extract-cli/internal/model"
)

// BatchItem is one post to extract fields from.
type BatchItem struct {
	// ID identifies the post in the results; opaque to the matcher.
	ID string
	// Text is the raw post text.
	Text string
	// Fields lists the field types to extract. Empty means all field types.
	Fields []model.FieldType
}

// BatchResult holds the extractions for one post. Err is set when a store
// failure prevented extraction for this item; other items are unaffected.
type BatchResult struct {
	ID          string
	Extractions []model.Extraction
	Err         error
}

// ExtractBatch runs Extract over a set of posts with bounded concurrency.
// Each item fails independently: a store error on one post is reported in
// that post's BatchResult and does not abort the batch. Only context
// cancellation stops the whole run.
func (m *Matcher) ExtractBatch(ctx context.Context, items []BatchItem, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]BatchResult, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = m.extractItem(ctx, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "matcher: batch extraction aborted")
	}
	return results, nil
}

func (m *Matcher) extractItem(ctx context.Context, item BatchItem) BatchResult {
	res := BatchResult{ID: item.ID}

	fields := item.Fields
	if len(fields) == 0 {
		fields = model.AllFieldTypes()
	}

	for _, ft := range fields {
		ext, err := m.Extract(ctx, item.Text, ft)
		if err != nil {
			res.Err = eris.Wrapf(err, "matcher: extract %s", ft)
			return res
		}
		if ext != nil {
			res.Extractions = append(res.Extractions, *ext)
		}
	}
	return res
}
