package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/scenescout/extract-cli/internal/model"
	"github.com/scenescout/extract-cli/internal/store"
)

// Deactivation thresholds: a pattern is failing once it has more than
// DeactivateMinAttempts total attempts and failures exceeding successes
// times DeactivateFailureFactor. The attempt floor avoids deactivating on
// small-sample noise.
const (
	DeactivateMinAttempts   = 10
	DeactivateFailureFactor = 2
	autoApproveMinAttempts  = 3
)

// RowFailure records one row a bulk operation could not process.
type RowFailure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// BulkResult reports a bulk operation's outcome. Re-running an op with
// nothing left to act on yields Affected zero, not an error.
type BulkResult struct {
	Affected int          `json:"affected"`
	Failures []RowFailure `json:"failures,omitempty"`
}

// DeactivateFailing disables chronically failing patterns.
func (m *Manager) DeactivateFailing(ctx context.Context) (BulkResult, error) {
	n, err := m.store.DeactivateFailingPatterns(ctx, DeactivateMinAttempts, DeactivateFailureFactor)
	if err != nil {
		return BulkResult{}, err
	}
	if n > 0 {
		zap.L().Info("deactivated failing patterns", zap.Int("count", n))
	}
	return BulkResult{Affected: n}, nil
}

// RejectNonAmenable marks pending suggestions for proper-noun field types
// (venue, address) as not_applicable, regardless of attempt count. Those
// fields are served by the fuzzy resolver, not regexes.
func (m *Manager) RejectNonAmenable(ctx context.Context) (BulkResult, error) {
	var nonAmenable []model.FieldType
	for _, ft := range model.AllFieldTypes() {
		if !ft.RegexAmenable() {
			nonAmenable = append(nonAmenable, ft)
		}
	}

	pending, err := m.store.ListSuggestions(ctx, store.SuggestionFilter{
		Status:     model.SuggestionPending,
		FieldTypes: nonAmenable,
	})
	if err != nil {
		return BulkResult{}, err
	}

	var res BulkResult
	for _, s := range pending {
		ok, err := m.store.TransitionSuggestion(ctx, s.ID, model.SuggestionPending, model.SuggestionNotApplicable)
		if err != nil {
			res.Failures = append(res.Failures, RowFailure{ID: s.ID, Err: err.Error()})
			continue
		}
		if ok {
			res.Affected++
		}
	}
	return res, nil
}

// AutoApprove promotes pending date/time/price suggestions proposed at
// least autoApproveMinAttempts times: repeated independent proposals of the
// same shape are strong evidence. Venue and address are never auto-approved.
// A row failure (e.g. an uncompilable regex) is reported per row and does
// not abort the batch.
func (m *Manager) AutoApprove(ctx context.Context) (BulkResult, error) {
	var approvable []model.FieldType
	for _, ft := range model.AllFieldTypes() {
		if ft.AutoApprovable() {
			approvable = append(approvable, ft)
		}
	}

	pending, err := m.store.ListSuggestions(ctx, store.SuggestionFilter{
		Status:      model.SuggestionPending,
		FieldTypes:  approvable,
		MinAttempts: autoApproveMinAttempts,
	})
	if err != nil {
		return BulkResult{}, err
	}

	var res BulkResult
	for _, s := range pending {
		if _, err := m.Approve(ctx, s.ID, ""); err != nil {
			res.Failures = append(res.Failures, RowFailure{ID: s.ID, Err: err.Error()})
			continue
		}
		res.Affected++
	}
	return res, nil
}

// Purge deletes suggestions in the given terminal non-approved statuses.
// Approved suggestions survive any purge; they stay linked to the pattern
// they produced for audit.
func (m *Manager) Purge(ctx context.Context, statuses []model.SuggestionStatus) (BulkResult, error) {
	if len(statuses) == 0 {
		statuses = []model.SuggestionStatus{model.SuggestionRejected, model.SuggestionNotApplicable}
	}
	n, err := m.store.PurgeSuggestions(ctx, statuses)
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{Affected: n}, nil
}

// Maintain runs the full maintenance sweep in order: deactivate failing
// patterns, reject non-amenable suggestions, auto-approve high-frequency
// ones. Purging is left to an explicit call because it is destructive.
func (m *Manager) Maintain(ctx context.Context) (map[string]BulkResult, error) {
	out := make(map[string]BulkResult, 3)

	deactivated, err := m.DeactivateFailing(ctx)
	if err != nil {
		return nil, err
	}
	out["deactivate_failing"] = deactivated

	rejected, err := m.RejectNonAmenable(ctx)
	if err != nil {
		return nil, err
	}
	out["reject_non_amenable"] = rejected

	approved, err := m.AutoApprove(ctx)
	if err != nil {
		return nil, err
	}
	out["auto_approve"] = approved

	return out, nil
}
