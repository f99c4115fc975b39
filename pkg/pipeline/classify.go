package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Branch identifies the classification outcome taken for an event.
type Branch int

const (
	// BranchNone means classification did not run or failed early.
	BranchNone Branch = iota
	// BranchCategoryDefaults: no prior match, no manual override.
	BranchCategoryDefaults
	// BranchUserCategories: no prior match, manual categories present.
	BranchUserCategories
	// BranchStampVector: no prior match, override set, no categories.
	// The event is stamped with its vector for future classification.
	BranchStampVector
	// BranchPreviousEvent: prior match, no manual override.
	BranchPreviousEvent
	// BranchPreviousUserCategories: prior match, override, categories.
	BranchPreviousUserCategories
	// BranchPreviousNoCategories: prior match, override, no categories.
	BranchPreviousNoCategories
)

// String names the branch for logs and traces.
func (b Branch) String() string {
	switch b {
	case BranchCategoryDefaults:
		return "category_defaults"
	case BranchUserCategories:
		return "user_categories"
	case BranchStampVector:
		return "stamp_vector"
	case BranchPreviousEvent:
		return "previous_event"
	case BranchPreviousUserCategories:
		return "previous_user_categories"
	case BranchPreviousNoCategories:
		return "previous_no_categories"
	default:
		return "none"
	}
}

// classifyEvent embeds the event, searches the user's history for its
// nearest neighbor, and dispatches to one of the outcome branches. A
// stale index hit is evicted exactly once before falling back to the
// no-match branches.
func (p *Pipeline) classifyEvent(ctx context.Context, event model.Event) (*interfaces.ClassificationResult, Branch, []Warning, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.classifyEvent",
		trace.WithAttributes(attribute.String("event.id", event.ID)))
	defer span.End()

	var warnings []Warning

	ectx, cancel := p.ioCtx(ctx)
	vector, err := p.embedder.Embed(ectx, event)
	cancel()
	if err != nil {
		return nil, BranchNone, warnings, errors.Wrap(errors.CodeClassification, "embed event", err).
			WithContext("eventId", event.ID)
	}

	nctx, cancel := p.ioCtx(ctx)
	hit, err := p.index.NearestNeighbor(nctx, event.UserID, vector)
	cancel()
	if err != nil {
		return nil, BranchNone, warnings, errors.Wrap(errors.CodeClassification, "nearest neighbor search", err).
			WithContext("eventId", event.ID)
	}

	if hit != nil {
		previous, err := p.store.GetEventByID(ctx, hit.ID)
		if err != nil {
			return nil, BranchNone, warnings, errors.Wrap(errors.CodeCalendarFetch, "load matched event", err).
				WithContext("previousEventId", hit.ID)
		}
		if previous == nil {
			// The index references an event that no longer exists.
			// Evict it and fall back to the no-match branches.
			if derr := p.index.Delete(ctx, hit.ID); derr != nil {
				p.log.Warn("stale index entry eviction failed",
					"previousEventId", hit.ID, "error", derr)
			}
			warnings = append(warnings, Warning{
				Code:    errors.CodeStaleIndexReference,
				Message: "evicted stale index entry " + hit.ID,
				EventID: event.ID,
			})
			hit = nil
		}
	}

	var (
		res    *interfaces.ClassificationResult
		branch Branch
	)
	switch {
	case hit == nil && !event.UserModifiedCategories:
		branch = BranchCategoryDefaults
		res, err = p.outcomes.CategoryDefaults(ctx, event, vector)

	case hit == nil && event.UserModifiedCategories:
		categories, cerr := p.store.ListCategoriesForEvent(ctx, event.ID)
		if cerr != nil {
			return nil, BranchNone, warnings, errors.Wrap(errors.CodeCalendarFetch, "list event categories", cerr).
				WithContext("eventId", event.ID)
		}
		if len(categories) > 0 {
			branch = BranchUserCategories
			res, err = p.outcomes.CategoryDefaultsWithUserCategories(ctx, event, vector)
		} else {
			branch = BranchStampVector
			event.Vector = vector
			if uerr := p.index.Upsert(ctx, event.ID, event.UserID, vector); uerr != nil {
				p.log.Warn("vector stamp upsert failed", "eventId", event.ID, "error", uerr)
			}
			res = &interfaces.ClassificationResult{Event: event}
		}

	case !event.UserModifiedCategories:
		branch = BranchPreviousEvent
		res, err = p.outcomes.WithFoundPreviousEvent(ctx, event, hit.ID)

	default:
		categories, cerr := p.store.ListCategoriesForEvent(ctx, event.ID)
		if cerr != nil {
			return nil, BranchNone, warnings, errors.Wrap(errors.CodeCalendarFetch, "list event categories", cerr).
				WithContext("eventId", event.ID)
		}
		if len(categories) > 0 {
			branch = BranchPreviousUserCategories
			res, err = p.outcomes.WithFoundPreviousEventAndUserCategories(ctx, event, hit.ID)
			break
		}
		branch = BranchPreviousNoCategories
		previous, perr := p.store.GetEventByID(ctx, hit.ID)
		if perr != nil {
			return nil, branch, warnings, errors.Wrap(errors.CodeCalendarFetch, "load matched event", perr).
				WithContext("previousEventId", hit.ID)
		}
		if previous == nil {
			return nil, branch, warnings, errors.New(errors.CodeMissingPreviousEvent, "matched event vanished during classification").
				WithContext("previousEventId", hit.ID).
				WithContext("eventId", event.ID)
		}
		ranges, perr := p.store.ListPreferredTimeRangesForEvent(ctx, hit.ID)
		if perr != nil {
			return nil, branch, warnings, errors.Wrap(errors.CodeCalendarFetch, "list matched event time ranges", perr).
				WithContext("previousEventId", hit.ID)
		}
		previous.PreferredTimeRanges = ranges
		prefs, perr := p.store.GetUserPreferences(ctx, event.UserID)
		if perr != nil {
			return nil, branch, warnings, errors.Wrap(errors.CodeCalendarFetch, "load user preferences", perr).
				WithContext("userId", event.UserID)
		}
		res, err = p.outcomes.WithoutCategories(ctx, *previous, event, prefs, event.UserID)
	}

	if err != nil {
		return nil, branch, warnings, errors.Wrap(errors.CodeClassification, "apply "+branch.String()+" outcome", err).
			WithContext("eventId", event.ID)
	}
	span.SetAttributes(attribute.String("classification.branch", branch.String()))
	p.log.Debug("classified event", "eventId", event.ID, "branch", branch.String())
	return res, branch, warnings, nil
}
