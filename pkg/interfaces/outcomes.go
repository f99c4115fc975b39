package interfaces

import (
	"context"

	"github.com/schedflow/schedflow/internal/model"
)

// ClassificationResult is the outcome of one classification branch:
// the event with derived metadata attached, its reminders, and any
// buffer-time blocks created around it.
type ClassificationResult struct {
	Event        model.Event
	Reminders    []model.Reminder
	BufferBlocks model.BufferTimeBlock
}

// OutcomeProcessor derives scheduling metadata for an event under one
// of the five classification outcomes. Implementations must be safe
// for concurrent use.
type OutcomeProcessor interface {
	// CategoryDefaults applies system-wide category defaults to an
	// event with no classification history.
	CategoryDefaults(ctx context.Context, event model.Event, vector []float32) (*ClassificationResult, error)

	// CategoryDefaultsWithUserCategories applies defaults sourced from
	// the categories the user manually assigned to the event.
	CategoryDefaultsWithUserCategories(ctx context.Context, event model.Event, vector []float32) (*ClassificationResult, error)

	// WithFoundPreviousEvent copies values from the nearest prior
	// event onto the new one.
	WithFoundPreviousEvent(ctx context.Context, event model.Event, previousEventID string) (*ClassificationResult, error)

	// WithFoundPreviousEventAndUserCategories merges prior-event values
	// with the user's manual category assignments.
	WithFoundPreviousEventAndUserCategories(ctx context.Context, event model.Event, previousEventID string) (*ClassificationResult, error)

	// WithoutCategories handles a prior match whose event carries no
	// categories, falling back to the user's global preferences.
	WithoutCategories(ctx context.Context, previous, event model.Event, prefs *model.UserPreferences, userID string) (*ClassificationResult, error)
}
