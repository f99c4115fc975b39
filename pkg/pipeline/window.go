package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
)

// ClassificationWindow derives the time range considered for one
// triggering event: from the event's start instant to the last second
// of that calendar day in the event's timezone.
func ClassificationWindow(event model.Event) (start, end time.Time, err error) {
	loc := time.UTC
	if event.Timezone != "" {
		loc, err = time.LoadLocation(event.Timezone)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	local := event.StartDate.In(loc)
	end = time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
	return event.StartDate, end, nil
}

// mergePreferredTimeRanges attaches an event's stored preferred time
// ranges. A fetch failure leaves the event unchanged and is reported as
// a warning.
func (p *Pipeline) mergePreferredTimeRanges(ctx context.Context, event model.Event) (model.Event, *Warning) {
	ranges, err := p.store.ListPreferredTimeRangesForEvent(ctx, event.ID)
	if err != nil {
		return event, &Warning{
			Code:    errors.CodeCalendarFetch,
			Message: "list preferred time ranges: " + err.Error(),
			EventID: event.ID,
		}
	}
	if len(ranges) > 0 {
		event.PreferredTimeRanges = ranges
	}
	return event, nil
}

// mergePreferredTimeRangesAll applies the merge to a batch with bounded
// concurrency, preserving input order. Per-event failures skip the
// merge for that event only.
func (p *Pipeline) mergePreferredTimeRangesAll(ctx context.Context, events []model.Event) ([]model.Event, []Warning) {
	out := make([]model.Event, len(events))
	copy(out, events)

	var (
		mu       sync.Mutex
		warnings []Warning
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.FetchConcurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			merged, warn := p.mergePreferredTimeRanges(gctx, out[i])
			mu.Lock()
			defer mu.Unlock()
			out[i] = merged
			if warn != nil {
				warnings = append(warnings, *warn)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors
	return out, warnings
}
