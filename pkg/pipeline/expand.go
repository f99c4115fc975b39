package pipeline

import (
	"context"
	"time"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
)

// expandMeetings resolves meeting links level by level. Newly gathered
// attendee events can reference further meetings; those become the next
// level's seeds. A visited set makes revisiting a meeting id a no-op,
// and maxDepth bounds the walk even across pathological data. Events
// accumulate into seen, which doubles as the exclusion list so shared
// calendars are never aggregated twice.
func (p *Pipeline) expandMeetings(ctx context.Context, windowStart, windowEnd time.Time, hostTimezone string, seeds []model.Event, seen *[]model.Event, ws *model.WorkingSet, result *Result) []Warning {
	var warnings []Warning
	visited := make(map[string]struct{})

	level := seeds
	for depth := 0; len(level) > 0; depth++ {
		if depth >= p.cfg.MaxExpansionDepth {
			warnings = append(warnings, Warning{
				Code:    errors.CodeExpansionTruncated,
				Message: "meeting expansion depth limit reached",
			})
			p.log.Warn("meeting expansion truncated",
				"depth", depth, "pending", len(level))
			break
		}

		var next []model.Event
		for _, seed := range level {
			if _, ok := visited[seed.MeetingID]; ok {
				continue
			}
			visited[seed.MeetingID] = struct{}{}

			res, err := p.resolveMeeting(ctx, seed.MeetingID, seed, windowStart, windowEnd, hostTimezone, *seen)
			if err != nil {
				warnings = append(warnings, Warning{
					Code:      errors.CodeOf(err),
					Message:   err.Error(),
					MeetingID: seed.MeetingID,
					EventID:   seed.ID,
				})
				continue
			}
			result.MeetingsExpanded++
			warnings = append(warnings, res.Warnings...)

			*seen = append(*seen, res.Events...)
			ws.Events = append(ws.Events, res.Events...)
			ws.MeetingEventsPlus = append(ws.MeetingEventsPlus, res.MeetingEventsPlus...)
			ws.MeetingAssistEvents = append(ws.MeetingAssistEvents, res.MeetingAssistEvents...)
			ws.InternalAttendees = append(ws.InternalAttendees, res.InternalAttendees...)
			ws.ExternalAttendees = append(ws.ExternalAttendees, res.ExternalAttendees...)

			for _, e := range res.Events {
				if !e.HasMeeting() {
					continue
				}
				if _, ok := visited[e.MeetingID]; ok {
					continue
				}
				next = append(next, e)
			}
		}
		level = next
	}

	return warnings
}
