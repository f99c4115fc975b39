package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
)

// resolveResult is the output of resolving one meeting's attendees.
type resolveResult struct {
	// Events are the attendees' busy events, preference-merged and
	// filtered against the exclusion list.
	Events []model.Event
	// MeetingEventsPlus holds one per-attendee instance of the meeting
	// occurrence, overlaid with the meeting's proposed time ranges.
	MeetingEventsPlus []model.Event
	// MeetingAssistEvents are external attendees' raw busy records.
	MeetingAssistEvents []model.MeetingAssistEvent

	InternalAttendees []model.Attendee
	ExternalAttendees []model.Attendee

	Warnings []Warning
}

// resolveMeeting gathers calendars for every attendee of a meeting.
// The attendee list fetch is fatal for the meeting; per-attendee
// calendar failures skip that attendee and surface as warnings. The
// internal/external partition is disjoint and complete.
func (p *Pipeline) resolveMeeting(ctx context.Context, meetingID string, meetingEvent model.Event, windowStart, windowEnd time.Time, hostTimezone string, listed []model.Event) (*resolveResult, error) {
	attendees, err := p.store.ListMeetingAssistAttendees(ctx, meetingID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeAttendeeFetch, "list meeting attendees", err).
			WithContext("meetingId", meetingID)
	}

	res := &resolveResult{}
	for _, a := range attendees {
		if a.ExternalAttendee {
			res.ExternalAttendees = append(res.ExternalAttendees, a)
		} else {
			res.InternalAttendees = append(res.InternalAttendees, a)
		}
	}

	var (
		mu            sync.Mutex
		busy          []model.Event
		meetingEvents = []model.Event{meetingEvent}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.FetchConcurrency)

	for _, a := range res.ExternalAttendees {
		a := a
		g.Go(func() error {
			tz := a.Timezone
			if tz == "" {
				tz = hostTimezone
			}
			maes, err := p.store.ListMeetingAssistEventsForAttendee(gctx, a.ID, windowStart, windowEnd, tz, hostTimezone)
			if err != nil {
				mu.Lock()
				res.Warnings = append(res.Warnings, Warning{
					Code:       errors.CodeAttendeeFetch,
					Message:    "list attendee events: " + err.Error(),
					AttendeeID: a.ID,
					MeetingID:  meetingID,
				})
				mu.Unlock()
				return nil
			}
			var occurrence *model.Event
			rest := maes[:0:0]
			for i := range maes {
				if maes[i].MeetingID == meetingID {
					ev := maes[i].ToEvent(a.UserID)
					occurrence = &ev
					continue
				}
				rest = append(rest, maes[i])
			}
			mu.Lock()
			if occurrence != nil {
				meetingEvents = append(meetingEvents, *occurrence)
			}
			res.MeetingAssistEvents = append(res.MeetingAssistEvents, rest...)
			mu.Unlock()
			return nil
		})
	}

	for _, a := range res.InternalAttendees {
		a := a
		g.Go(func() error {
			tz := a.Timezone
			if tz == "" {
				tz = hostTimezone
			}
			events, err := p.store.ListEventsForUser(gctx, a.UserID, windowStart, windowEnd, tz, hostTimezone)
			if err != nil {
				mu.Lock()
				res.Warnings = append(res.Warnings, Warning{
					Code:       errors.CodeAttendeeFetch,
					Message:    "list attendee events: " + err.Error(),
					AttendeeID: a.ID,
					MeetingID:  meetingID,
				})
				mu.Unlock()
				return nil
			}
			var occurrences, rest []model.Event
			for _, e := range events {
				if e.MeetingID == meetingID {
					occurrences = append(occurrences, e)
					continue
				}
				rest = append(rest, e)
			}
			mu.Lock()
			meetingEvents = append(meetingEvents, occurrences...)
			busy = append(busy, rest...)
			mu.Unlock()
			return nil
		})
	}

	g.Wait() //nolint:errcheck // per-attendee failures become warnings

	// Overlay the meeting's proposed time ranges onto every attendee
	// instance of the occurrence. One instance per event id.
	meetingEvents = dedupEventsByID(meetingEvents)
	ranges, err := p.store.ListMeetingPreferredTimeRanges(ctx, meetingID)
	if err != nil {
		res.Warnings = append(res.Warnings, Warning{
			Code:      errors.CodeCalendarFetch,
			Message:   "list meeting time ranges: " + err.Error(),
			MeetingID: meetingID,
		})
	}
	for i := range meetingEvents {
		if len(ranges) > 0 {
			meetingEvents[i].PreferredTimeRanges = append([]model.PreferredTimeRange(nil), ranges...)
		}
	}
	res.MeetingEventsPlus = meetingEvents

	merged, warnings := p.mergePreferredTimeRangesAll(ctx, busy)
	res.Warnings = append(res.Warnings, warnings...)
	res.Events = filterListed(merged, listed)

	return res, nil
}
