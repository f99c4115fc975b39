package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/schedflow/schedflow/internal/model"
)

// contentHash fingerprints a value by its canonical JSON encoding.
// Marshal cannot fail for the model types used here.
func contentHash(v any) string {
	data, _ := json.Marshal(v)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// dedupEvents removes structural duplicates, keyed by event id plus a
// content hash. First occurrence wins and order is preserved.
func dedupEvents(events []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0:0]
	for _, e := range events {
		key := e.ID + "\x00" + contentHash(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// dedupEventsByID keeps the first occurrence of each event id.
func dedupEventsByID(events []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0:0]
	for _, e := range events {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// dedupAttendees keeps the first occurrence of each attendee id.
func dedupAttendees(attendees []model.Attendee) []model.Attendee {
	seen := make(map[string]struct{}, len(attendees))
	out := attendees[:0:0]
	for _, a := range attendees {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// dedupMeetingAssistEvents removes structural duplicates by id plus
// content hash.
func dedupMeetingAssistEvents(events []model.MeetingAssistEvent) []model.MeetingAssistEvent {
	seen := make(map[string]struct{}, len(events))
	out := events[:0:0]
	for _, e := range events {
		key := e.ID + "\x00" + contentHash(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// filterListed drops events whose id already appears in the growing
// exclusion list, preventing re-aggregation of the same event through
// overlapping attendee calendars.
func filterListed(events, listed []model.Event) []model.Event {
	ids := make(map[string]struct{}, len(listed))
	for _, e := range listed {
		ids[e.ID] = struct{}{}
	}
	out := events[:0:0]
	for _, e := range events {
		if _, ok := ids[e.ID]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// stripMeetingEvents removes from the generic event list any event that
// also appears as a per-attendee meeting instance, so each meeting
// occurrence is represented exactly once.
func stripMeetingEvents(events, meetingEvents []model.Event) []model.Event {
	if len(meetingEvents) == 0 {
		return events
	}
	ids := make(map[string]struct{}, len(meetingEvents))
	for _, e := range meetingEvents {
		ids[e.ID] = struct{}{}
	}
	out := events[:0:0]
	for _, e := range events {
		if _, ok := ids[e.ID]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}
