package pipeline

import (
	"testing"
	"time"

	"github.com/schedflow/schedflow/internal/model"
)

func makeEvent(id, userID string) model.Event {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return model.Event{
		ID:        id,
		UserID:    userID,
		StartDate: start,
		EndDate:   start.Add(30 * time.Minute),
		Timezone:  "UTC",
	}
}

func TestDedupEventsRemovesStructuralDuplicates(t *testing.T) {
	a := makeEvent("e1", "u1")
	b := makeEvent("e2", "u1")
	got := dedupEvents([]model.Event{a, b, a, b, a})
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e2" {
		t.Fatalf("order not preserved: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestDedupEventsKeepsModifiedCopies(t *testing.T) {
	a := makeEvent("e1", "u1")
	modified := a
	modified.CategoryID = "cat-1"
	got := dedupEvents([]model.Event{a, modified})
	if len(got) != 2 {
		t.Fatalf("copies with different content share an id but are distinct: got %d", len(got))
	}
}

func TestDedupEventsIdempotent(t *testing.T) {
	events := []model.Event{makeEvent("e1", "u1"), makeEvent("e1", "u1"), makeEvent("e2", "u1")}
	once := dedupEvents(events)
	twice := dedupEvents(once)
	if len(once) != len(twice) {
		t.Fatalf("second pass changed result: %d vs %d", len(once), len(twice))
	}
}

func TestDedupAttendeesByID(t *testing.T) {
	got := dedupAttendees([]model.Attendee{
		{ID: "a1", Name: "first"},
		{ID: "a2"},
		{ID: "a1", Name: "second"},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(got))
	}
	if got[0].Name != "first" {
		t.Fatalf("first occurrence should win, got %q", got[0].Name)
	}
}

func TestFilterListed(t *testing.T) {
	listed := []model.Event{makeEvent("e1", "u1")}
	got := filterListed([]model.Event{makeEvent("e1", "u2"), makeEvent("e2", "u2")}, listed)
	if len(got) != 1 || got[0].ID != "e2" {
		t.Fatalf("expected only e2, got %v", got)
	}
}

func TestStripMeetingEvents(t *testing.T) {
	meeting := makeEvent("m-ev", "u1")
	events := []model.Event{makeEvent("e1", "u1"), meeting}
	got := stripMeetingEvents(events, []model.Event{meeting})
	if len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("meeting event should be stripped from generic list, got %v", got)
	}
}

func TestDedupMeetingAssistEvents(t *testing.T) {
	a := model.MeetingAssistEvent{ID: "mae1", AttendeeID: "a1"}
	b := model.MeetingAssistEvent{ID: "mae2", AttendeeID: "a1"}
	got := dedupMeetingAssistEvents([]model.MeetingAssistEvent{a, b, a})
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
}
