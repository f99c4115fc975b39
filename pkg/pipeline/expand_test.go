package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
)

func expandWindow() (time.Time, time.Time) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return start, time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
}

func TestExpandMeetingsTerminatesOnCycle(t *testing.T) {
	store := newFakeStore()

	// M1 and M2 reference each other through their attendees' calendars.
	m1Seed := makeEvent("m1-ev", "u1")
	m1Seed.MeetingID = "M1"
	e2 := makeEvent("e2", "u2")
	e2.MeetingID = "M2"
	eLoop := makeEvent("e-loop", "u1")
	eLoop.MeetingID = "M1"

	store.attendeesByMtg["M1"] = []model.Attendee{{ID: "a2", UserID: "u2", MeetingID: "M1"}}
	store.eventsByUser["u2"] = []model.Event{e2}
	store.attendeesByMtg["M2"] = []model.Attendee{{ID: "a1", UserID: "u1", MeetingID: "M2"}}
	store.eventsByUser["u1"] = []model.Event{eLoop}

	p := newTestPipeline(store, &fakeIndex{}, &fakeOutcomes{}, &fakePlanner{})
	ws := &model.WorkingSet{}
	result := &Result{WorkingSet: ws}
	seen := []model.Event{m1Seed}

	windowStart, windowEnd := expandWindow()
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.expandMeetings(context.Background(), windowStart, windowEnd, "UTC", []model.Event{m1Seed}, &seen, ws, result)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("expansion did not terminate on a meeting cycle")
	}

	if result.MeetingsExpanded != 2 {
		t.Fatalf("expanded %d meetings, want 2 (M1 and M2 once each)", result.MeetingsExpanded)
	}
}

func TestExpandMeetingsRespectsDepthLimit(t *testing.T) {
	store := newFakeStore()

	// A chain M0 -> M1 -> M2 -> ... deeper than the limit.
	for i := 0; i < 10; i++ {
		mtg := meetingID(i)
		next := makeEvent(eventID(i+1), userID(i+1))
		next.MeetingID = meetingID(i + 1)
		store.attendeesByMtg[mtg] = []model.Attendee{{ID: "a" + userID(i+1), UserID: userID(i + 1), MeetingID: mtg}}
		store.eventsByUser[userID(i+1)] = []model.Event{next}
	}

	p := New(Deps{
		Store:    store,
		Index:    &fakeIndex{},
		Embedder: &fakeEmbedder{},
		Outcomes: &fakeOutcomes{},
		Planner:  &fakePlanner{},
	}, Config{MaxExpansionDepth: 3, FetchConcurrency: 2}, nil)

	seed := makeEvent(eventID(0), userID(0))
	seed.MeetingID = meetingID(0)
	ws := &model.WorkingSet{}
	result := &Result{WorkingSet: ws}
	seen := []model.Event{seed}

	windowStart, windowEnd := expandWindow()
	warnings := p.expandMeetings(context.Background(), windowStart, windowEnd, "UTC", []model.Event{seed}, &seen, ws, result)

	if result.MeetingsExpanded != 3 {
		t.Fatalf("expanded %d meetings, want 3 (depth limit)", result.MeetingsExpanded)
	}
	if len(warnings) == 0 {
		t.Fatal("expected a truncation warning")
	}
	if warnings[0].Code != errors.CodeExpansionTruncated {
		t.Fatalf("truncation warning code = %s, want %s", warnings[0].Code, errors.CodeExpansionTruncated)
	}
}

func TestExpandMeetingsRevisitIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.attendeesByMtg["M1"] = []model.Attendee{{ID: "a2", UserID: "u2", MeetingID: "M1"}}

	p := newTestPipeline(store, &fakeIndex{}, &fakeOutcomes{}, &fakePlanner{})
	seedA := makeEvent("ev-a", "u1")
	seedA.MeetingID = "M1"
	seedB := makeEvent("ev-b", "u3")
	seedB.MeetingID = "M1"
	ws := &model.WorkingSet{}
	result := &Result{WorkingSet: ws}
	seen := []model.Event{seedA, seedB}

	windowStart, windowEnd := expandWindow()
	p.expandMeetings(context.Background(), windowStart, windowEnd, "UTC", []model.Event{seedA, seedB}, &seen, ws, result)

	if result.MeetingsExpanded != 1 {
		t.Fatalf("meeting resolved %d times, want 1", result.MeetingsExpanded)
	}
}

func meetingID(i int) string { return fmt.Sprintf("M%d", i) }
func userID(i int) string    { return fmt.Sprintf("u%d", i) }
func eventID(i int) string   { return fmt.Sprintf("ev%d", i) }
