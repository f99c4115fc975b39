package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
)

func TestProcessEventSingleEventNoMeeting(t *testing.T) {
	store := newFakeStore()
	seed := makeEvent("e1", "u1")
	store.eventsByUser["u1"] = []model.Event{seed}
	plan := &fakePlanner{}
	p := newTestPipeline(store, &fakeIndex{}, &fakeOutcomes{}, plan)

	res, err := p.ProcessEvent(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}
	if res.Branch != BranchCategoryDefaults {
		t.Fatalf("branch = %s", res.Branch)
	}
	if len(res.WorkingSet.Events) != 1 {
		t.Fatalf("working set has %d events, want exactly 1", len(res.WorkingSet.Events))
	}
	if !strings.HasPrefix(res.WorkingSet.Events[0].CategoryID, "classified-") {
		t.Fatal("the classified copy should replace the raw event")
	}
	if len(plan.requests) != 1 {
		t.Fatalf("planner received %d requests, want 1", len(plan.requests))
	}
	req := plan.requests[0]
	if req.HostID != "u1" || req.HostTimezone != "UTC" {
		t.Fatalf("request host = %s tz = %s", req.HostID, req.HostTimezone)
	}
	if len(req.OldEvents) != 1 {
		t.Fatalf("old events = %d, want the pre-classification snapshot", len(req.OldEvents))
	}
}

func TestProcessEventMeetingWithMixedAttendees(t *testing.T) {
	store := newFakeStore()

	seed := makeEvent("host-meeting-ev", "u1")
	seed.MeetingID = "M1"
	hostBusy := makeEvent("host-busy", "u1")
	store.eventsByUser["u1"] = []model.Event{seed, hostBusy}

	u2Meeting := makeEvent("u2-meeting-ev", "u2")
	u2Meeting.MeetingID = "M1"
	u2Busy := makeEvent("u2-busy", "u2")
	store.eventsByUser["u2"] = []model.Event{u2Meeting, u2Busy}

	store.attendeesByMtg["M1"] = []model.Attendee{
		{ID: "a1", UserID: "u1", MeetingID: "M1"},
		{ID: "a2", UserID: "u2", MeetingID: "M1"},
		{ID: "a3", MeetingID: "M1", ExternalAttendee: true, Timezone: "UTC"},
	}
	store.maeByAttendee["a3"] = []model.MeetingAssistEvent{
		{ID: "a3-meeting-ev", AttendeeID: "a3", CalendarID: "cal-3", MeetingID: "M1"},
		{ID: "a3-busy", AttendeeID: "a3", CalendarID: "cal-3"},
	}
	store.mtgRanges["M1"] = []model.PreferredTimeRange{{ID: "r1", StartTime: "09:00", EndTime: "11:00"}}

	plan := &fakePlanner{}
	p := newTestPipeline(store, &fakeIndex{}, &fakeOutcomes{}, plan)

	res, err := p.ProcessEvent(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}
	ws := res.WorkingSet

	if len(ws.MeetingEventsPlus) != 3 {
		t.Fatalf("meeting events = %d, want one per attendee (3)", len(ws.MeetingEventsPlus))
	}
	for _, me := range ws.MeetingEventsPlus {
		if len(me.PreferredTimeRanges) != 1 {
			t.Fatalf("meeting event %s missing proposed time ranges", me.ID)
		}
	}

	if len(ws.InternalAttendees) != 2 || len(ws.ExternalAttendees) != 1 {
		t.Fatalf("attendee partition = %d internal / %d external, want 2/1",
			len(ws.InternalAttendees), len(ws.ExternalAttendees))
	}
	internal := map[string]bool{}
	for _, a := range ws.InternalAttendees {
		internal[a.ID] = true
	}
	for _, a := range ws.ExternalAttendees {
		if internal[a.ID] {
			t.Fatalf("attendee %s appears in both partitions", a.ID)
		}
	}

	// Meeting occurrences live only in the meeting list.
	meetingIDs := map[string]bool{}
	for _, me := range ws.MeetingEventsPlus {
		meetingIDs[me.ID] = true
	}
	for _, e := range ws.Events {
		if meetingIDs[e.ID] {
			t.Fatalf("event %s appears in both events and meeting events", e.ID)
		}
	}

	if len(ws.MeetingAssistEvents) != 1 || ws.MeetingAssistEvents[0].ID != "a3-busy" {
		t.Fatalf("meeting assist events = %v", ws.MeetingAssistEvents)
	}

	// Busy lists: host-busy and u2-busy.
	if len(ws.Events) != 2 {
		t.Fatalf("events = %d, want 2 busy events", len(ws.Events))
	}
	if res.MeetingsExpanded != 1 {
		t.Fatalf("meetings expanded = %d", res.MeetingsExpanded)
	}
}

func TestProcessEventRepeatRunsAreStructurallyIdentical(t *testing.T) {
	store := newFakeStore()

	seed := makeEvent("host-meeting-ev", "u1")
	seed.MeetingID = "M1"
	hostBusy := makeEvent("host-busy", "u1")
	store.eventsByUser["u1"] = []model.Event{seed, hostBusy}

	u2Meeting := makeEvent("u2-meeting-ev", "u2")
	u2Meeting.MeetingID = "M1"
	u2Busy := makeEvent("u2-busy", "u2")
	store.eventsByUser["u2"] = []model.Event{u2Meeting, u2Busy}

	store.attendeesByMtg["M1"] = []model.Attendee{
		{ID: "a1", UserID: "u1", MeetingID: "M1"},
		{ID: "a2", UserID: "u2", MeetingID: "M1"},
	}
	store.mtgRanges["M1"] = []model.PreferredTimeRange{{ID: "r1", StartTime: "09:00", EndTime: "11:00"}}

	p := newTestPipeline(store, &fakeIndex{}, &fakeOutcomes{}, &fakePlanner{})

	first, err := p.ProcessEvent(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ProcessEvent(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}

	if len(first.WorkingSet.Events) == 0 || len(first.WorkingSet.MeetingEventsPlus) == 0 {
		t.Fatalf("scenario produced a trivial working set: %+v", first.WorkingSet)
	}
	if !reflect.DeepEqual(first.WorkingSet, second.WorkingSet) {
		t.Fatalf("reprocessing the same message diverged:\nfirst:  %+v\nsecond: %+v",
			first.WorkingSet, second.WorkingSet)
	}
	if !reflect.DeepEqual(first.Request, second.Request) {
		t.Fatal("reprocessing the same message submitted a different request")
	}
}

func TestProcessEventAttendeeFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	seed := makeEvent("host-meeting-ev", "u1")
	seed.MeetingID = "M1"
	store.eventsByUser["u1"] = []model.Event{seed}

	u2Busy := makeEvent("u2-busy", "u2")
	store.eventsByUser["u2"] = []model.Event{u2Busy}
	store.attendeesByMtg["M1"] = []model.Attendee{
		{ID: "a1", UserID: "u1", MeetingID: "M1"},
		{ID: "a2", UserID: "u2", MeetingID: "M1"},
		{ID: "a3", UserID: "u3", MeetingID: "M1"},
	}
	store.listEventsErr["u3"] = fmt.Errorf("connection refused")

	plan := &fakePlanner{}
	p := newTestPipeline(store, &fakeIndex{}, &fakeOutcomes{}, plan)

	res, err := p.ProcessEvent(context.Background(), seed)
	if err != nil {
		t.Fatalf("one attendee failing must not abort the run: %v", err)
	}

	var attendeeWarnings int
	for _, w := range res.Warnings {
		if w.Code == errors.CodeAttendeeFetch && w.AttendeeID == "a3" {
			attendeeWarnings++
		}
	}
	if attendeeWarnings != 1 {
		t.Fatalf("expected one attendee-fetch warning for a3, got %d (%v)", attendeeWarnings, res.Warnings)
	}

	// The healthy attendee's busy event still made it in.
	var found bool
	for _, e := range res.WorkingSet.Events {
		if e.ID == "u2-busy" {
			found = true
		}
	}
	if !found {
		t.Fatal("healthy attendee's events should survive a sibling failure")
	}
	if len(plan.requests) != 1 {
		t.Fatal("request should still be submitted")
	}
}

func TestProcessEventPlannerFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	seed := makeEvent("e1", "u1")
	store.eventsByUser["u1"] = []model.Event{seed}
	plan := &fakePlanner{err: errors.New(errors.CodePlannerSubmit, "solver returned status 502")}
	p := newTestPipeline(store, &fakeIndex{}, &fakeOutcomes{}, plan)

	res, err := p.ProcessEvent(context.Background(), seed)
	if err != nil {
		t.Fatalf("submission failure is logged, not fatal: %v", err)
	}
	var found bool
	for _, w := range res.Warnings {
		if w.Code == errors.CodePlannerSubmit {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a submission warning")
	}
}

func TestProcessEventRejectsMissingIdentity(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeIndex{}, &fakeOutcomes{}, &fakePlanner{})

	_, err := p.ProcessEvent(context.Background(), model.Event{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, errors.CodeMalformedMessage) {
		t.Fatalf("error code = %s", errors.CodeOf(err))
	}
}

func TestProcessEventAttachesRemindersAndBuffers(t *testing.T) {
	store := newFakeStore()
	seed := makeEvent("e1", "u1")
	store.eventsByUser["u1"] = []model.Event{seed}

	before := makeEvent("buf-before", "u1")
	outcomes := &fakeOutcomes{
		reminders: []model.Reminder{{ID: "r1", EventID: "e1", Minutes: 15}},
		buffers:   model.BufferTimeBlock{BeforeEvent: &before},
	}
	p := newTestPipeline(store, &fakeIndex{}, outcomes, &fakePlanner{})

	res, err := p.ProcessEvent(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.WorkingSet.Reminders) != 1 || res.WorkingSet.Reminders[0].EventID != "e1" {
		t.Fatalf("reminders = %v", res.WorkingSet.Reminders)
	}
	if len(res.WorkingSet.BufferBlocks) != 1 || res.WorkingSet.BufferBlocks[0].BeforeEvent == nil {
		t.Fatalf("buffer blocks = %v", res.WorkingSet.BufferBlocks)
	}
	if len(res.Request.Reminders) != 1 || len(res.Request.BufferBlocks) != 1 {
		t.Fatal("attachments must reach the submitted request")
	}
}
