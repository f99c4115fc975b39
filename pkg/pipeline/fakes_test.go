package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// fakeStore is a hand-rolled CalendarStore with per-method hooks. Nil
// hooks return empty results.
type fakeStore struct {
	mu sync.Mutex

	eventsByUser    map[string][]model.Event
	maeByAttendee   map[string][]model.MeetingAssistEvent
	attendeesByMtg  map[string][]model.Attendee
	mtgRanges       map[string][]model.PreferredTimeRange
	eventRanges     map[string][]model.PreferredTimeRange
	eventsByID      map[string]*model.Event
	categoriesByEvt map[string][]model.Category
	categoriesByUsr map[string][]model.Category
	remindersByEvt  map[string][]model.Reminder
	prefsByUser     map[string]*model.UserPreferences

	listEventsErr map[string]error // keyed by userID
	listMAEErr    map[string]error // keyed by attendeeID
	getEventHook  func(id string) (*model.Event, error)

	getEventCalls  map[string]int
	getPrefsCalls  int
	listEventCalls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		eventsByUser:    map[string][]model.Event{},
		maeByAttendee:   map[string][]model.MeetingAssistEvent{},
		attendeesByMtg:  map[string][]model.Attendee{},
		mtgRanges:       map[string][]model.PreferredTimeRange{},
		eventRanges:     map[string][]model.PreferredTimeRange{},
		eventsByID:      map[string]*model.Event{},
		categoriesByEvt: map[string][]model.Category{},
		categoriesByUsr: map[string][]model.Category{},
		remindersByEvt:  map[string][]model.Reminder{},
		prefsByUser:     map[string]*model.UserPreferences{},
		listEventsErr:   map[string]error{},
		listMAEErr:      map[string]error{},
		getEventCalls:   map[string]int{},
		listEventCalls:  map[string]int{},
	}
}

func (f *fakeStore) ListEventsForUser(_ context.Context, userID string, _, _ time.Time, _, _ string) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listEventCalls[userID]++
	if err := f.listEventsErr[userID]; err != nil {
		return nil, err
	}
	return append([]model.Event(nil), f.eventsByUser[userID]...), nil
}

func (f *fakeStore) ListMeetingAssistEventsForAttendee(_ context.Context, attendeeID string, _, _ time.Time, _, _ string) ([]model.MeetingAssistEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listMAEErr[attendeeID]; err != nil {
		return nil, err
	}
	return append([]model.MeetingAssistEvent(nil), f.maeByAttendee[attendeeID]...), nil
}

func (f *fakeStore) ListMeetingAssistAttendees(_ context.Context, meetingID string) ([]model.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Attendee(nil), f.attendeesByMtg[meetingID]...), nil
}

func (f *fakeStore) ListMeetingPreferredTimeRanges(_ context.Context, meetingID string) ([]model.PreferredTimeRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PreferredTimeRange(nil), f.mtgRanges[meetingID]...), nil
}

func (f *fakeStore) ListPreferredTimeRangesForEvent(_ context.Context, eventID string) ([]model.PreferredTimeRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PreferredTimeRange(nil), f.eventRanges[eventID]...), nil
}

func (f *fakeStore) GetEventByID(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getEventCalls[id]++
	if f.getEventHook != nil {
		return f.getEventHook(id)
	}
	if ev, ok := f.eventsByID[id]; ok {
		cp := *ev
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ListCategoriesForEvent(_ context.Context, eventID string) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Category(nil), f.categoriesByEvt[eventID]...), nil
}

func (f *fakeStore) ListUserCategories(_ context.Context, userID string) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Category(nil), f.categoriesByUsr[userID]...), nil
}

func (f *fakeStore) ListRemindersForEvent(_ context.Context, eventID, _ string) ([]model.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Reminder(nil), f.remindersByEvt[eventID]...), nil
}

func (f *fakeStore) GetUserPreferences(_ context.Context, userID string) (*model.UserPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getPrefsCalls++
	if p, ok := f.prefsByUser[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return &model.UserPreferences{UserID: userID}, nil
}

// fakeIndex is an in-memory VectorIndex with call counting.
type fakeIndex struct {
	mu      sync.Mutex
	hit     *interfaces.SearchHit
	err     error
	deletes []string
	upserts []string
}

func (f *fakeIndex) NearestNeighbor(_ context.Context, _ string, _ []float32) (*interfaces.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.hit == nil {
		return nil, nil
	}
	cp := *f.hit
	return &cp, nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, id, _ string, _ []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, id)
	return nil
}

// fakeEmbedder returns a fixed vector.
type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ model.Event) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return f.vector, nil
}

// fakeOutcomes records which branch method ran and passes the event
// through, optionally attaching reminders and buffers.
type fakeOutcomes struct {
	mu        sync.Mutex
	calls     []string
	reminders []model.Reminder
	buffers   model.BufferTimeBlock
	prevSeen  *model.Event
	err       error
}

func (f *fakeOutcomes) record(name string, ev model.Event) (*interfaces.ClassificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	ev.CategoryID = "classified-" + name
	return &interfaces.ClassificationResult{
		Event:        ev,
		Reminders:    f.reminders,
		BufferBlocks: f.buffers,
	}, nil
}

func (f *fakeOutcomes) CategoryDefaults(_ context.Context, ev model.Event, _ []float32) (*interfaces.ClassificationResult, error) {
	return f.record("defaults", ev)
}

func (f *fakeOutcomes) CategoryDefaultsWithUserCategories(_ context.Context, ev model.Event, _ []float32) (*interfaces.ClassificationResult, error) {
	return f.record("user_categories", ev)
}

func (f *fakeOutcomes) WithFoundPreviousEvent(_ context.Context, ev model.Event, _ string) (*interfaces.ClassificationResult, error) {
	return f.record("previous", ev)
}

func (f *fakeOutcomes) WithFoundPreviousEventAndUserCategories(_ context.Context, ev model.Event, _ string) (*interfaces.ClassificationResult, error) {
	return f.record("previous_user_categories", ev)
}

func (f *fakeOutcomes) WithoutCategories(_ context.Context, prev, ev model.Event, _ *model.UserPreferences, _ string) (*interfaces.ClassificationResult, error) {
	f.mu.Lock()
	cp := prev
	f.prevSeen = &cp
	f.mu.Unlock()
	return f.record("without_categories", ev)
}

// fakePlanner captures submitted requests.
type fakePlanner struct {
	mu       sync.Mutex
	requests []*model.PlannerRequest
	err      error
}

func (f *fakePlanner) Submit(_ context.Context, req *model.PlannerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, req)
	return nil
}

func newTestPipeline(store *fakeStore, index *fakeIndex, outcomes *fakeOutcomes, plan *fakePlanner) *Pipeline {
	return New(Deps{
		Store:    store,
		Index:    index,
		Embedder: &fakeEmbedder{},
		Outcomes: outcomes,
		Planner:  plan,
	}, DefaultConfig(), nil)
}
