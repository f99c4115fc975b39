// Package pipeline implements the meeting-aggregation, classification,
// and scheduling-request-assembly pipeline. One invocation owns one
// queue message: it gathers every relevant calendar event for every
// attendee across the classification window, reconciles events that
// represent the same meeting, classifies the triggering event against
// the user's history by nearest-neighbor vector search, and submits a
// consolidated request to the external constraint-based optimizer.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Config controls per-message processing behavior.
type Config struct {
	// MaxExpansionDepth bounds recursive meeting expansion. Revisited
	// meeting ids are no-ops regardless, so this is a second guard.
	MaxExpansionDepth int

	// FetchConcurrency bounds parallel attendee and preference fetches.
	FetchConcurrency int

	// IOTimeout bounds individual collaborator calls.
	IOTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxExpansionDepth: 5,
		FetchConcurrency:  8,
		IOTimeout:         10 * time.Second,
	}
}

// Deps are the external collaborators the pipeline consumes.
type Deps struct {
	Store    interfaces.CalendarStore
	Index    interfaces.VectorIndex
	Embedder interfaces.Embedder
	Outcomes interfaces.OutcomeProcessor
	Planner  interfaces.Planner
}

// Warning is a recovered, non-fatal failure surfaced as a side channel
// instead of being swallowed.
type Warning struct {
	Code       errors.Code
	Message    string
	AttendeeID string
	EventID    string
	MeetingID  string
}

// Result summarizes one message's pipeline run.
type Result struct {
	WorkingSet *model.WorkingSet
	Request    *model.PlannerRequest
	Warnings   []Warning

	EventsGathered   int
	MeetingsExpanded int
	Branch           Branch
}

// Pipeline wires the collaborators into the per-message control flow.
// Safe for concurrent use: all mutable state is per-invocation.
type Pipeline struct {
	store    interfaces.CalendarStore
	index    interfaces.VectorIndex
	embedder interfaces.Embedder
	outcomes interfaces.OutcomeProcessor
	planner  interfaces.Planner

	cfg    Config
	log    *slog.Logger
	tracer trace.Tracer
}

// New creates a pipeline from its collaborators.
func New(deps Deps, cfg Config, log *slog.Logger) *Pipeline {
	if cfg.MaxExpansionDepth <= 0 {
		cfg.MaxExpansionDepth = 5
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 8
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:    deps.Store,
		index:    deps.Index,
		embedder: deps.Embedder,
		outcomes: deps.Outcomes,
		planner:  deps.Planner,
		cfg:      cfg,
		log:      log,
		tracer:   otel.Tracer("schedflow/pipeline"),
	}
}

// ProcessEvent runs the full pipeline for one triggering event.
// Failures of individual attendee fetches are collected as warnings;
// classification and host-calendar failures are fatal for the message.
func (p *Pipeline) ProcessEvent(ctx context.Context, event model.Event) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.ProcessEvent",
		trace.WithAttributes(attribute.String("event.id", event.ID)))
	defer span.End()

	if event.ID == "" || event.UserID == "" {
		return nil, errors.New(errors.CodeMalformedMessage, "event id and user id are required")
	}

	hostID := event.UserID
	hostTimezone := event.Timezone
	windowStart, windowEnd, err := ClassificationWindow(event)
	if err != nil {
		return nil, errors.Wrap(errors.CodeMalformedMessage, "invalid event timezone", err).
			WithContext("timezone", event.Timezone)
	}

	result := &Result{WorkingSet: &model.WorkingSet{}}
	ws := result.WorkingSet

	// Attach the triggering event's preferred time ranges before
	// classification so time preferences survive the branch outcomes.
	event, warn := p.mergePreferredTimeRanges(ctx, event)
	if warn != nil {
		result.Warnings = append(result.Warnings, *warn)
	}

	hostEvents, err := p.store.ListEventsForUser(ctx, hostID, windowStart, windowEnd, hostTimezone, hostTimezone)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCalendarFetch, "list host events", err).
			WithContext("userId", hostID)
	}

	userModified, mergeWarnings := p.mergePreferredTimeRangesAll(ctx, hostEvents)
	result.Warnings = append(result.Warnings, mergeWarnings...)

	// Classify the triggering event against the user's history.
	outcome, branch, classifyWarnings, err := p.classifyEvent(ctx, event)
	result.Warnings = append(result.Warnings, classifyWarnings...)
	if err != nil {
		return result, err
	}
	result.Branch = branch
	if outcome != nil {
		userModified = replaceOrAppendByID(userModified, outcome.Event)
		if len(outcome.Reminders) > 0 {
			ws.Reminders = append(ws.Reminders, model.EventReminders{
				EventID:   outcome.Event.ID,
				Reminders: outcome.Reminders,
			})
		}
		if !outcome.BufferBlocks.Empty() {
			ws.BufferBlocks = append(ws.BufferBlocks, outcome.BufferBlocks)
		}
	}

	ws.Events = append(ws.Events, userModified...)

	// Expand every discovered meeting link, transitively.
	seeds := eventsWithMeeting(userModified)
	seen := append([]model.Event(nil), hostEvents...)
	expWarnings := p.expandMeetings(ctx, windowStart, windowEnd, hostTimezone, seeds, &seen, ws, result)
	result.Warnings = append(result.Warnings, expWarnings...)

	// Final reconciliation: structural dedup of the working set and
	// separation of meeting-linked events from the generic list.
	ws.Events = stripMeetingEvents(dedupEvents(ws.Events), ws.MeetingEventsPlus)
	ws.MeetingEventsPlus = dedupEventsByID(ws.MeetingEventsPlus)
	ws.MeetingAssistEvents = dedupMeetingAssistEvents(ws.MeetingAssistEvents)
	ws.InternalAttendees = dedupAttendees(ws.InternalAttendees)
	ws.ExternalAttendees = dedupAttendees(ws.ExternalAttendees)
	ws.OldEvents = seen

	result.EventsGathered = len(ws.Events)

	req := buildPlannerRequest(hostID, ws, windowStart, windowEnd, hostTimezone)
	result.Request = req

	if err := p.planner.Submit(ctx, req); err != nil {
		// Submission is fire-and-forget: log and surface, never retry.
		p.log.Error("planner submission failed",
			"hostId", hostID, "eventId", event.ID, "error", err)
		result.Warnings = append(result.Warnings, Warning{
			Code:    errors.CodePlannerSubmit,
			Message: err.Error(),
			EventID: event.ID,
		})
	}

	return result, nil
}

// ioCtx bounds one collaborator call when an IO timeout is configured.
func (p *Pipeline) ioCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.IOTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.IOTimeout)
}

// replaceOrAppendByID swaps the classified copy in for its
// pre-classification sibling, keeping exactly one instance per id.
func replaceOrAppendByID(events []model.Event, ev model.Event) []model.Event {
	for i := range events {
		if events[i].ID == ev.ID {
			events[i] = ev
			return events
		}
	}
	return append(events, ev)
}

// eventsWithMeeting returns the events linked to a meeting assist.
func eventsWithMeeting(events []model.Event) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.HasMeeting() {
			out = append(out, e)
		}
	}
	return out
}
