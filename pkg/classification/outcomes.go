// Package classification derives scheduling metadata for an event once
// its classification branch is known: category defaults, values trained
// from a prior similar event, reminders, and buffer-time blocks.
package classification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/errors"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Processor is the default OutcomeProcessor backed by calendar storage.
type Processor struct {
	store interfaces.CalendarStore
	log   *slog.Logger
}

// NewProcessor creates a processor reading categories, reminders, and
// preferences from the given store.
func NewProcessor(store interfaces.CalendarStore, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{store: store, log: log}
}

var _ interfaces.OutcomeProcessor = (*Processor)(nil)

// CategoryDefaults stamps the vector and applies the best lexical
// category match from the user's own categories, if any.
func (p *Processor) CategoryDefaults(ctx context.Context, event model.Event, vector []float32) (*interfaces.ClassificationResult, error) {
	event.Vector = vector

	categories, err := p.store.ListUserCategories(ctx, event.UserID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCalendarFetch, "list user categories", err).
			WithContext("userId", event.UserID)
	}
	match := bestMatchCategory(event, categories)
	if match == nil {
		return &interfaces.ClassificationResult{Event: event}, nil
	}

	applyCategory(&event, *match)
	res := &interfaces.ClassificationResult{Event: event}
	if match.CopyReminders && !event.UserModifiedReminders && len(match.DefaultReminders) > 0 {
		res.Reminders = remindersFromMinutes(res.Event, match.DefaultReminders)
	}
	finishBuffer(res)
	return res, nil
}

// CategoryDefaultsWithUserCategories applies the categories the user
// assigned to the event, in assignment order.
func (p *Processor) CategoryDefaultsWithUserCategories(ctx context.Context, event model.Event, vector []float32) (*interfaces.ClassificationResult, error) {
	event.Vector = vector

	categories, err := p.store.ListCategoriesForEvent(ctx, event.ID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCalendarFetch, "list event categories", err).
			WithContext("eventId", event.ID)
	}

	var minutes []int
	for _, c := range categories {
		applyCategory(&event, c)
		if c.CopyReminders && !event.UserModifiedReminders {
			minutes = append(minutes, c.DefaultReminders...)
		}
	}

	res := &interfaces.ClassificationResult{Event: event}
	if len(minutes) > 0 {
		res.Reminders = remindersFromMinutes(res.Event, dedupInts(minutes))
	}
	finishBuffer(res)
	return res, nil
}

// WithFoundPreviousEvent copies trained values from the matched prior
// event, falling back to the user's global preferences for copy gates
// the prior event leaves unset.
func (p *Processor) WithFoundPreviousEvent(ctx context.Context, event model.Event, previousEventID string) (*interfaces.ClassificationResult, error) {
	previous, prefs, err := p.loadPreviousAndPrefs(ctx, previousEventID, event.UserID)
	if err != nil {
		return nil, err
	}

	applyPrevious(&event, *previous, prefs)
	res := &interfaces.ClassificationResult{Event: event}
	if err := p.copyReminders(ctx, res, *previous, prefs); err != nil {
		return nil, err
	}
	finishBuffer(res)
	return res, nil
}

// WithFoundPreviousEventAndUserCategories merges prior-event values
// with the defaults of the user's manual category assignments. The
// manual categories win where both apply.
func (p *Processor) WithFoundPreviousEventAndUserCategories(ctx context.Context, event model.Event, previousEventID string) (*interfaces.ClassificationResult, error) {
	previous, prefs, err := p.loadPreviousAndPrefs(ctx, previousEventID, event.UserID)
	if err != nil {
		return nil, err
	}

	applyPrevious(&event, *previous, prefs)

	categories, err := p.store.ListCategoriesForEvent(ctx, event.ID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeCalendarFetch, "list event categories", err).
			WithContext("eventId", event.ID)
	}
	var minutes []int
	for _, c := range categories {
		applyCategory(&event, c)
		if c.CopyReminders && !event.UserModifiedReminders {
			minutes = append(minutes, c.DefaultReminders...)
		}
	}

	res := &interfaces.ClassificationResult{Event: event}
	if len(minutes) > 0 {
		res.Reminders = remindersFromMinutes(res.Event, dedupInts(minutes))
	} else if err := p.copyReminders(ctx, res, *previous, prefs); err != nil {
		return nil, err
	}
	finishBuffer(res)
	return res, nil
}

// WithoutCategories copies from the prior event gated purely by the
// user's global preferences, since neither event carries categories.
func (p *Processor) WithoutCategories(ctx context.Context, previous, event model.Event, prefs *model.UserPreferences, userID string) (*interfaces.ClassificationResult, error) {
	if prefs == nil {
		prefs = &model.UserPreferences{}
	}
	applyPreviousWithPrefsGates(&event, previous, prefs)

	res := &interfaces.ClassificationResult{Event: event}
	if prefs.CopyReminders && !event.UserModifiedReminders {
		if len(prefs.Reminders) > 0 {
			res.Reminders = remindersFromMinutes(res.Event, dedupInts(prefs.Reminders))
		} else {
			stored, err := p.store.ListRemindersForEvent(ctx, previous.ID, userID)
			if err != nil {
				return nil, errors.Wrap(errors.CodeCalendarFetch, "list previous event reminders", err).
					WithContext("previousEventId", previous.ID)
			}
			res.Reminders = remindersFromMinutes(res.Event, reminderMinutes(stored))
		}
	}
	finishBuffer(res)
	return res, nil
}

func (p *Processor) loadPreviousAndPrefs(ctx context.Context, previousEventID, userID string) (*model.Event, *model.UserPreferences, error) {
	previous, err := p.store.GetEventByID(ctx, previousEventID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeCalendarFetch, "load previous event", err).
			WithContext("previousEventId", previousEventID)
	}
	if previous == nil {
		return nil, nil, errors.New(errors.CodeMissingPreviousEvent, "previous event not found").
			WithContext("previousEventId", previousEventID)
	}
	// The event row carries no ranges; the time-preference copy needs them.
	ranges, err := p.store.ListPreferredTimeRangesForEvent(ctx, previousEventID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeCalendarFetch, "list previous event time ranges", err).
			WithContext("previousEventId", previousEventID)
	}
	previous.PreferredTimeRanges = ranges
	prefs, err := p.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeCalendarFetch, "load user preferences", err).
			WithContext("userId", userID)
	}
	if prefs == nil {
		prefs = &model.UserPreferences{}
	}
	return previous, prefs, nil
}

// copyReminders carries the prior event's stored reminders forward when
// the copy gate is open.
func (p *Processor) copyReminders(ctx context.Context, res *interfaces.ClassificationResult, previous model.Event, prefs *model.UserPreferences) error {
	if res.Event.UserModifiedReminders {
		return nil
	}
	if !previous.CopyReminders && !prefs.CopyReminders {
		return nil
	}
	stored, err := p.store.ListRemindersForEvent(ctx, previous.ID, res.Event.UserID)
	if err != nil {
		return errors.Wrap(errors.CodeCalendarFetch, "list previous event reminders", err).
			WithContext("previousEventId", previous.ID)
	}
	if minutes := reminderMinutes(stored); len(minutes) > 0 {
		res.Reminders = remindersFromMinutes(res.Event, minutes)
	}
	return nil
}

// applyCategory copies a category's defaults onto the event. Each copy
// gate respects the event's user-override flag.
func applyCategory(ev *model.Event, c model.Category) {
	ev.CategoryID = c.ID
	if c.CopyAvailability && !ev.UserModifiedAvailability {
		if c.DefaultAvailability {
			ev.Transparency = model.TransparencyTransparent
		} else {
			ev.Transparency = model.TransparencyOpaque
		}
	}
	if c.CopyTimeBlocking && !ev.UserModifiedTimeBlocking && c.DefaultTimeBlocking != nil {
		tb := *c.DefaultTimeBlocking
		ev.TimeBlocking = &tb
	}
	if c.CopyTimePreference && !ev.UserModifiedTimePreference && len(c.DefaultTimePreference) > 0 {
		ev.PreferredTimeRanges = rangesFromDefaults(ev, c.DefaultTimePreference)
	}
	if c.CopyPriorityLevel && !ev.UserModifiedPriorityLevel && c.DefaultPriorityLevel > 0 {
		ev.Priority = c.DefaultPriorityLevel
	}
	if c.CopyModifiable && !ev.UserModifiedModifiable {
		ev.Modifiable = c.DefaultModifiable
	}
	if c.CopyIsBreak && !ev.UserModifiedIsBreak {
		ev.IsBreak = c.DefaultIsBreak
	}
	if c.Color != "" && !ev.UserModifiedColor {
		ev.BackgroundColor = c.Color
	}
	if c.DefaultIsMeeting && !ev.UserModifiedIsMeeting {
		ev.IsMeeting = true
	}
	if c.DefaultIsExternalMeeting && !ev.UserModifiedIsExternalMeeting {
		ev.IsExternalMeeting = true
	}
}

// applyPrevious copies trained values from the prior event. A copy gate
// is open when either the prior event or the user's global preferences
// set it, and the event's own override flag does not pin the field.
func applyPrevious(ev *model.Event, prev model.Event, prefs *model.UserPreferences) {
	gate := func(prevFlag, prefFlag, userModified bool) bool {
		return (prevFlag || prefFlag) && !userModified
	}
	if gate(prev.CopyAvailability, prefs.CopyAvailability, ev.UserModifiedAvailability) && prev.Transparency != "" {
		ev.Transparency = prev.Transparency
	}
	if gate(prev.CopyTimeBlocking, prefs.CopyTimeBlocking, ev.UserModifiedTimeBlocking) && prev.TimeBlocking != nil {
		tb := *prev.TimeBlocking
		ev.TimeBlocking = &tb
	}
	if gate(prev.CopyTimePreference, prefs.CopyTimePreference, ev.UserModifiedTimePreference) && len(prev.PreferredTimeRanges) > 0 {
		ev.PreferredTimeRanges = rebindRanges(ev, prev.PreferredTimeRanges)
	}
	if gate(prev.CopyPriorityLevel, prefs.CopyPriorityLevel, ev.UserModifiedPriorityLevel) && prev.Priority > 0 {
		ev.Priority = prev.Priority
	}
	if gate(prev.CopyModifiable, prefs.CopyModifiable, ev.UserModifiedModifiable) {
		ev.Modifiable = prev.Modifiable
	}
	if gate(prev.CopyIsBreak, prefs.CopyIsBreak, ev.UserModifiedIsBreak) {
		ev.IsBreak = prev.IsBreak
	}
	if gate(prev.CopyIsMeeting, prefs.CopyIsMeeting, ev.UserModifiedIsMeeting) {
		ev.IsMeeting = prev.IsMeeting
	}
	if gate(prev.CopyIsExternalMeeting, prefs.CopyIsExternalMeeting, ev.UserModifiedIsExternalMeeting) {
		ev.IsExternalMeeting = prev.IsExternalMeeting
	}
	if gate(prev.CopyColor, prefs.CopyColor, ev.UserModifiedColor) && prev.BackgroundColor != "" {
		ev.BackgroundColor = prev.BackgroundColor
	}
	if prefs.CopyCategories && !ev.UserModifiedCategories && prev.CategoryID != "" {
		ev.CategoryID = prev.CategoryID
	}
}

// applyPreviousWithPrefsGates is applyPrevious with only the user's
// global preference gates consulted.
func applyPreviousWithPrefsGates(ev *model.Event, prev model.Event, prefs *model.UserPreferences) {
	stripped := prev
	stripped.CopyAvailability = false
	stripped.CopyTimeBlocking = false
	stripped.CopyTimePreference = false
	stripped.CopyPriorityLevel = false
	stripped.CopyModifiable = false
	stripped.CopyIsBreak = false
	stripped.CopyIsMeeting = false
	stripped.CopyIsExternalMeeting = false
	stripped.CopyColor = false
	applyPrevious(ev, stripped, prefs)
}

// remindersFromMinutes builds reminder records for the event, one per
// lead time.
func remindersFromMinutes(ev model.Event, minutes []int) []model.Reminder {
	now := time.Now().UTC()
	out := make([]model.Reminder, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, model.Reminder{
			ID:          uuid.NewString(),
			UserID:      ev.UserID,
			EventID:     ev.ID,
			Timezone:    ev.Timezone,
			Minutes:     m,
			CreatedDate: now,
			UpdatedAt:   now,
		})
	}
	return out
}

func reminderMinutes(reminders []model.Reminder) []int {
	var out []int
	for _, r := range reminders {
		if r.Deleted {
			continue
		}
		out = append(out, r.Minutes)
	}
	return dedupInts(out)
}

func dedupInts(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := in[:0:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// rangesFromDefaults materializes category time preferences as ranges
// bound to the event.
func rangesFromDefaults(ev *model.Event, defaults []model.DefaultTimePreference) []model.PreferredTimeRange {
	now := time.Now().UTC()
	out := make([]model.PreferredTimeRange, 0, len(defaults))
	for _, d := range defaults {
		out = append(out, model.PreferredTimeRange{
			ID:          uuid.NewString(),
			EventID:     ev.ID,
			UserID:      ev.UserID,
			DayOfWeek:   d.DayOfWeek,
			StartTime:   d.StartTime,
			EndTime:     d.EndTime,
			CreatedDate: now,
			UpdatedAt:   now,
		})
	}
	return out
}

// rebindRanges copies another event's ranges onto this one with fresh
// identities.
func rebindRanges(ev *model.Event, ranges []model.PreferredTimeRange) []model.PreferredTimeRange {
	now := time.Now().UTC()
	out := make([]model.PreferredTimeRange, 0, len(ranges))
	for _, r := range ranges {
		r.ID = uuid.NewString()
		r.EventID = ev.ID
		r.UserID = ev.UserID
		r.CreatedDate = now
		r.UpdatedAt = now
		out = append(out, r)
	}
	return out
}

// finishBuffer materializes the event's buffer minutes as synthetic
// pre/post events and links them bidirectionally.
func finishBuffer(res *interfaces.ClassificationResult) {
	ev := &res.Event
	if ev.TimeBlocking == nil {
		return
	}
	now := time.Now().UTC()
	if ev.TimeBlocking.BeforeEvent > 0 && ev.PreEventID == "" {
		id := uuid.NewString() + "#" + ev.CalendarID
		before := model.Event{
			ID:           id,
			UserID:       ev.UserID,
			CalendarID:   ev.CalendarID,
			Title:        "Buffer time",
			StartDate:    ev.StartDate.Add(-time.Duration(ev.TimeBlocking.BeforeEvent) * time.Minute),
			EndDate:      ev.StartDate,
			Timezone:     ev.Timezone,
			Priority:     1,
			Modifiable:   true,
			IsPreEvent:   true,
			ForEventID:   ev.ID,
			Transparency: model.TransparencyOpaque,
			Method:       "create",
			CreatedDate:  now,
			UpdatedAt:    now,
		}
		ev.PreEventID = id
		res.BufferBlocks.BeforeEvent = &before
	}
	if ev.TimeBlocking.AfterEvent > 0 && ev.PostEventID == "" {
		id := uuid.NewString() + "#" + ev.CalendarID
		after := model.Event{
			ID:           id,
			UserID:       ev.UserID,
			CalendarID:   ev.CalendarID,
			Title:        "Buffer time",
			StartDate:    ev.EndDate,
			EndDate:      ev.EndDate.Add(time.Duration(ev.TimeBlocking.AfterEvent) * time.Minute),
			Timezone:     ev.Timezone,
			Priority:     1,
			Modifiable:   true,
			IsPostEvent:  true,
			ForEventID:   ev.ID,
			Transparency: model.TransparencyOpaque,
			Method:       "create",
			CreatedDate:  now,
			UpdatedAt:    now,
		}
		ev.PostEventID = id
		res.BufferBlocks.AfterEvent = &after
	}
}

// bestMatchCategory picks the category whose name appears in the event
// title or notes. Longest name wins ties.
func bestMatchCategory(ev model.Event, categories []model.Category) *model.Category {
	text := strings.ToLower(ev.Title + " " + ev.Notes)
	var best *model.Category
	for i := range categories {
		c := &categories[i]
		if c.Deleted || c.Name == "" {
			continue
		}
		if !strings.Contains(text, strings.ToLower(c.Name)) {
			continue
		}
		if best == nil || len(c.Name) > len(best.Name) {
			best = c
		}
	}
	return best
}
