// Package postgres implements calendar storage on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schedflow/schedflow/internal/model"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Config holds database connection settings.
type Config struct {
	// URL is the connection string (postgres://...).
	URL string

	// MaxConns caps the pool size.
	MaxConns int

	// Timeout bounds individual queries.
	Timeout time.Duration
}

// Store implements interfaces.CalendarStore on a pgx connection pool.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

var _ interfaces.CalendarStore = (*Store)(nil)

// New connects a pool and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{pool: pool, timeout: timeout}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

const eventColumns = `
	id, user_id, calendar_id, COALESCE(event_id, ''),
	COALESCE(title, ''), COALESCE(notes, ''),
	start_date, end_date, COALESCE(timezone, ''), all_day,
	COALESCE(meeting_id, ''), priority, modifiable,
	is_break, is_meeting, is_external_meeting,
	COALESCE(transparency, ''), COALESCE(background_color, ''), COALESCE(duration, 0),
	COALESCE(pre_event_id, ''), COALESCE(post_event_id, ''), COALESCE(for_event_id, ''),
	is_pre_event, is_post_event,
	COALESCE(time_blocking_before, 0), COALESCE(time_blocking_after, 0),
	COALESCE(category_id, ''),
	copy_availability, copy_time_blocking, copy_time_preference, copy_reminders,
	copy_priority_level, copy_modifiable, copy_is_break, copy_is_meeting,
	copy_is_external_meeting, copy_color,
	user_modified_availability, user_modified_time_blocking, user_modified_time_preference,
	user_modified_reminders, user_modified_priority_level, user_modified_categories,
	user_modified_modifiable, user_modified_is_break, user_modified_is_meeting,
	user_modified_is_external_meeting, user_modified_color,
	COALESCE(method, ''), created_date, updated_at, deleted`

func scanEvent(row pgx.Row) (model.Event, error) {
	var (
		e                 model.Event
		tbBefore, tbAfter int
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.CalendarID, &e.EventID,
		&e.Title, &e.Notes,
		&e.StartDate, &e.EndDate, &e.Timezone, &e.AllDay,
		&e.MeetingID, &e.Priority, &e.Modifiable,
		&e.IsBreak, &e.IsMeeting, &e.IsExternalMeeting,
		&e.Transparency, &e.BackgroundColor, &e.Duration,
		&e.PreEventID, &e.PostEventID, &e.ForEventID,
		&e.IsPreEvent, &e.IsPostEvent,
		&tbBefore, &tbAfter,
		&e.CategoryID,
		&e.CopyAvailability, &e.CopyTimeBlocking, &e.CopyTimePreference, &e.CopyReminders,
		&e.CopyPriorityLevel, &e.CopyModifiable, &e.CopyIsBreak, &e.CopyIsMeeting,
		&e.CopyIsExternalMeeting, &e.CopyColor,
		&e.UserModifiedAvailability, &e.UserModifiedTimeBlocking, &e.UserModifiedTimePreference,
		&e.UserModifiedReminders, &e.UserModifiedPriorityLevel, &e.UserModifiedCategories,
		&e.UserModifiedModifiable, &e.UserModifiedIsBreak, &e.UserModifiedIsMeeting,
		&e.UserModifiedIsExternalMeeting, &e.UserModifiedColor,
		&e.Method, &e.CreatedDate, &e.UpdatedAt, &e.Deleted,
	)
	if err != nil {
		return model.Event{}, err
	}
	if tbBefore > 0 || tbAfter > 0 {
		e.TimeBlocking = &model.BufferTimeNumber{BeforeEvent: tbBefore, AfterEvent: tbAfter}
	}
	return e, nil
}

func (s *Store) collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEventsForUser returns an internal user's non-deleted events
// overlapping [start, end), with timezones normalized to the host's.
func (s *Store) ListEventsForUser(ctx context.Context, userID string, start, end time.Time, userTimezone, hostTimezone string) ([]model.Event, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE user_id = $1
		  AND start_date < $3 AND end_date > $2
		  AND NOT deleted
		ORDER BY start_date`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list events for user: %w", err)
	}
	events, err := s.collectEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("list events for user: %w", err)
	}
	for i := range events {
		events[i].Timezone = hostTimezone
	}
	return events, nil
}

// ListMeetingAssistEventsForAttendee returns an external attendee's busy
// events overlapping [start, end), normalized to the host timezone.
func (s *Store) ListMeetingAssistEventsForAttendee(ctx context.Context, attendeeID string, start, end time.Time, attendeeTimezone, hostTimezone string) ([]model.MeetingAssistEvent, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, attendee_id, COALESCE(event_id, ''), calendar_id,
		       COALESCE(summary, ''), COALESCE(notes, ''),
		       start_date, end_date, COALESCE(timezone, ''), all_day,
		       COALESCE(transparency, ''), COALESCE(background_color, ''),
		       COALESCE(meeting_id, ''), external_user,
		       created_date, updated_at
		FROM meeting_assist_events
		WHERE attendee_id = $1
		  AND start_date < $3 AND end_date > $2
		ORDER BY start_date`, attendeeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list meeting assist events: %w", err)
	}
	defer rows.Close()

	var out []model.MeetingAssistEvent
	for rows.Next() {
		var m model.MeetingAssistEvent
		if err := rows.Scan(
			&m.ID, &m.AttendeeID, &m.EventID, &m.CalendarID,
			&m.Summary, &m.Notes,
			&m.StartDate, &m.EndDate, &m.Timezone, &m.AllDay,
			&m.Transparency, &m.BackgroundColor,
			&m.MeetingID, &m.ExternalUser,
			&m.CreatedDate, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("list meeting assist events: %w", err)
		}
		m.Timezone = hostTimezone
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMeetingAssistAttendees returns every attendee of a meeting.
func (s *Store) ListMeetingAssistAttendees(ctx context.Context, meetingID string) ([]model.Attendee, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(user_id, ''), host_id, meeting_id,
		       COALESCE(name, ''), COALESCE(primary_email, ''),
		       COALESCE(timezone, ''), external_attendee,
		       created_date, updated_at
		FROM meeting_assist_attendees
		WHERE meeting_id = $1
		ORDER BY created_date`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list meeting attendees: %w", err)
	}
	defer rows.Close()

	var out []model.Attendee
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.HostID, &a.MeetingID,
			&a.Name, &a.PrimaryEmail,
			&a.Timezone, &a.ExternalAttendee,
			&a.CreatedDate, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("list meeting attendees: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListMeetingPreferredTimeRanges returns the time windows attendees
// proposed for a meeting.
func (s *Store) ListMeetingPreferredTimeRanges(ctx context.Context, meetingID string) ([]model.PreferredTimeRange, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(event_id, ''), COALESCE(user_id, ''),
		       COALESCE(day_of_week, 0), start_time, end_time,
		       created_date, updated_at
		FROM meeting_assist_preferred_time_ranges
		WHERE meeting_id = $1`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list meeting time ranges: %w", err)
	}
	return collectRanges(rows, "list meeting time ranges")
}

// ListPreferredTimeRangesForEvent returns the ranges pinned to an event.
func (s *Store) ListPreferredTimeRangesForEvent(ctx context.Context, eventID string) ([]model.PreferredTimeRange, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, event_id, user_id,
		       COALESCE(day_of_week, 0), start_time, end_time,
		       created_date, updated_at
		FROM preferred_time_ranges
		WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event time ranges: %w", err)
	}
	return collectRanges(rows, "list event time ranges")
}

func collectRanges(rows pgx.Rows, op string) ([]model.PreferredTimeRange, error) {
	defer rows.Close()
	var out []model.PreferredTimeRange
	for rows.Next() {
		var r model.PreferredTimeRange
		if err := rows.Scan(
			&r.ID, &r.EventID, &r.UserID,
			&r.DayOfWeek, &r.StartTime, &r.EndTime,
			&r.CreatedDate, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetEventByID resolves an event by primary key, (nil, nil) if absent.
func (s *Store) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = $1 AND NOT deleted`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

const categoryColumns = `
	c.id, c.user_id, c.name,
	c.copy_availability, c.copy_time_blocking, c.copy_time_preference,
	c.copy_reminders, c.copy_priority_level, c.copy_modifiable, c.copy_is_break,
	c.default_availability,
	COALESCE(c.default_time_blocking_before, 0), COALESCE(c.default_time_blocking_after, 0),
	COALESCE(c.default_time_preference, '[]'::jsonb),
	COALESCE(c.default_reminders, '{}'),
	COALESCE(c.default_priority_level, 0), c.default_modifiable,
	c.default_is_break, c.default_is_meeting, c.default_is_external_meeting,
	COALESCE(c.color, ''),
	c.created_date, c.updated_at, c.deleted`

func collectCategories(rows pgx.Rows, op string) ([]model.Category, error) {
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var (
			c                 model.Category
			tbBefore, tbAfter int
			timePrefs         []model.DefaultTimePreference
		)
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name,
			&c.CopyAvailability, &c.CopyTimeBlocking, &c.CopyTimePreference,
			&c.CopyReminders, &c.CopyPriorityLevel, &c.CopyModifiable, &c.CopyIsBreak,
			&c.DefaultAvailability,
			&tbBefore, &tbAfter,
			&timePrefs,
			&c.DefaultReminders,
			&c.DefaultPriorityLevel, &c.DefaultModifiable,
			&c.DefaultIsBreak, &c.DefaultIsMeeting, &c.DefaultIsExternalMeeting,
			&c.Color,
			&c.CreatedDate, &c.UpdatedAt, &c.Deleted,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if tbBefore > 0 || tbAfter > 0 {
			c.DefaultTimeBlocking = &model.BufferTimeNumber{BeforeEvent: tbBefore, AfterEvent: tbAfter}
		}
		c.DefaultTimePreference = timePrefs
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCategoriesForEvent returns the categories assigned to an event.
func (s *Store) ListCategoriesForEvent(ctx context.Context, eventID string) ([]model.Category, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories c
		JOIN category_events ce ON ce.category_id = c.id
		WHERE ce.event_id = $1 AND NOT c.deleted
		ORDER BY ce.created_date`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event categories: %w", err)
	}
	return collectCategories(rows, "list event categories")
}

// ListUserCategories returns all categories a user has defined.
func (s *Store) ListUserCategories(ctx context.Context, userID string) ([]model.Category, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories c
		WHERE c.user_id = $1 AND NOT c.deleted
		ORDER BY c.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user categories: %w", err)
	}
	return collectCategories(rows, "list user categories")
}

// ListRemindersForEvent returns the reminders stored for an event.
func (s *Store) ListRemindersForEvent(ctx context.Context, eventID, userID string) ([]model.Reminder, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, event_id, COALESCE(timezone, ''),
		       minutes, use_default, created_date, updated_at, deleted
		FROM reminders
		WHERE event_id = $1 AND user_id = $2 AND NOT deleted`, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []model.Reminder
	for rows.Next() {
		var r model.Reminder
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.EventID, &r.Timezone,
			&r.Minutes, &r.UseDefault, &r.CreatedDate, &r.UpdatedAt, &r.Deleted,
		); err != nil {
			return nil, fmt.Errorf("list reminders: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetUserPreferences returns a user's global scheduling preferences,
// (nil, nil) when none are stored.
func (s *Store) GetUserPreferences(ctx context.Context, userID string) (*model.UserPreferences, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var p model.UserPreferences
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, COALESCE(reminders, '{}'),
		       copy_availability, copy_time_blocking, copy_time_preference,
		       copy_reminders, copy_priority_level, copy_modifiable,
		       copy_categories, copy_is_break, copy_is_meeting,
		       copy_is_external_meeting, copy_color,
		       COALESCE(max_work_load_percent, 0), COALESCE(min_number_of_breaks, 0),
		       COALESCE(break_length, 0), back_to_back_meetings,
		       COALESCE(max_number_of_meetings, 0),
		       created_date, updated_at, deleted
		FROM user_preferences
		WHERE user_id = $1 AND NOT deleted`, userID).Scan(
		&p.ID, &p.UserID, &p.Reminders,
		&p.CopyAvailability, &p.CopyTimeBlocking, &p.CopyTimePreference,
		&p.CopyReminders, &p.CopyPriorityLevel, &p.CopyModifiable,
		&p.CopyCategories, &p.CopyIsBreak, &p.CopyIsMeeting,
		&p.CopyIsExternalMeeting, &p.CopyColor,
		&p.MaxWorkLoadPercent, &p.MinNumberOfBreaks,
		&p.BreakLength, &p.BackToBackMeetings,
		&p.MaxNumberOfMeetings,
		&p.CreatedDate, &p.UpdatedAt, &p.Deleted,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user preferences: %w", err)
	}
	return &p, nil
}
