// Package interfaces defines the narrow contracts the pipeline consumes
// its external collaborators through: calendar storage, the vector
// index, the embedding service, classification outcomes, the queue,
// the optimizer, and the failure archive.
package interfaces

import (
	"context"
	"time"

	"github.com/schedflow/schedflow/internal/model"
)

// CalendarStore provides read access to calendar and preference data.
// Implementations must be safe for concurrent use.
type CalendarStore interface {
	// ListEventsForUser returns an internal user's events overlapping
	// [start, end), with timezone fields adjusted to hostTimezone.
	ListEventsForUser(ctx context.Context, userID string, start, end time.Time, userTimezone, hostTimezone string) ([]model.Event, error)

	// ListMeetingAssistEventsForAttendee returns an external attendee's
	// busy events overlapping [start, end), adjusted to hostTimezone.
	ListMeetingAssistEventsForAttendee(ctx context.Context, attendeeID string, start, end time.Time, attendeeTimezone, hostTimezone string) ([]model.MeetingAssistEvent, error)

	// ListMeetingAssistAttendees returns every attendee of a meeting.
	ListMeetingAssistAttendees(ctx context.Context, meetingID string) ([]model.Attendee, error)

	// ListMeetingPreferredTimeRanges returns the time ranges attendees
	// proposed for a meeting.
	ListMeetingPreferredTimeRanges(ctx context.Context, meetingID string) ([]model.PreferredTimeRange, error)

	// ListPreferredTimeRangesForEvent returns the ranges pinned to one
	// event, possibly none.
	ListPreferredTimeRangesForEvent(ctx context.Context, eventID string) ([]model.PreferredTimeRange, error)

	// GetEventByID resolves an event by primary key. Returns (nil, nil)
	// when the event does not exist.
	GetEventByID(ctx context.Context, id string) (*model.Event, error)

	// ListCategoriesForEvent returns the categories assigned to an event.
	ListCategoriesForEvent(ctx context.Context, eventID string) ([]model.Category, error)

	// ListUserCategories returns all categories a user has defined.
	ListUserCategories(ctx context.Context, userID string) ([]model.Category, error)

	// ListRemindersForEvent returns the reminders stored for an event.
	ListRemindersForEvent(ctx context.Context, eventID, userID string) ([]model.Reminder, error)

	// GetUserPreferences returns a user's global scheduling preferences.
	GetUserPreferences(ctx context.Context, userID string) (*model.UserPreferences, error)
}
