// Package model defines the calendar domain types moved through the
// scheduling pipeline: events, meeting assists, attendees, reminders,
// buffer times, and the per-message working set.
package model

import (
	"time"
)

// Transparency mirrors the calendar availability marker.
type Transparency string

const (
	TransparencyOpaque      Transparency = "opaque"
	TransparencyTransparent Transparency = "transparent"
)

// BufferTimeNumber holds buffer minutes blocked around an event.
type BufferTimeNumber struct {
	BeforeEvent int `json:"beforeEvent"`
	AfterEvent  int `json:"afterEvent"`
}

// PreferredTimeRange is a user-supplied time-of-day window an event
// should land in. Zero or many per event; insertion order irrelevant.
type PreferredTimeRange struct {
	ID          string    `json:"id"`
	EventID     string    `json:"eventId"`
	UserID      string    `json:"userId"`
	DayOfWeek   int       `json:"dayOfWeek,omitempty"` // 1=Monday..7=Sunday, 0 = any day
	StartTime   string    `json:"startTime"`           // "HH:MM"
	EndTime     string    `json:"endTime"`             // "HH:MM"
	CreatedDate time.Time `json:"createdDate"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Event is one calendar occurrence owned by a user. The pipeline reads
// it from calendar storage and mutates it in memory to attach
// classification results; it never persists it.
type Event struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	CalendarID string `json:"calendarId"`
	EventID    string `json:"eventId,omitempty"` // provider-side id (ID is "<eventId>#<calendarId>")

	Title string `json:"title,omitempty"`
	Notes string `json:"notes,omitempty"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Timezone  string    `json:"timezone"`
	AllDay    bool      `json:"allDay,omitempty"`

	// MeetingID links the event to a MeetingAssist when non-empty.
	MeetingID string `json:"meetingId,omitempty"`

	Priority          int          `json:"priority"`
	Modifiable        bool         `json:"modifiable"`
	IsBreak           bool         `json:"isBreak,omitempty"`
	IsMeeting         bool         `json:"isMeeting,omitempty"`
	IsExternalMeeting bool         `json:"isExternalMeeting,omitempty"`
	Transparency      Transparency `json:"transparency,omitempty"`
	BackgroundColor   string       `json:"backgroundColor,omitempty"`
	Duration          int          `json:"duration,omitempty"` // minutes

	// Buffer-time linkage set when pre/post events exist.
	PreEventID   string            `json:"preEventId,omitempty"`
	PostEventID  string            `json:"postEventId,omitempty"`
	ForEventID   string            `json:"forEventId,omitempty"`
	IsPreEvent   bool              `json:"isPreEvent,omitempty"`
	IsPostEvent  bool              `json:"isPostEvent,omitempty"`
	TimeBlocking *BufferTimeNumber `json:"timeBlocking,omitempty"`

	// Classification attachments.
	PreferredTimeRanges []PreferredTimeRange `json:"preferredTimeRanges,omitempty"`
	Vector              []float32            `json:"vector,omitempty"`
	CategoryID          string               `json:"categoryId,omitempty"`

	// Copy flags carried over from a trained previous event.
	CopyAvailability      bool `json:"copyAvailability,omitempty"`
	CopyTimeBlocking      bool `json:"copyTimeBlocking,omitempty"`
	CopyTimePreference    bool `json:"copyTimePreference,omitempty"`
	CopyReminders         bool `json:"copyReminders,omitempty"`
	CopyPriorityLevel     bool `json:"copyPriorityLevel,omitempty"`
	CopyModifiable        bool `json:"copyModifiable,omitempty"`
	CopyIsBreak           bool `json:"copyIsBreak,omitempty"`
	CopyIsMeeting         bool `json:"copyIsMeeting,omitempty"`
	CopyIsExternalMeeting bool `json:"copyIsExternalMeeting,omitempty"`
	CopyColor             bool `json:"copyColor,omitempty"`

	// User-override flags: a set flag pins the corresponding field
	// against classification writes.
	UserModifiedAvailability      bool `json:"userModifiedAvailability,omitempty"`
	UserModifiedTimeBlocking      bool `json:"userModifiedTimeBlocking,omitempty"`
	UserModifiedTimePreference    bool `json:"userModifiedTimePreference,omitempty"`
	UserModifiedReminders         bool `json:"userModifiedReminders,omitempty"`
	UserModifiedPriorityLevel     bool `json:"userModifiedPriorityLevel,omitempty"`
	UserModifiedCategories        bool `json:"userModifiedCategories,omitempty"`
	UserModifiedModifiable        bool `json:"userModifiedModifiable,omitempty"`
	UserModifiedIsBreak           bool `json:"userModifiedIsBreak,omitempty"`
	UserModifiedIsMeeting         bool `json:"userModifiedIsMeeting,omitempty"`
	UserModifiedIsExternalMeeting bool `json:"userModifiedIsExternalMeeting,omitempty"`
	UserModifiedColor             bool `json:"userModifiedColor,omitempty"`

	Method      string    `json:"method,omitempty"` // "create" or "update"
	CreatedDate time.Time `json:"createdDate"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// HasMeeting reports whether the event is linked to a meeting assist.
func (e *Event) HasMeeting() bool { return e.MeetingID != "" }

// DurationMinutes returns the scheduled length of the event.
func (e *Event) DurationMinutes() int {
	if e.Duration > 0 {
		return e.Duration
	}
	return int(e.EndDate.Sub(e.StartDate).Minutes())
}

// Reminder is one notification lead time attached to an event.
type Reminder struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	EventID     string    `json:"eventId"`
	Timezone    string    `json:"timezone,omitempty"`
	Minutes     int       `json:"minutes"`
	UseDefault  bool      `json:"useDefault"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Deleted     bool      `json:"deleted"`
}

// EventReminders pairs an event id with its derived reminders.
type EventReminders struct {
	EventID   string     `json:"eventId"`
	Reminders []Reminder `json:"reminders"`
}

// BufferTimeBlock holds the synthetic pre/post events blocked around a
// classified event. Either side may be nil.
type BufferTimeBlock struct {
	BeforeEvent *Event `json:"beforeEvent,omitempty"`
	AfterEvent  *Event `json:"afterEvent,omitempty"`
}

// Empty reports whether the block carries no buffer events.
func (b BufferTimeBlock) Empty() bool {
	return b.BeforeEvent == nil && b.AfterEvent == nil
}
