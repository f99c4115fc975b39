package model

import "time"

// MeetingAssist is a multi-attendee scheduling request tying several
// users' calendars around one proposed meeting. Immutable once loaded
// for a processing pass.
type MeetingAssist struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"` // host
	EventID          string            `json:"eventId,omitempty"`
	Summary          string            `json:"summary,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	WindowStartDate  time.Time         `json:"windowStartDate"`
	WindowEndDate    time.Time         `json:"windowEndDate"`
	Timezone         string            `json:"timezone"`
	Priority         int               `json:"priority"`
	Reminders        []int             `json:"reminders,omitempty"` // minutes
	UseDefaultAlarms bool              `json:"useDefaultAlarms,omitempty"`
	BufferTime       *BufferTimeNumber `json:"bufferTime,omitempty"`
	CreatedDate      time.Time         `json:"createdDate"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Attendee is one participant of a MeetingAssist. Internal attendees
// are hosted on this system and identified by UserID; external ones
// only exist as meeting-assist records.
type Attendee struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	HostID           string    `json:"hostId"`
	MeetingID        string    `json:"meetingId"`
	Name             string    `json:"name,omitempty"`
	PrimaryEmail     string    `json:"primaryEmail,omitempty"`
	Timezone         string    `json:"timezone,omitempty"`
	ExternalAttendee bool      `json:"externalAttendee"`
	CreatedDate      time.Time `json:"createdDate"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// MeetingAssistEvent is an event sourced from an external attendee's
// calendar. Zero or one per attendee maps to the shared meeting
// occurrence; the rest represent that attendee's busy time.
type MeetingAssistEvent struct {
	ID              string       `json:"id"`
	AttendeeID      string       `json:"attendeeId"`
	EventID         string       `json:"eventId,omitempty"`
	CalendarID      string       `json:"calendarId"`
	Summary         string       `json:"summary,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	StartDate       time.Time    `json:"startDate"`
	EndDate         time.Time    `json:"endDate"`
	Timezone        string       `json:"timezone,omitempty"`
	AllDay          bool         `json:"allDay,omitempty"`
	Transparency    Transparency `json:"transparency,omitempty"`
	BackgroundColor string       `json:"backgroundColor,omitempty"`
	MeetingID       string       `json:"meetingId,omitempty"`
	ExternalUser    bool         `json:"externalUser"`
	CreatedDate     time.Time    `json:"createdDate"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// ToEvent converts an external attendee's meeting-assist event into the
// common Event representation, owned by the given user.
func (m *MeetingAssistEvent) ToEvent(userID string) Event {
	return Event{
		ID:              m.ID,
		UserID:          userID,
		CalendarID:      m.CalendarID,
		EventID:         m.EventID,
		Title:           m.Summary,
		Notes:           m.Notes,
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
		Timezone:        m.Timezone,
		AllDay:          m.AllDay,
		MeetingID:       m.MeetingID,
		Priority:        1,
		Modifiable:      false,
		Transparency:    m.Transparency,
		BackgroundColor: m.BackgroundColor,
		IsMeeting:       m.MeetingID != "",
		Method:          "create",
		CreatedDate:     m.CreatedDate,
		UpdatedAt:       m.UpdatedAt,
	}
}
