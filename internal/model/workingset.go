package model

import "time"

// WorkingSet is the mutable aggregate one queue-message run builds:
// busy events, meeting-linked events, attendee partitions, and the
// classification attachments derived along the way. It is owned
// exclusively by a single pipeline invocation.
type WorkingSet struct {
	// Events are the generic (busy-time) events, preference-merged.
	Events []Event
	// MeetingAssistEvents are external attendees' raw busy events.
	MeetingAssistEvents []MeetingAssistEvent
	// MeetingEventsPlus are the per-attendee occurrences of processed
	// meetings, overlaid with the meeting's preferred time ranges.
	// Tracked separately from Events.
	MeetingEventsPlus []Event
	// OldEvents is the pre-classification snapshot of the host's
	// events, handed to the optimizer for diffing.
	OldEvents []Event

	InternalAttendees []Attendee
	ExternalAttendees []Attendee

	Reminders    []EventReminders
	BufferBlocks []BufferTimeBlock
}

// PlannerRequest is the payload submitted to the external
// constraint-based optimizer. Fire-and-forget: no response consumed.
type PlannerRequest struct {
	HostID              string               `json:"hostId"`
	InternalAttendees   []Attendee           `json:"internalAttendees"`
	MeetingEventPlus    []Event              `json:"meetingEventPlus"`
	Events              []Event              `json:"events"`
	OldEvents           []Event              `json:"oldEvents"`
	WindowStartDate     time.Time            `json:"windowStartDate"`
	WindowEndDate       time.Time            `json:"windowEndDate"`
	HostTimezone        string               `json:"hostTimezone"`
	ExternalAttendees   []Attendee           `json:"externalAttendees,omitempty"`
	MeetingAssistEvents []MeetingAssistEvent `json:"meetingAssistEvents,omitempty"`
	Reminders           []EventReminders     `json:"reminders,omitempty"`
	BufferBlocks        []BufferTimeBlock    `json:"bufferTimeBlocks,omitempty"`
}
