package model

import "time"

// DefaultTimePreference is a category-supplied preferred time window.
type DefaultTimePreference struct {
	DayOfWeek int    `json:"dayOfWeek,omitempty"`
	StartTime string `json:"startTime"` // "HH:MM"
	EndTime   string `json:"endTime"`   // "HH:MM"
}

// Category is a user-defined event class carrying scheduling defaults
// that classification copies onto matching events.
type Category struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`

	CopyAvailability   bool `json:"copyAvailability,omitempty"`
	CopyTimeBlocking   bool `json:"copyTimeBlocking,omitempty"`
	CopyTimePreference bool `json:"copyTimePreference,omitempty"`
	CopyReminders      bool `json:"copyReminders,omitempty"`
	CopyPriorityLevel  bool `json:"copyPriorityLevel,omitempty"`
	CopyModifiable     bool `json:"copyModifiable,omitempty"`
	CopyIsBreak        bool `json:"copyIsBreak,omitempty"`

	DefaultAvailability      bool                    `json:"defaultAvailability,omitempty"`
	DefaultTimeBlocking      *BufferTimeNumber       `json:"defaultTimeBlocking,omitempty"`
	DefaultTimePreference    []DefaultTimePreference `json:"defaultTimePreference,omitempty"`
	DefaultReminders         []int                   `json:"defaultReminders,omitempty"` // minutes
	DefaultPriorityLevel     int                     `json:"defaultPriorityLevel,omitempty"`
	DefaultModifiable        bool                    `json:"defaultModifiable,omitempty"`
	DefaultIsBreak           bool                    `json:"defaultIsBreak,omitempty"`
	DefaultIsMeeting         bool                    `json:"defaultIsMeeting,omitempty"`
	DefaultIsExternalMeeting bool                    `json:"defaultIsExternalMeeting,omitempty"`
	Color                    string                  `json:"color,omitempty"`

	CreatedDate time.Time `json:"createdDate"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Deleted     bool      `json:"deleted"`
}

// UserPreferences holds a user's global scheduling preferences, used by
// the classification branch that has a previous event but no
// categories to copy from.
type UserPreferences struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	Reminders []int `json:"reminders,omitempty"` // minutes before start

	CopyAvailability      bool `json:"copyAvailability,omitempty"`
	CopyTimeBlocking      bool `json:"copyTimeBlocking,omitempty"`
	CopyTimePreference    bool `json:"copyTimePreference,omitempty"`
	CopyReminders         bool `json:"copyReminders,omitempty"`
	CopyPriorityLevel     bool `json:"copyPriorityLevel,omitempty"`
	CopyModifiable        bool `json:"copyModifiable,omitempty"`
	CopyCategories        bool `json:"copyCategories,omitempty"`
	CopyIsBreak           bool `json:"copyIsBreak,omitempty"`
	CopyIsMeeting         bool `json:"copyIsMeeting,omitempty"`
	CopyIsExternalMeeting bool `json:"copyIsExternalMeeting,omitempty"`
	CopyColor             bool `json:"copyColor,omitempty"`

	MaxWorkLoadPercent  int  `json:"maxWorkLoadPercent,omitempty"`
	MinNumberOfBreaks   int  `json:"minNumberOfBreaks,omitempty"`
	BreakLength         int  `json:"breakLength,omitempty"`
	BackToBackMeetings  bool `json:"backToBackMeetings,omitempty"`
	MaxNumberOfMeetings int  `json:"maxNumberOfMeetings,omitempty"`

	CreatedDate time.Time `json:"createdDate"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Deleted     bool      `json:"deleted"`
}
