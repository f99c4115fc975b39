package pipeline

import (
	"time"

	"github.com/schedflow/schedflow/internal/model"
)

// buildPlannerRequest assembles the optimizer payload from a reconciled
// working set. Pure assembly, no further mutation of the set.
func buildPlannerRequest(hostID string, ws *model.WorkingSet, windowStart, windowEnd time.Time, hostTimezone string) *model.PlannerRequest {
	return &model.PlannerRequest{
		HostID:              hostID,
		HostTimezone:        hostTimezone,
		WindowStartDate:     windowStart,
		WindowEndDate:       windowEnd,
		Events:              ws.Events,
		OldEvents:           ws.OldEvents,
		MeetingEventPlus:    ws.MeetingEventsPlus,
		MeetingAssistEvents: ws.MeetingAssistEvents,
		InternalAttendees:   ws.InternalAttendees,
		ExternalAttendees:   ws.ExternalAttendees,
		Reminders:           ws.Reminders,
		BufferBlocks:        ws.BufferBlocks,
	}
}
