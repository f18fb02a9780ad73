package compose

import (
	"strings"
	"time"

	"directory-console/internal/models"
)

// Draft is the notification being composed.
type Draft struct {
	Title              string
	Message            string
	NotificationTypeID string
	Filter             models.FilterCriteria
	ScheduleLater      bool
	ScheduledAt        *time.Time
}

func (d Draft) clone() Draft {
	out := d
	out.Filter = d.Filter.Clone()
	if d.ScheduledAt != nil {
		t := *d.ScheduledAt
		out.ScheduledAt = &t
	}
	return out
}

// Request builds the creation payload from the trimmed text fields, the same
// values validation checks. The scheduled time is only sent when scheduling
// is switched on; otherwise ScheduledDateTime is null.
func (d Draft) Request() models.CreateNotificationRequest {
	req := models.CreateNotificationRequest{
		Title:              strings.TrimSpace(d.Title),
		Message:            strings.TrimSpace(d.Message),
		NotificationTypeID: strings.TrimSpace(d.NotificationTypeID),
		FilterCriteria:     d.Filter.Clone(),
	}
	if d.ScheduleLater && d.ScheduledAt != nil {
		t := d.ScheduledAt.UTC()
		req.ScheduledDateTime = &t
	}
	return req
}
