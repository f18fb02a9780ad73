// Package status shows delivery progress of sent notifications and keeps
// the admin's unread counter.
package status

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"directory-console/internal/models"
)

// DetailSource fetches one notification with its recipients.
type DetailSource interface {
	GetNotification(ctx context.Context, id string) (*models.NotificationDetail, error)
}

// Stats are the delivery counters of one notification.
type Stats struct {
	Recipients int
	Sent       int
	Delivered  int
	Read       int
	Failed     int
	ReadRate   float64
}

// ReadPercent is ReadRate as a rounded percentage.
func (s Stats) ReadPercent() int {
	return int(math.Round(s.ReadRate * 100))
}

// StatsOf derives the counters of n.
func StatsOf(n models.Notification) Stats {
	s := Stats{
		Recipients: n.RecipientCount,
		Sent:       n.SentCount,
		Delivered:  n.SentCount,
		Read:       n.ReadCount,
		Failed:     n.FailedCount,
	}
	if n.DeliveredCount != nil {
		s.Delivered = *n.DeliveredCount
	}
	s.ReadRate = ReadRate(n.ReadCount, n.RecipientCount)
	return s
}

// ReadRate is read/total, or 0 when there are no recipients.
func ReadRate(read, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(read) / float64(total)
}

// Detail is the status view of one notification. Recipients keep the order
// the server returned them in.
type Detail struct {
	Notification models.Notification
	Recipients   []models.Recipient
	Stats        Stats
	Status       models.NotificationStatus
}

type Viewer struct {
	source DetailSource
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewViewer(source DetailSource, log logrus.FieldLogger) *Viewer {
	return &Viewer{
		source: source,
		log:    log.WithField("component", "status"),
		now:    time.Now,
	}
}

// Load fetches the notification; a missing one surfaces as apperr NotFound.
func (v *Viewer) Load(ctx context.Context, id string) (*Detail, error) {
	d, err := v.source.GetNotification(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load notification %s: %w", id, err)
	}

	recipients := d.Recipients
	if recipients == nil {
		recipients = []models.Recipient{}
	}
	out := &Detail{
		Notification: d.Notification,
		Recipients:   recipients,
		Stats:        StatsOf(d.Notification),
		Status:       d.Notification.Status(v.now()),
	}
	v.log.WithFields(logrus.Fields{
		"notification_id": id,
		"recipients":      len(recipients),
	}).Debug("Notification status loaded")
	return out, nil
}
