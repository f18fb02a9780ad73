// Package dashboard assembles the landing page of the console.
package dashboard

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"directory-console/internal/models"
	"directory-console/internal/status"
)

// RecentLimit is how many of the latest notifications the dashboard lists.
const RecentLimit = 5

type Source interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	ListNotifications(ctx context.Context, filter models.NotificationFilter) (*models.NotificationPage, error)
}

type Summary struct {
	Stats          models.DashboardStats
	Recent         []models.Notification
	MeanReadRate   float64
	MedianReadRate float64
}

type Loader struct {
	source Source
	log    logrus.FieldLogger
}

func NewLoader(source Source, log logrus.FieldLogger) *Loader {
	return &Loader{source: source, log: log.WithField("component", "dashboard")}
}

// Load fetches the aggregate stats and the most recent notifications in
// parallel.
func (l *Loader) Load(ctx context.Context) (*Summary, error) {
	var (
		st   *models.DashboardStats
		page *models.NotificationPage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st, err = l.source.DashboardStats(gctx)
		if err != nil {
			return fmt.Errorf("dashboard stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		page, err = l.source.ListNotifications(gctx, models.NotificationFilter{Page: 1, Limit: RecentLimit})
		if err != nil {
			return fmt.Errorf("recent notifications: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Summary{Stats: *st, Recent: page.Notifications}
	if s.Recent == nil {
		s.Recent = []models.Notification{}
	}
	s.MeanReadRate, s.MedianReadRate = readRates(s.Recent)

	l.log.WithFields(logrus.Fields{
		"members": s.Stats.MemberStats.TotalMembers,
		"recent":  len(s.Recent),
	}).Debug("Dashboard loaded")
	return s, nil
}

// readRates returns mean and median read rate over notifications that had
// recipients, or zeros when none did.
func readRates(list []models.Notification) (mean, median float64) {
	var rates stats.Float64Data
	for _, n := range list {
		if n.RecipientCount > 0 {
			rates = append(rates, status.ReadRate(n.ReadCount, n.RecipientCount))
		}
	}
	if rates.Len() == 0 {
		return 0, 0
	}
	mean, _ = rates.Mean()
	median, _ = rates.Median()
	return mean, median
}
