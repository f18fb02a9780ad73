package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"directory-console/internal/dashboard"
	"directory-console/internal/models"
	"directory-console/internal/session"
	"directory-console/internal/view"
)

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show directory and notification statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			res := view.New(func(ctx context.Context) (*dashboard.Summary, error) {
				return c.app.Dashboard.Load(ctx)
			}, nil)
			return show(cmd, res, printSummary)
		},
	}
}

func printSummary(w io.Writer, s *dashboard.Summary) {
	st := s.Stats
	tw := newTable(w)
	row(tw, "Members", st.MemberStats.TotalMembers)
	row(tw, "Families", st.MemberStats.TotalFamilies)
	row(tw, "Buildings", st.LocationStats.TotalBuildings)
	row(tw, "Notifications sent", st.NotificationStats.TotalSent)
	row(tw, "Read rate (mean)", percent(s.MeanReadRate))
	row(tw, "Read rate (median)", percent(s.MedianReadRate))
	tw.Flush()

	printBuckets(w, "Members by age", st.MemberStats.MembersByAgeGroup)
	printBuckets(w, "Members by area", st.LocationStats.MembersByArea)
	printBuckets(w, "Members by religious study", st.ReligiousStats.MembersByReligiousStudy)

	fmt.Fprintln(w, "\nRecent notifications")
	if len(s.Recent) == 0 {
		fmt.Fprintln(w, "No notifications yet.")
		return
	}
	tw = newTable(w)
	now := time.Now()
	for _, n := range s.Recent {
		row(tw, n.RecCode, n.Title, n.Status(now), n.CreationDateTime.Local().Format(timeLayout))
	}
	tw.Flush()
}

func printBuckets(w io.Writer, title string, buckets []models.Bucket) {
	if len(buckets) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	tw := newTable(w)
	for _, b := range buckets {
		row(tw, "  "+b.Label, b.Count)
	}
	tw.Flush()
}

func percent(rate float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(rate*100)))
}

func (c *cli) themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the display theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			store := c.app.Session.Store()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintf(out, "Theme: %s\n", c.app.Theme())
				return nil
			}

			var (
				t   session.Theme
				err error
			)
			if args[0] == "toggle" {
				t, err = session.ToggleTheme(store)
			} else {
				t = session.Theme(args[0])
				err = session.SaveTheme(store, t)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Theme: %s\n", t)
			return nil
		},
	}
}
