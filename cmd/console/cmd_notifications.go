package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"directory-console/internal/apperr"
	"directory-console/internal/audience"
	"directory-console/internal/compose"
	"directory-console/internal/models"
	"directory-console/internal/status"
	"directory-console/internal/view"
)

const timeLayout = "2006-01-02 15:04"

func (c *cli) notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"n"},
		Short:   "Send notifications and follow their delivery",
	}
	cmd.AddCommand(
		c.notificationsListCmd(),
		c.notificationsShowCmd(),
		c.notificationsReadCmd(),
		c.notificationsUnreadCmd(),
		c.composeCmd(),
	)
	return cmd
}

func (c *cli) notificationsListCmd() *cobra.Command {
	var (
		filter   models.NotificationFilter
		st       string
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sent and scheduled notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch models.NotificationStatus(st) {
			case "", models.NotificationStatusSent, models.NotificationStatusScheduled:
				filter.Status = models.NotificationStatus(st)
			default:
				return fmt.Errorf("--status must be Sent or Scheduled, got %q", st)
			}
			var err error
			if filter.StartDate, err = parseDate("from", from); err != nil {
				return err
			}
			if filter.EndDate, err = parseDate("to", to); err != nil {
				return err
			}
			if err := c.requireSession(cmd); err != nil {
				return err
			}

			res := view.New(func(ctx context.Context) (*models.NotificationPage, error) {
				return c.app.API.ListNotifications(ctx, filter)
			}, func(p *models.NotificationPage) bool { return p == nil || len(p.Notifications) == 0 })

			now := time.Now()
			return show(cmd, res, func(w io.Writer, page *models.NotificationPage) {
				tw := newTable(w)
				row(tw, "ID", "TITLE", "TYPE", "STATUS", "RECIPIENTS", "READ", "CREATED BY", "CREATED")
				for _, n := range page.Notifications {
					stats := status.StatsOf(n)
					row(tw, n.RecCode, n.Title, orDash(n.TypeName()), n.Status(now),
						stats.Recipients, fmt.Sprintf("%d%%", stats.ReadPercent()),
						n.CreatorName(), n.CreationDateTime.Local().Format(timeLayout))
				}
				tw.Flush()
				fmt.Fprintf(w, "Page %d, %d notifications in total\n", page.Page, page.TotalCount)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Search, "search", "", "search title and message")
	f.StringVar(&filter.TypeID, "type", "", "notification type id")
	f.StringVar(&st, "status", "", "Sent or Scheduled")
	f.StringVar(&from, "from", "", "created on or after, YYYY-MM-DD")
	f.StringVar(&to, "to", "", "created on or before, YYYY-MM-DD")
	f.IntVar(&filter.Page, "page", 1, "page number")
	f.IntVar(&filter.Limit, "limit", 10, "notifications per page")
	return cmd
}

func parseDate(flag, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected YYYY-MM-DD: %w", flag, err)
	}
	return &t, nil
}

func (c *cli) notificationsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show delivery status and recipients of a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			res := view.New(func(ctx context.Context) (*status.Detail, error) {
				return c.app.Status.Load(ctx, args[0])
			}, nil)
			return show(cmd, res, printDetail)
		},
	}
}

func printDetail(w io.Writer, d *status.Detail) {
	n := d.Notification
	fmt.Fprintf(w, "%s\n%s\n\n", n.Title, n.Message)

	tw := newTable(w)
	row(tw, "Type", orDash(n.TypeName()))
	row(tw, "Status", d.Status)
	if n.ScheduledDateTime != nil {
		row(tw, "Scheduled", n.ScheduledDateTime.Local().Format(timeLayout))
	}
	row(tw, "Created by", n.CreatorName())
	row(tw, "Recipients", d.Stats.Recipients)
	row(tw, "Sent", d.Stats.Sent)
	row(tw, "Delivered", d.Stats.Delivered)
	row(tw, "Read", fmt.Sprintf("%d (%d%%)", d.Stats.Read, d.Stats.ReadPercent()))
	row(tw, "Failed", d.Stats.Failed)
	tw.Flush()

	fmt.Fprintln(w)
	if len(d.Recipients) == 0 {
		fmt.Fprintln(w, "No recipients.")
		return
	}
	tw = newTable(w)
	row(tw, "MEMBER", "MOBILE", "SENT", "READ")
	for _, r := range d.Recipients {
		name, mobile := r.MemberID, "-"
		if r.Member != nil {
			name, mobile = r.Member.MemberName, orDash(r.Member.MobileNumber)
		}
		row(tw, name, mobile, stamp(r.SentDateTime), stamp(r.ReadDateTime))
	}
	tw.Flush()
}

func stamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func (c *cli) notificationsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>...",
		Short: "Mark notifications in your inbox as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := c.app.Unread.Sync(ctx); err != nil {
				return err
			}
			for _, id := range args {
				if err := c.app.Unread.MarkRead(ctx, id); err != nil {
					return fmt.Errorf("mark %s as read: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked as read. Unread: %d\n", c.app.Unread.Count())
			return nil
		},
	}
}

func (c *cli) notificationsUnreadCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Show the unread notification count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !watch {
				n, err := c.app.Unread.Sync(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Unread: %d\n", n)
				return nil
			}

			last := -1
			c.app.Unread.OnChange(func(n int) {
				if n != last {
					last = n
					fmt.Fprintf(out, "Unread: %d\n", n)
				}
			})
			stop := c.app.WatchUnread(cmd.Context())
			defer stop()
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling until interrupted")
	return cmd
}

type composeFlags struct {
	title, message, typ string
	areas, buildings    []string
	genders, studies    []string
	members             []string
	minAge, maxAge      int
	schedule            string
	dryRun              bool
}

func (c *cli) composeCmd() *cobra.Command {
	var f composeFlags
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose and send a notification",
		Long: `Walk the compose wizard: message, recipients, schedule and preview.

Recipients are selected with any mix of --area, --building, --gender, --study,
--min-age and --max-age. Members given with --member are always included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.app.RequireAdmin(cmd.Context()); err != nil {
				return err
			}
			return c.runCompose(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "notification title")
	fl.StringVar(&f.message, "message", "", "notification message")
	fl.StringVar(&f.typ, "type", "", "notification type id or name")
	fl.StringSliceVar(&f.areas, "area", nil, "area ids")
	fl.StringSliceVar(&f.buildings, "building", nil, "building ids")
	fl.StringSliceVar(&f.genders, "gender", nil, "gender ids")
	fl.StringSliceVar(&f.studies, "study", nil, "religious study ids")
	fl.StringSliceVar(&f.members, "member", nil, "member ids to include")
	fl.IntVar(&f.minAge, "min-age", 0, "minimum age")
	fl.IntVar(&f.maxAge, "max-age", 0, "maximum age")
	fl.StringVar(&f.schedule, "schedule", "", "send later, RFC3339 time")
	fl.BoolVar(&f.dryRun, "dry-run", false, "show the preview without sending")
	return cmd
}

func (c *cli) runCompose(cmd *cobra.Command, f composeFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	w := c.app.NewCompose()

	// Compose stage.
	typeID, err := c.resolveType(ctx, f.typ)
	if err != nil {
		return err
	}
	if err := errors.Join(w.SetTitle(f.title), w.SetMessage(f.message), w.SetType(typeID)); err != nil {
		return err
	}
	if _, err := w.Next(); err != nil {
		return err
	}

	// Recipients stage.
	dims := []struct {
		name string
		ids  []string
	}{
		{audience.DimAreas, f.areas},
		{audience.DimBuildings, f.buildings},
		{audience.DimGenders, f.genders},
		{audience.DimReligiousStudy, f.studies},
	}
	for _, d := range dims {
		if len(d.ids) == 0 {
			continue
		}
		if err := w.SetDimension(d.name, d.ids); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("min-age") {
		if err := w.SetDimension(audience.DimMinAge, f.minAge); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("max-age") {
		if err := w.SetDimension(audience.DimMaxAge, f.maxAge); err != nil {
			return err
		}
	}
	if err := w.AddMembers(f.members...); err != nil {
		return err
	}
	if _, err := w.EstimateRecipients(ctx); err != nil && !errors.Is(err, apperr.ErrValidation) {
		if apperr.KindOf(err) == apperr.KindSessionExpired {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Could not estimate recipients:", apperr.UserMessage(err))
	}
	if _, err := w.Next(); err != nil {
		return err
	}

	// Schedule stage.
	if f.schedule != "" {
		at, err := time.Parse(time.RFC3339, f.schedule)
		if err != nil {
			return fmt.Errorf("--schedule: expected RFC3339 time: %w", err)
		}
		if err := w.SetScheduledAt(at); err != nil {
			return err
		}
	}
	if _, err := w.Next(); err != nil {
		return err
	}

	// Preview stage.
	printPreview(out, w.Preview())
	if f.dryRun {
		fmt.Fprintln(out, "Dry run, nothing sent.")
		return nil
	}

	n, err := w.Submit(ctx)
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		errOut := cmd.ErrOrStderr()
		for _, fe := range verr.Fields {
			fmt.Fprintf(errOut, "  %s: %s\n", fe.Field, fe.Message)
		}
		fmt.Fprintf(errOut, "Fix %s and try again.\n", w.FocusField())
		return errReported
	}
	if err != nil {
		return err
	}

	if n.ScheduledDateTime != nil {
		fmt.Fprintf(out, "Notification %s scheduled for %s to %d recipients.\n",
			n.RecCode, n.ScheduledDateTime.Local().Format(timeLayout), n.RecipientCount)
	} else {
		fmt.Fprintf(out, "Notification %s sent to %d recipients.\n", n.RecCode, n.RecipientCount)
	}
	return nil
}

// resolveType accepts a type record code or its name.
func (c *cli) resolveType(ctx context.Context, typ string) (string, error) {
	if typ == "" {
		return "", nil
	}
	got, err := c.app.MasterData.Fetch(ctx, models.CategoryNotificationTypes)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindSessionExpired {
			return "", err
		}
		// Leave the check to submission.
		return typ, nil
	}
	for _, e := range got[models.CategoryNotificationTypes] {
		if e.RecCode == typ || strings.EqualFold(e.Name, typ) {
			return e.RecCode, nil
		}
	}
	return typ, nil
}

func printPreview(w io.Writer, p compose.PreviewModel) {
	tw := newTable(w)
	row(tw, "Title", p.Title)
	row(tw, "Message", p.Message)
	row(tw, "Type", orDash(p.TypeName))
	row(tw, "Schedule", p.Schedule)
	if p.RecipientsKnown {
		row(tw, "Recipients", p.Recipients)
	} else {
		row(tw, "Recipients", "unknown")
	}
	tw.Flush()
}
