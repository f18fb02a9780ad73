package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"directory-console/internal/models"
	"directory-console/internal/view"
)

func (c *cli) membersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Browse and edit the member directory",
	}
	cmd.AddCommand(c.membersListCmd(), c.membersShowCmd(), c.membersAddCmd(), c.membersEditCmd())
	return cmd
}

func (c *cli) membersListCmd() *cobra.Command {
	var filter models.MemberFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			res := view.New(func(ctx context.Context) (*models.MemberPage, error) {
				return c.app.API.ListMembers(ctx, filter)
			}, func(p *models.MemberPage) bool { return p == nil || len(p.Members) == 0 })

			return show(cmd, res, func(w io.Writer, page *models.MemberPage) {
				tw := newTable(w)
				row(tw, "ID", "NAME", "MOBILE", "AREA", "FAMILY")
				for _, m := range page.Members {
					row(tw, m.RecCode, m.MemberName, orDash(m.MobileNumber), m.CurrentArea(), m.FamilyCode())
				}
				tw.Flush()
				fmt.Fprintf(w, "Page %d, %d members in total\n", page.Page, page.TotalCount)
			})
		},
	}
	cmd.Flags().StringVar(&filter.Search, "search", "", "filter by name or mobile number")
	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filter.Limit, "limit", 10, "members per page")
	return cmd
}

func (c *cli) membersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			res := view.New(func(ctx context.Context) (*models.Member, error) {
				return c.app.API.GetMember(ctx, args[0])
			}, nil)

			return show(cmd, res, func(w io.Writer, m *models.Member) {
				tw := newTable(w)
				row(tw, "ID", m.RecCode)
				row(tw, "Name", m.MemberName)
				row(tw, "Mobile", orDash(m.MobileNumber))
				row(tw, "Email", orDash(m.EmailID))
				row(tw, "Area", m.CurrentArea())
				row(tw, "Family", m.FamilyCode())
				if m.IsHeadOfFamily {
					row(tw, "Head of family", "yes")
				}
				tw.Flush()
			})
		},
	}
}

func (c *cli) masterDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "masterdata <category>...",
		Short: "Show reference lists such as areas or notificationTypes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			got, err := c.app.MasterData.Fetch(cmd.Context(), args...)

			names := make([]string, 0, len(got))
			for name := range got {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(out, "== %s ==\n", name)
				if len(got[name]) == 0 {
					fmt.Fprintln(out, "No results found.")
					continue
				}
				tw := newTable(out)
				for _, e := range got[name] {
					row(tw, e.RecCode, e.Label())
				}
				tw.Flush()
			}
			return err
		},
	}
}
