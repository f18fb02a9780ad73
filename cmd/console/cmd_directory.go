package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"directory-console/internal/apperr"
	"directory-console/internal/models"
	"directory-console/internal/view"
)

func (c *cli) familiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "families",
		Short: "Browse families",
	}
	cmd.AddCommand(c.familiesListCmd(), c.familiesShowCmd())
	return cmd
}

func (c *cli) familiesListCmd() *cobra.Command {
	var filter models.FamilyFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			res := view.New(func(ctx context.Context) (*models.FamilyPage, error) {
				return c.app.API.ListFamilies(ctx, filter)
			}, func(p *models.FamilyPage) bool { return p == nil || len(p.Families) == 0 })

			return show(cmd, res, func(w io.Writer, page *models.FamilyPage) {
				tw := newTable(w)
				row(tw, "ID", "CODE", "HEAD", "MEMBERS", "BUILDING")
				for _, f := range page.Families {
					row(tw, f.RecCode, f.FamilyCode, f.HeadName(), f.MemberCount, buildingName(f.Building))
				}
				tw.Flush()
				fmt.Fprintf(w, "Page %d, %d families in total\n", page.Page, page.TotalCount)
			})
		},
	}
	cmd.Flags().StringVar(&filter.Search, "search", "", "filter by family code or member name")
	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filter.Limit, "limit", 10, "families per page")
	return cmd
}

func (c *cli) familiesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one family and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			res := view.New(func(ctx context.Context) (*models.Family, error) {
				return c.app.API.GetFamily(ctx, args[0])
			}, nil)

			return show(cmd, res, func(w io.Writer, f *models.Family) {
				tw := newTable(w)
				row(tw, "ID", f.RecCode)
				row(tw, "Code", f.FamilyCode)
				row(tw, "Head", f.HeadName())
				row(tw, "Building", buildingName(f.Building))
				row(tw, "Landline", orDash(f.ResidenceLandline))
				tw.Flush()

				fmt.Fprintln(w)
				if len(f.Members) == 0 {
					fmt.Fprintln(w, "No members.")
					return
				}
				tw = newTable(w)
				row(tw, "ID", "NAME", "MOBILE", "HEAD")
				for _, m := range f.Members {
					head := ""
					if m.IsHeadOfFamily {
						head = "yes"
					}
					row(tw, m.RecCode, m.MemberName, orDash(m.MobileNumber), head)
				}
				tw.Flush()
			})
		},
	}
}

func (c *cli) buildingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buildings",
		Short: "Browse buildings",
	}
	cmd.AddCommand(c.buildingsListCmd(), c.buildingsShowCmd())
	return cmd
}

func (c *cli) buildingsListCmd() *cobra.Command {
	var filter models.BuildingFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List buildings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			res := view.New(func(ctx context.Context) (*models.BuildingPage, error) {
				return c.app.API.ListBuildings(ctx, filter)
			}, func(p *models.BuildingPage) bool { return p == nil || len(p.Buildings) == 0 })

			return show(cmd, res, func(w io.Writer, page *models.BuildingPage) {
				tw := newTable(w)
				row(tw, "ID", "NAME", "AREA", "FAMILIES", "MEMBERS")
				for _, b := range page.Buildings {
					row(tw, b.RecCode, b.BuildingName, b.AreaName(), b.FamilyCount, b.MemberCount)
				}
				tw.Flush()
				fmt.Fprintf(w, "Page %d, %d buildings in total\n", page.Page, page.TotalCount)
			})
		},
	}
	cmd.Flags().StringVar(&filter.Search, "search", "", "filter by building name")
	cmd.Flags().StringVar(&filter.AreaID, "area", "", "only buildings in this area record code")
	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filter.Limit, "limit", 10, "buildings per page")
	return cmd
}

func (c *cli) buildingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one building and the families living there",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			res := view.New(func(ctx context.Context) (*models.Building, error) {
				return c.app.API.GetBuilding(ctx, args[0])
			}, nil)

			return show(cmd, res, func(w io.Writer, b *models.Building) {
				tw := newTable(w)
				row(tw, "ID", b.RecCode)
				row(tw, "Name", b.BuildingName)
				row(tw, "Area", b.AreaName())
				row(tw, "Members", b.MemberCount)
				tw.Flush()

				fmt.Fprintln(w)
				if len(b.Families) == 0 {
					fmt.Fprintln(w, "No families.")
					return
				}
				tw = newTable(w)
				row(tw, "ID", "CODE", "HEAD", "MEMBERS")
				for _, f := range b.Families {
					row(tw, f.RecCode, f.FamilyCode, f.HeadName(), f.MemberCount)
				}
				tw.Flush()
			})
		},
	}
}

func buildingName(b *models.Building) string {
	if b == nil {
		return "-"
	}
	return orDash(b.BuildingName)
}

// memberFlags binds the member form to command flags.
type memberFlags struct {
	in models.MemberInput
}

func (f *memberFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.in.MemberName, "name", "", "member name")
	fs.StringVar(&f.in.GenderID, "gender", "", "gender record code")
	fs.IntVar(&f.in.BirthYear, "birth-year", 0, "year of birth")
	fs.StringVar(&f.in.MobileNumber, "mobile", "", "10 digit mobile number")
	fs.StringVar(&f.in.EmailID, "email", "", "email address")
	fs.BoolVar(&f.in.IsHeadOfFamily, "head", false, "make the member head of family")
	fs.StringVar(&f.in.ReligiousStudyID, "study", "", "religious study record code")
	fs.StringVar(&f.in.NativePlaceID, "native-place", "", "native place record code")
	fs.StringVar(&f.in.FamilyID, "family", "", "family record code to join")
	fs.BoolVar(&f.in.NewFamily, "new-family", false, "create a new family for the member")
	fs.StringVar(&f.in.FamilyCode, "family-code", "", "code of the new family")
	fs.StringVar(&f.in.ResidenceLandline, "landline", "", "landline of the new family")
	fs.StringVar(&f.in.BuildingID, "building", "", "building record code of the current address")
	fs.StringVar(&f.in.FlatNumber, "flat", "", "flat number")
	fs.StringVar(&f.in.Floor, "floor", "", "floor")
	fs.StringVar(&f.in.Wing, "wing", "", "wing")
}

// overlay copies the flags the user set onto base.
func (f *memberFlags) overlay(fs *pflag.FlagSet, base models.MemberInput) models.MemberInput {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("name", &base.MemberName, f.in.MemberName)
	set("gender", &base.GenderID, f.in.GenderID)
	set("mobile", &base.MobileNumber, f.in.MobileNumber)
	set("email", &base.EmailID, f.in.EmailID)
	set("study", &base.ReligiousStudyID, f.in.ReligiousStudyID)
	set("native-place", &base.NativePlaceID, f.in.NativePlaceID)
	set("family", &base.FamilyID, f.in.FamilyID)
	set("family-code", &base.FamilyCode, f.in.FamilyCode)
	set("landline", &base.ResidenceLandline, f.in.ResidenceLandline)
	set("building", &base.BuildingID, f.in.BuildingID)
	set("flat", &base.FlatNumber, f.in.FlatNumber)
	set("floor", &base.Floor, f.in.Floor)
	set("wing", &base.Wing, f.in.Wing)
	if fs.Changed("birth-year") {
		base.BirthYear = f.in.BirthYear
	}
	if fs.Changed("head") {
		base.IsHeadOfFamily = f.in.IsHeadOfFamily
	}
	if fs.Changed("new-family") {
		base.NewFamily = f.in.NewFamily
	}
	return base
}

func (c *cli) membersAddCmd() *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a member",
		Long: `Add a member to an existing family with --family, or start a new
family at --building with --new-family.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			m, err := c.app.Members.Create(cmd.Context(), f.in)
			return reportSaved(cmd, m, err)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (c *cli) membersEditCmd() *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a member",
		Long:  `Change the fields given as flags and keep the rest of the record.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			base, err := c.app.Members.Load(ctx, args[0])
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					fmt.Fprintf(cmd.OutOrStdout(), "Member %s not found.\n", args[0])
					return errReported
				}
				return err
			}
			m, err := c.app.Members.Update(ctx, args[0], f.overlay(cmd.Flags(), base))
			return reportSaved(cmd, m, err)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func reportSaved(cmd *cobra.Command, m *models.Member, err error) error {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		errOut := cmd.ErrOrStderr()
		for _, fe := range verr.Fields {
			fmt.Fprintf(errOut, "  %s: %s\n", fe.Field, fe.Message)
		}
		first, _ := verr.First()
		fmt.Fprintf(errOut, "Fix %s and try again.\n", first.Field)
		return errReported
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Member %s saved.\n", m.RecCode)
	if m.Family != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Family: %s (%s)\n", m.FamilyCode(), m.Family.RecCode)
	}
	return nil
}
