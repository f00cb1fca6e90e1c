package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/unclebandit/newsletter-backoffice/internal/i18n"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
)

var (
	listStatus   string
	listPage     int
	listPageSize int
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List, inspect and delete campaigns",
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns, newest first",
	Args:  cobra.NoArgs,
	RunE:  runCampaignsList,
}

var campaignsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one campaign with its preview",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignsShow,
}

var campaignsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignsDelete,
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))

func runCampaignsList(cmd *cobra.Command, args []string) error {
	svc := newServices()
	campaigns, pagination, err := svc.campaigns.ListCampaigns(commandContext(cmd), listPage, listPageSize, listStatus)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "STATUS", "AUDIENCE", "SENT", "CREATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})
	now := time.Now()
	for _, c := range campaigns {
		t.Row(c.ID, c.Title, string(c.Status), audienceLabel(c.Audience), sentCount(c.Stats), relative(c.CreatedAt, now))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "Page %d of %d (%s campaigns)\n",
		pagination["page"], pagination["total_pages"], humanize.Comma(int64(pagination["total_count"])))
	return nil
}

func runCampaignsShow(cmd *cobra.Command, args []string) error {
	svc := newServices()
	c, err := svc.campaigns.GetCampaign(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n", headerStyle.Render(c.Title), c.Status)
	fmt.Fprintf(out, "Subject:  %s\n", c.Subject)
	fmt.Fprintf(out, "Audience: %s\n", audienceLabel(c.Audience))
	if c.ScheduledAt != nil {
		fmt.Fprintf(out, "Scheduled: %s\n", c.ScheduledAt.Local().Format("02 Jan 2006 15:04 MST"))
	}
	if c.Stats != nil {
		fmt.Fprintf(out, "Sent to:  %s\n", humanize.Comma(int64(c.Stats.TotalSent)))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, service.RenderPreview(*c))
	return nil
}

func runCampaignsDelete(cmd *cobra.Command, args []string) error {
	svc := newServices()
	if err := svc.campaigns.DeleteCampaign(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("%s: %w", i18n.T(locale, i18n.AlertDeleteFailed), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted campaign %s\n", args[0])
	return nil
}

func audienceLabel(a *model.Audience) string {
	if a == nil {
		return "-"
	}
	switch a.Type {
	case model.AudienceAll:
		return fmt.Sprintf("all (%s)", humanize.Comma(int64(a.SubscriberCount)))
	case model.AudienceSpecialities:
		return fmt.Sprintf("%d specialities (%s)", len(a.SpecialityIDs), humanize.Comma(int64(a.SubscriberCount)))
	}
	return string(a.Type)
}

func sentCount(s *model.Stats) string {
	if s == nil {
		return "-"
	}
	return humanize.Comma(int64(s.TotalSent))
}

func relative(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}
