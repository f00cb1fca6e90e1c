package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var exportOutput string

var specialitiesCmd = &cobra.Command{
	Use:   "specialities",
	Short: "List audience specialities with their subscriber counts",
	Args:  cobra.NoArgs,
	RunE:  runSpecialities,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show subscriber and engagement statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the subscriber list as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func runSpecialities(cmd *cobra.Command, args []string) error {
	svc := newServices()
	specialities, err := svc.campaigns.Specialities(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("list specialities: %w", err)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "SPECIALITY", "SUBSCRIBERS")
	for _, s := range specialities {
		t.Row(s.ID, s.Libelle, humanize.Comma(int64(s.SubscriberCount)))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	svc := newServices()
	stats, err := svc.campaigns.Statistics(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("statistics: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subscribers:     %s\n", humanize.Comma(int64(stats.TotalSubscribers)))
	fmt.Fprintf(out, "Active:          %s\n", humanize.Comma(int64(stats.ActiveSubscribers)))
	fmt.Fprintf(out, "Unsubscribed:    %s\n", humanize.Comma(int64(stats.Unsubscribed)))
	fmt.Fprintf(out, "Campaigns sent:  %s\n", humanize.Comma(int64(stats.CampaignsSent)))
	fmt.Fprintf(out, "Avg open rate:   %s%%\n", humanize.FormatFloat("#.#", stats.AverageOpenRate))
	fmt.Fprintf(out, "Avg click rate:  %s%%\n", humanize.FormatFloat("#.#", stats.AverageClickRate))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	svc := newServices()
	body, _, err := svc.campaigns.Export(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer body.Close()

	var dst io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}
	n, err := io.Copy(dst, body)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if exportOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s to %s\n", humanize.Bytes(uint64(n)), exportOutput)
	}
	return nil
}
