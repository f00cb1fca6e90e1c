package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/tui"
	"github.com/unclebandit/newsletter-backoffice/internal/wizard"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard [campaign-id]",
	Short: "Create a campaign, or continue a draft, in the interactive wizard",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	svc := newServices()

	var initial *model.Campaign
	if len(args) == 1 {
		c, err := svc.campaigns.GetCampaign(ctx, args[0])
		if err != nil {
			return err
		}
		initial = c
	}

	specialities, err := svc.audience.Specialities(ctx)
	if err != nil {
		// The audience step still offers "all subscribers".
		logrus.Warnf("Wizard: could not load specialities: %v", err)
	}

	w := wizard.New(svc.audience, svc.dispatcher, initial,
		wizard.WithLocale(locale),
		wizard.WithNoticeTTL(cfg.NoticeTTL),
	)
	m := tui.New(ctx, w, specialities, svc.audience, tui.WithDebounce(cfg.AudienceDebounce))

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen(),
		tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	return nil
}
