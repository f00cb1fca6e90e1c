// Command newsletterctl manages newsletter campaigns from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/unclebandit/newsletter-backoffice/internal/config"
	"github.com/unclebandit/newsletter-backoffice/internal/logging"
	"github.com/unclebandit/newsletter-backoffice/internal/queue"
	"github.com/unclebandit/newsletter-backoffice/internal/repository"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
)

var (
	// Global flags
	apiURL   string
	apiToken string
	locale   string
	verbose  bool
	timeout  time.Duration

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "newsletterctl",
	Short: "Newsletter back-office from the terminal",
	Long: `newsletterctl lists, inspects and deletes newsletter campaigns, prints
subscriber statistics, exports the subscriber list and runs the campaign
creation wizard against the newsletter API.

Defaults come from the environment (NEWSLETTER_API_URL, NEWSLETTER_API_TOKEN,
LOCALE) or a .env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		if !cmd.Flags().Changed("api-url") {
			apiURL = cfg.APIURL
		}
		if !cmd.Flags().Changed("token") {
			apiToken = cfg.APIToken
		}
		if !cmd.Flags().Changed("locale") {
			locale = cfg.Locale
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		return logging.Setup(level, cfg.LogFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Newsletter API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Bearer token for the newsletter API")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "", "Message locale (en, fr)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP timeout")

	campaignsListCmd.Flags().StringVar(&listStatus, "status", "", "Only show campaigns with this status")
	campaignsListCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	campaignsListCmd.Flags().IntVar(&listPageSize, "page-size", 20, "Campaigns per page")
	campaignsCmd.AddCommand(campaignsListCmd, campaignsShowCmd, campaignsDeleteCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")

	rootCmd.AddCommand(campaignsCmd, specialitiesCmd, statsCmd, exportCmd, wizardCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// services bundles what the subcommands need from the backend.
type services struct {
	campaigns  *service.CampaignService
	audience   *service.AudienceResolver
	dispatcher *service.Dispatcher
}

func newServices() *services {
	client := repository.NewClient(apiURL, apiToken, timeout)
	campaignRepo := &repository.CampaignRepository{Client: client}
	resolver := service.NewAudienceResolver(&repository.SpecialityRepository{Client: client})

	q := queue.NewInMemoryQueue()
	logEvents(q)

	return &services{
		campaigns: &service.CampaignService{
			CampaignRepo: campaignRepo,
			ReportRepo:   &repository.ReportRepository{Client: client},
			Audience:     resolver,
		},
		audience:   resolver,
		dispatcher: service.NewDispatcher(campaignRepo, &repository.MailRepository{Client: client}, q),
	}
}

// logEvents writes lifecycle events to the debug log.
func logEvents(q queue.Queue) {
	topics := append([]string{queue.TopicSaved}, queue.DispatchTopics...)
	for _, topic := range topics {
		_ = q.Subscribe(topic, func(payload any) error {
			if ev, ok := payload.(queue.Event); ok {
				logrus.WithFields(logrus.Fields{
					"campaign_id": ev.CampaignID,
					"status":      ev.Status,
					"error":       ev.Error,
				}).Debugf("Event: %s", ev.Type)
			}
			return nil
		})
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
