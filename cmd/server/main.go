// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/newsletter-backoffice/internal/config"
	"github.com/unclebandit/newsletter-backoffice/internal/controller"
	"github.com/unclebandit/newsletter-backoffice/internal/handler"
	"github.com/unclebandit/newsletter-backoffice/internal/journal"
	"github.com/unclebandit/newsletter-backoffice/internal/logging"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/queue"
	"github.com/unclebandit/newsletter-backoffice/internal/repository"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
	"github.com/unclebandit/newsletter-backoffice/internal/wizard"
)

const (
	sessionIdleTimeout = 30 * time.Minute
	pruneInterval      = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		config.Exitf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, closeJournal, err := journal.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("failed to open journal: %v", err)
	}
	defer closeJournal()

	// Events go to the broker when one is configured; otherwise they are
	// recorded in-process.
	mem := queue.NewInMemoryQueue()
	var q queue.Queue = mem
	if cfg.AMQPURL != "" {
		aq, err := queue.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			logrus.Fatalf("failed to connect to broker: %v", err)
		}
		defer aq.Close()
		q = aq
	} else if err := service.NewWorker(j).Start(mem); err != nil {
		logrus.Fatalf("failed to start journal worker: %v", err)
	}

	client := repository.NewClient(cfg.APIURL, cfg.APIToken, cfg.HTTPTimeout)
	campaignRepo := &repository.CampaignRepository{Client: client}
	specialityRepo := &repository.SpecialityRepository{Client: client}
	mailRepo := &repository.MailRepository{Client: client}
	reportRepo := &repository.ReportRepository{Client: client}

	resolver := service.NewAudienceResolver(specialityRepo)
	dispatcher := service.NewDispatcher(campaignRepo, mailRepo, q)

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ReportRepo:   reportRepo,
		Audience:     resolver,
		Journal:      j,
	}

	registry := wizard.NewRegistry()
	wizardController := &controller.WizardController{
		Registry: registry,
		NewWizard: func(initial *model.Campaign) *wizard.Controller {
			return wizard.New(resolver, dispatcher, initial,
				wizard.WithLocale(cfg.Locale),
				wizard.WithNoticeTTL(cfg.NoticeTTL),
			)
		},
	}
	campaignHandler := handler.NewCampaignHandler(campaignService, cfg.Locale)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Campaign routes
	campaignHandler.Routes(r)
	// Wizard routes
	wizardController.Routes(r)

	go pruneSessions(ctx, registry)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logrus.Infof("Server running on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("server: %v", err)
	}
	mem.Wait()
	logrus.Info("Server stopped")
}

func pruneSessions(ctx context.Context, registry *wizard.Registry) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := registry.Prune(now, sessionIdleTimeout); n > 0 {
				logrus.WithField("count", n).Info("Closed idle wizard sessions")
			}
		}
	}
}
