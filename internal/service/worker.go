package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/newsletter-backoffice/internal/journal"
	"github.com/unclebandit/newsletter-backoffice/internal/queue"
)

// Worker records dispatch events from the lifecycle queue into the journal.
type Worker struct {
	Journal journal.Journal
	Timeout time.Duration
}

// Constructor
func NewWorker(j journal.Journal) *Worker {
	return &Worker{Journal: j, Timeout: 5 * time.Second}
}

// Start subscribes the worker to every dispatch topic on q.
func (w *Worker) Start(q queue.Queue) error {
	for _, topic := range queue.DispatchTopics {
		if err := q.Subscribe(topic, w.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Handle records one event. Returning an error makes the queue retry.
func (w *Worker) Handle(payload any) error {
	ev, ok := payload.(queue.Event)
	if !ok {
		logrus.Warnf("Worker: unexpected payload %T", payload)
		return nil
	}
	if ev.IdempotencyKey == "" {
		return nil
	}

	entry := journal.Entry{
		IdempotencyKey: ev.IdempotencyKey,
		CampaignID:     ev.CampaignID,
		Action:         string(ev.Action),
		Outcome:        journal.OutcomeSucceeded,
		Error:          ev.Error,
		CreatedAt:      ev.OccurredAt,
	}
	if ev.Type == queue.TopicDispatchFailed {
		entry.Outcome = journal.OutcomeFailed
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := w.Journal.Record(ctx, entry); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"campaign_id": ev.CampaignID,
		"action":      ev.Action,
		"outcome":     entry.Outcome,
	}).Debug("Worker: dispatch recorded")
	return nil
}
