package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/queue"
	"github.com/unclebandit/newsletter-backoffice/internal/repository"
)

// Dispatcher runs the two-phase dispatch protocol: make sure the campaign
// exists on the server, then ask the server to send mail for it.
type Dispatcher struct {
	Gate      *DraftGate
	Campaigns repository.CampaignRepositoryInterface
	Mail      repository.MailRepositoryInterface
	Queue     queue.Queue
	Now       func() time.Time
	NewKey    func() string
}

func NewDispatcher(campaigns repository.CampaignRepositoryInterface, mail repository.MailRepositoryInterface, q queue.Queue) *Dispatcher {
	return &Dispatcher{
		Gate:      NewDraftGate(campaigns),
		Campaigns: campaigns,
		Mail:      mail,
		Queue:     q,
	}
}

// MinScheduleTime is the earliest time a schedule picker should offer: the
// next whole minute after now.
func MinScheduleTime(now time.Time) time.Time {
	return now.Truncate(time.Minute).Add(time.Minute)
}

// SaveDraft persists the editable fields under key.
func (d *Dispatcher) SaveDraft(ctx context.Context, key string, c model.Campaign) (model.Campaign, error) {
	saved, err := d.Gate.SaveDraft(ctx, key, c)
	if err != nil {
		return saved, err
	}
	d.notify(queue.TopicSaved, "", saved, "", nil)
	return saved, nil
}

// SendTest mails the campaign to its test addresses. The campaign status is
// not changed.
func (d *Dispatcher) SendTest(ctx context.Context, key string, c model.Campaign) (model.DispatchOutcome, error) {
	if len(c.TestEmails) == 0 {
		return model.DispatchOutcome{Action: model.ActionTest, Campaign: c}, appErrors.ErrNoTestEmails
	}
	persisted, err := d.Gate.EnsurePersisted(ctx, key, c)
	if err != nil {
		return model.DispatchOutcome{Action: model.ActionTest, Campaign: c}, err
	}
	req := model.SendMailRequest{
		Type:       model.ActionTest,
		CampaignID: persisted.ID,
		TestEmails: append([]string(nil), c.TestEmails...),
	}
	return d.dispatch(ctx, req, persisted, persisted)
}

// SendNow asks the server to send the campaign immediately.
func (d *Dispatcher) SendNow(ctx context.Context, key string, c model.Campaign) (model.DispatchOutcome, error) {
	persisted, err := d.Gate.EnsurePersisted(ctx, key, c)
	if err != nil {
		return model.DispatchOutcome{Action: model.ActionSend, Campaign: c}, err
	}
	req := model.SendMailRequest{Type: model.ActionSend, CampaignID: persisted.ID}
	return d.dispatch(ctx, req, persisted, persisted.Send())
}

// Schedule asks the server to send the campaign at at. A time that is not
// strictly in the future is rejected before anything is sent.
func (d *Dispatcher) Schedule(ctx context.Context, key string, c model.Campaign, at time.Time) (model.DispatchOutcome, error) {
	if !at.After(d.now()) {
		return model.DispatchOutcome{Action: model.ActionSchedule, Campaign: c}, appErrors.ErrScheduleInPast
	}
	persisted, err := d.Gate.EnsurePersisted(ctx, key, c)
	if err != nil {
		return model.DispatchOutcome{Action: model.ActionSchedule, Campaign: c}, err
	}
	req := model.SendMailRequest{
		Type:        model.ActionSchedule,
		CampaignID:  persisted.ID,
		ScheduledAt: at.UTC().Format(time.RFC3339),
	}
	return d.dispatch(ctx, req, persisted, persisted.Schedule(at))
}

// dispatch posts req. On failure the outcome carries the persisted campaign
// so the caller keeps the id it now has.
func (d *Dispatcher) dispatch(ctx context.Context, req model.SendMailRequest, persisted, success model.Campaign) (model.DispatchOutcome, error) {
	key := d.newKey()
	out := model.DispatchOutcome{
		Action:         req.Type,
		Campaign:       persisted,
		IdempotencyKey: key,
		At:             d.now(),
	}
	log := logrus.WithFields(logrus.Fields{
		"campaign_id":     req.CampaignID,
		"action":          req.Type,
		"idempotency_key": key,
	})

	resp, err := d.Mail.SendMail(ctx, req, key)
	if err == nil && resp.Error != "" {
		err = &appErrors.APIError{Op: "send mail", StatusCode: 200, Message: resp.Error}
	}
	if err != nil {
		log.Warnf("Dispatcher: dispatch failed: %v", err)
		d.notify(queue.TopicDispatchFailed, req.Type, persisted, key, err)
		return out, err
	}

	log.Info("Dispatcher: dispatch accepted")
	out.Campaign = success
	out.Message = resp.Message
	switch req.Type {
	case model.ActionTest:
		d.notify(queue.TopicTestSent, req.Type, success, key, nil)
	case model.ActionSend:
		d.notify(queue.TopicSent, req.Type, success, key, nil)
	case model.ActionSchedule:
		d.notify(queue.TopicScheduled, req.Type, success, key, nil)
	}
	return out, nil
}

// Reconcile returns the server's copy of c, or c itself when the server does
// not list it or cannot be reached.
func (d *Dispatcher) Reconcile(ctx context.Context, c model.Campaign) model.Campaign {
	if !c.IsPersisted() {
		return c
	}
	server, err := d.Campaigns.GetByID(ctx, c.ID)
	if err != nil {
		logrus.WithField("campaign_id", c.ID).Warnf("Dispatcher: reconcile failed: %v", err)
		return c
	}
	return *server
}

// Forget releases the draft key once its wizard is gone.
func (d *Dispatcher) Forget(key string) {
	d.Gate.Forget(key)
}

func (d *Dispatcher) notify(topic string, action model.DispatchAction, c model.Campaign, key string, err error) {
	ev := queue.Event{
		Type:           topic,
		CampaignID:     c.ID,
		Action:         action,
		Status:         c.Status,
		ScheduledAt:    c.ScheduledAt,
		IdempotencyKey: key,
		OccurredAt:     d.now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	queue.Notify(d.Queue, ev)
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) newKey() string {
	if d.NewKey != nil {
		return d.NewKey()
	}
	return uuid.NewString()
}
