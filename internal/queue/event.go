package queue

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

// Lifecycle topics.
const (
	TopicSaved          = "campaign.saved"
	TopicTestSent       = "campaign.test_sent"
	TopicSent           = "campaign.sent"
	TopicScheduled      = "campaign.scheduled"
	TopicDispatchFailed = "campaign.dispatch_failed"
)

// DispatchTopics are the topics that describe a dispatch attempt.
var DispatchTopics = []string{TopicTestSent, TopicSent, TopicScheduled, TopicDispatchFailed}

// Event is the payload published on every lifecycle topic.
type Event struct {
	Type           string               `json:"type"`
	CampaignID     string               `json:"campaignId"`
	Action         model.DispatchAction `json:"action,omitempty"`
	Status         model.Status         `json:"status,omitempty"`
	ScheduledAt    *time.Time           `json:"scheduledAt,omitempty"`
	IdempotencyKey string               `json:"idempotencyKey,omitempty"`
	Error          string               `json:"error,omitempty"`
	OccurredAt     time.Time            `json:"occurredAt"`
}

// Notify publishes ev on its own topic. Nobody listening is not an error;
// other failures are logged and swallowed so notification never blocks the
// caller.
func Notify(q Queue, ev Event) {
	if q == nil {
		return
	}
	err := q.Publish(ev.Type, ev)
	if err == nil || errors.Is(err, ErrNoSubscribers) {
		return
	}
	logrus.WithFields(logrus.Fields{
		"topic":       ev.Type,
		"campaign_id": ev.CampaignID,
	}).Warnf("Queue: failed to publish event: %v", err)
}
