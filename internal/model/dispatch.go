// internal/model/dispatch.go
package model

import "time"

// DispatchAction is one of the three ways a campaign triggers outbound email.
type DispatchAction string

const (
	ActionTest     DispatchAction = "test"
	ActionSend     DispatchAction = "send"
	ActionSchedule DispatchAction = "schedule"
)

type SendMailRequest struct {
	Type        DispatchAction `json:"type"`
	CampaignID  string         `json:"campaignId"`
	TestEmails  []string       `json:"testEmails,omitempty"`
	ScheduledAt string         `json:"scheduledAt,omitempty"`
}

type SendMailResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Statistics holds the aggregate subscriber and engagement metrics. Raw keeps
// the full payload for fields this package does not model.
type Statistics struct {
	TotalSubscribers  int            `json:"totalSubscribers"`
	ActiveSubscribers int            `json:"activeSubscribers"`
	Unsubscribed      int            `json:"unsubscribed"`
	CampaignsSent     int            `json:"campaignsSent"`
	AverageOpenRate   float64        `json:"averageOpenRate"`
	AverageClickRate  float64        `json:"averageClickRate"`
	Raw               map[string]any `json:"-"`
}

// DispatchOutcome is what a dispatch attempt produced.
type DispatchOutcome struct {
	Action         DispatchAction
	Campaign       Campaign
	Message        string
	IdempotencyKey string
	At             time.Time
}
