// internal/model/campaign.go
package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the statuses the backend can return.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusSending, StatusSent, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

type TemplateID string

const (
	TemplateBasic        TemplateID = "basic"
	TemplateNewsletter   TemplateID = "newsletter"
	TemplateAnnouncement TemplateID = "announcement"
)

// OrDefault maps an empty or unknown template to basic.
func (t TemplateID) OrDefault() TemplateID {
	switch t {
	case TemplateBasic, TemplateNewsletter, TemplateAnnouncement:
		return t
	}
	return TemplateBasic
}

type Stats struct {
	TotalSent int `json:"totalSent"`
	Opened    int `json:"opened,omitempty"`
	Clicked   int `json:"clicked,omitempty"`
	Bounced   int `json:"bounced,omitempty"`
}

// Campaign is a newsletter send unit. It is treated as a value: every
// update method returns a new Campaign and never touches the receiver's
// slices or pointers. An empty ID means the backend has not acknowledged it.
type Campaign struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Subject     string     `json:"subject"`
	Content     string     `json:"content"`
	TemplateID  TemplateID `json:"templateId,omitempty"`
	Audience    *Audience  `json:"audience,omitempty"`
	TestEmails  []string   `json:"testEmails"`
	Status      Status     `json:"status,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	Stats       *Stats     `json:"stats,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Draft is the editable subset sent on create and update.
type Draft struct {
	Title      string     `json:"title"`
	Subject    string     `json:"subject"`
	Content    string     `json:"content"`
	TemplateID TemplateID `json:"templateId"`
	Audience   *Audience  `json:"audience"`
	TestEmails []string   `json:"testEmails"`
}

// NewCampaign returns the empty campaign a wizard starts from.
func NewCampaign() Campaign {
	return Campaign{
		TemplateID: TemplateBasic,
		TestEmails: []string{},
		Status:     StatusDraft,
	}
}

func (c Campaign) IsPersisted() bool { return c.ID != "" }

// IsTerminal reports whether the server has closed the campaign.
func (c Campaign) IsTerminal() bool {
	return c.Status == StatusSent || c.Status == StatusCancelled
}

func (c Campaign) UpdateTitle(title string) Campaign {
	out := c.clone()
	out.Title = title
	return out
}

func (c Campaign) UpdateSubject(subject string) Campaign {
	out := c.clone()
	out.Subject = subject
	return out
}

func (c Campaign) UpdateContent(content string) Campaign {
	out := c.clone()
	out.Content = content
	return out
}

func (c Campaign) WithTemplate(id TemplateID) Campaign {
	out := c.clone()
	out.TemplateID = id.OrDefault()
	return out
}

// UpdateAudience replaces the audience wholesale. The caller supplies the
// recomputed subscriber count.
func (c Campaign) UpdateAudience(a Audience) Campaign {
	out := c.clone()
	cp := a.clone()
	out.Audience = &cp
	return out
}

// AddTestEmail appends email unless it has no "@" or is already listed.
func (c Campaign) AddTestEmail(email string) Campaign {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return c
	}
	for _, existing := range c.TestEmails {
		if existing == email {
			return c
		}
	}
	out := c.clone()
	out.TestEmails = append(out.TestEmails, email)
	return out
}

// RemoveTestEmail drops the first exact match of email.
func (c Campaign) RemoveTestEmail(email string) Campaign {
	for i, existing := range c.TestEmails {
		if existing != email {
			continue
		}
		out := c.clone()
		out.TestEmails = append(out.TestEmails[:i:i], c.TestEmails[i+1:]...)
		return out
	}
	return c
}

// Send marks the campaign as sending for display until the server copy
// replaces it.
func (c Campaign) Send() Campaign {
	out := c.clone()
	out.Status = StatusSending
	return out
}

// Schedule marks the campaign as scheduled at at for display until the server
// copy replaces it.
func (c Campaign) Schedule(at time.Time) Campaign {
	out := c.clone()
	out.Status = StatusScheduled
	t := at
	out.ScheduledAt = &t
	return out
}

func (c Campaign) EditableFields() Draft {
	d := Draft{
		Title:      c.Title,
		Subject:    c.Subject,
		Content:    c.Content,
		TemplateID: c.TemplateID.OrDefault(),
		TestEmails: cloneStrings(c.TestEmails),
	}
	if d.TestEmails == nil {
		d.TestEmails = []string{}
	}
	if c.Audience != nil {
		a := c.Audience.clone()
		d.Audience = &a
	}
	return d
}

func (c Campaign) clone() Campaign {
	out := c
	out.TestEmails = cloneStrings(c.TestEmails)
	if c.Audience != nil {
		a := c.Audience.clone()
		out.Audience = &a
	}
	out.ScheduledAt = cloneTime(c.ScheduledAt)
	out.SentAt = cloneTime(c.SentAt)
	out.CreatedAt = cloneTime(c.CreatedAt)
	out.UpdatedAt = cloneTime(c.UpdatedAt)
	if c.Stats != nil {
		s := *c.Stats
		out.Stats = &s
	}
	return out
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
