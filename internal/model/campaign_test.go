package model_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

func TestNewCampaignDefaults(t *testing.T) {
	c := model.NewCampaign()
	if c.IsPersisted() {
		t.Fatalf("new campaign must not be persisted")
	}
	if c.Status != model.StatusDraft {
		t.Errorf("expected draft, got %s", c.Status)
	}
	if c.TemplateID != model.TemplateBasic {
		t.Errorf("expected basic template, got %s", c.TemplateID)
	}
	if c.TestEmails == nil || len(c.TestEmails) != 0 {
		t.Errorf("expected empty test emails, got %v", c.TestEmails)
	}
}

func TestAddTestEmailIsIdempotent(t *testing.T) {
	c := model.NewCampaign().
		AddTestEmail("ops@example.com").
		AddTestEmail("ops@example.com")

	if diff := cmp.Diff([]string{"ops@example.com"}, c.TestEmails); diff != "" {
		t.Fatalf("test emails mismatch (-want +got):\n%s", diff)
	}
}

func TestAddTestEmailRejectsInvalid(t *testing.T) {
	base := model.NewCampaign().AddTestEmail("a@example.com")
	for _, email := range []string{"", "   ", "not-an-email", "example.com"} {
		got := base.AddTestEmail(email)
		if diff := cmp.Diff(base.TestEmails, got.TestEmails); diff != "" {
			t.Errorf("AddTestEmail(%q) changed emails (-want +got):\n%s", email, diff)
		}
	}
}

func TestAddTestEmailPreservesOrder(t *testing.T) {
	c := model.NewCampaign().
		AddTestEmail("b@example.com").
		AddTestEmail(" a@example.com ").
		AddTestEmail("c@example.com")

	want := []string{"b@example.com", "a@example.com", "c@example.com"}
	if diff := cmp.Diff(want, c.TestEmails); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveTestEmail(t *testing.T) {
	c := model.NewCampaign().
		AddTestEmail("a@example.com").
		AddTestEmail("b@example.com")

	removed := c.RemoveTestEmail("a@example.com")
	if diff := cmp.Diff([]string{"b@example.com"}, removed.TestEmails); diff != "" {
		t.Errorf("remove mismatch (-want +got):\n%s", diff)
	}
	if len(c.TestEmails) != 2 {
		t.Errorf("receiver was mutated: %v", c.TestEmails)
	}

	same := c.RemoveTestEmail("missing@example.com")
	if diff := cmp.Diff(c.TestEmails, same.TestEmails); diff != "" {
		t.Errorf("absent email changed list (-want +got):\n%s", diff)
	}
}

func TestUpdatesDoNotMutateReceiver(t *testing.T) {
	orig := model.NewCampaign().
		UpdateTitle("March Newsletter").
		UpdateAudience(model.NewAudience(model.AudienceSpecialities, []string{"s1"}, 4)).
		AddTestEmail("a@example.com")
	snapshot := orig.UpdateTitle(orig.Title)

	_ = orig.UpdateTitle("other")
	_ = orig.UpdateSubject("subject")
	_ = orig.UpdateContent("{}")
	_ = orig.WithTemplate(model.TemplateNewsletter)
	_ = orig.AddTestEmail("b@example.com")
	_ = orig.Schedule(time.Now())
	changed := orig.UpdateAudience(model.NewAudience(model.AudienceAll, nil, 10))
	changed.Audience.SpecialityIDs = append(changed.Audience.SpecialityIDs, "x")

	if diff := cmp.Diff(snapshot, orig); diff != "" {
		t.Fatalf("receiver mutated (-want +got):\n%s", diff)
	}
}

func TestWithTemplateDefaultsUnknown(t *testing.T) {
	c := model.NewCampaign().WithTemplate("fancy")
	if c.TemplateID != model.TemplateBasic {
		t.Fatalf("expected basic, got %s", c.TemplateID)
	}
	c = c.WithTemplate(model.TemplateAnnouncement)
	if c.TemplateID != model.TemplateAnnouncement {
		t.Fatalf("expected announcement, got %s", c.TemplateID)
	}
}

func TestLocalMarkers(t *testing.T) {
	at := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
	c := model.NewCampaign()

	if got := c.Send().Status; got != model.StatusSending {
		t.Errorf("Send: expected sending, got %s", got)
	}
	scheduled := c.Schedule(at)
	if scheduled.Status != model.StatusScheduled {
		t.Errorf("Schedule: expected scheduled, got %s", scheduled.Status)
	}
	if scheduled.ScheduledAt == nil || !scheduled.ScheduledAt.Equal(at) {
		t.Errorf("Schedule: expected %v, got %v", at, scheduled.ScheduledAt)
	}
	if c.Status != model.StatusDraft || c.ScheduledAt != nil {
		t.Errorf("receiver mutated: %+v", c)
	}
}

func TestEditableFields(t *testing.T) {
	c := model.Campaign{
		ID:       "c1",
		Title:    "March Newsletter",
		Subject:  "New roles",
		Content:  `{"blocks":[]}`,
		Audience: &model.Audience{Type: model.AudienceAll, SubscriberCount: 12},
		Status:   model.StatusSent,
	}
	want := model.Draft{
		Title:      "March Newsletter",
		Subject:    "New roles",
		Content:    `{"blocks":[]}`,
		TemplateID: model.TemplateBasic,
		Audience:   &model.Audience{Type: model.AudienceAll, SubscriberCount: 12},
		TestEmails: []string{},
	}
	if diff := cmp.Diff(want, c.EditableFields()); diff != "" {
		t.Fatalf("draft mismatch (-want +got):\n%s", diff)
	}
}

func TestIsTerminal(t *testing.T) {
	cases := map[model.Status]bool{
		model.StatusDraft:     false,
		model.StatusScheduled: false,
		model.StatusSending:   false,
		model.StatusPaused:    false,
		model.StatusSent:      true,
		model.StatusCancelled: true,
	}
	for status, want := range cases {
		if got := (model.Campaign{Status: status}).IsTerminal(); got != want {
			t.Errorf("status %s: expected %v, got %v", status, want, got)
		}
	}
}
