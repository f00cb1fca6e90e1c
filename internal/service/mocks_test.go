package service_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/journal"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

// Mock repositories

type MockCampaignRepo struct {
	mu          sync.Mutex
	Campaigns   []model.Campaign
	CreateErr   error
	CreateDelay time.Duration
	CreateNoID  bool
	Creates     int
	Updates     int
	Lists       int
	nextID      int
}

func (m *MockCampaignRepo) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists++
	return append([]model.Campaign(nil), m.Campaigns...), nil
}

func (m *MockCampaignRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists++
	for _, c := range m.Campaigns {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (m *MockCampaignRepo) Create(ctx context.Context, d model.Draft) (model.Campaign, error) {
	if m.CreateDelay > 0 {
		time.Sleep(m.CreateDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates++
	if err := ctx.Err(); err != nil {
		return model.Campaign{}, err
	}
	if m.CreateErr != nil {
		return model.Campaign{}, m.CreateErr
	}
	if m.CreateNoID {
		return fromDraft("", d), nil
	}
	m.nextID++
	c := fromDraft(fmt.Sprintf("c%d", m.nextID), d)
	m.Campaigns = append(m.Campaigns, c)
	return c, nil
}

func (m *MockCampaignRepo) Update(ctx context.Context, id string, d model.Draft) (model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	for i, c := range m.Campaigns {
		if c.ID == id {
			updated := fromDraft(id, d)
			updated.Status = c.Status
			m.Campaigns[i] = updated
			return updated, nil
		}
	}
	return model.Campaign{}, appErrors.NewCampaignNotFound(id)
}

func (m *MockCampaignRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.Campaigns {
		if c.ID == id {
			m.Campaigns = append(m.Campaigns[:i], m.Campaigns[i+1:]...)
			return nil
		}
	}
	return appErrors.NewCampaignNotFound(id)
}

func (m *MockCampaignRepo) SetStatus(id string, status model.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Campaigns {
		if m.Campaigns[i].ID == id {
			m.Campaigns[i].Status = status
		}
	}
}

func fromDraft(id string, d model.Draft) model.Campaign {
	return model.Campaign{
		ID:         id,
		Title:      d.Title,
		Subject:    d.Subject,
		Content:    d.Content,
		TemplateID: d.TemplateID,
		Audience:   d.Audience,
		TestEmails: d.TestEmails,
		Status:     model.StatusDraft,
	}
}

type sentMail struct {
	Req model.SendMailRequest
	Key string
}

type MockMailRepo struct {
	mu       sync.Mutex
	Sent     []sentMail
	Response model.SendMailResponse
	Err      error
}

func (m *MockMailRepo) SendMail(ctx context.Context, req model.SendMailRequest, key string) (model.SendMailResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMail{Req: req, Key: key})
	if m.Err != nil {
		return model.SendMailResponse{}, m.Err
	}
	return m.Response, nil
}

func (m *MockMailRepo) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

type MockSpecialityRepo struct {
	mu           sync.Mutex
	Specialities []model.Speciality
	All          int
	PerID        map[string]int
	Err          error
	Queries      [][]string
}

func (m *MockSpecialityRepo) ListSpecialities(ctx context.Context) ([]model.Speciality, error) {
	return m.Specialities, nil
}

func (m *MockSpecialityRepo) CountAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, nil)
	return m.All, m.Err
}

func (m *MockSpecialityRepo) CountBySpecialities(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, append([]string(nil), ids...))
	if m.Err != nil {
		return 0, m.Err
	}
	total := 0
	for _, id := range ids {
		total += m.PerID[id]
	}
	return total, nil
}

func (m *MockSpecialityRepo) QueryLog() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.Queries...)
}

type MockReportRepo struct{}

func (MockReportRepo) Statistics(ctx context.Context) (model.Statistics, error) {
	return model.Statistics{TotalSubscribers: 42}, nil
}

func (MockReportRepo) Export(ctx context.Context) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader("email\na@example.com\n")), "text/csv", nil
}

type MemoryJournal struct {
	mu      sync.Mutex
	Entries []journal.Entry
	Err     error
}

func (j *MemoryJournal) Record(ctx context.Context, e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Err != nil {
		return j.Err
	}
	j.Entries = append(j.Entries, e)
	return nil
}

func (j *MemoryJournal) ListByCampaign(ctx context.Context, id string) ([]journal.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []journal.Entry{}
	for _, e := range j.Entries {
		if e.CampaignID == id {
			out = append(out, e)
		}
	}
	return out, nil
}
