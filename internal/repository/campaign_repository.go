package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

type CampaignRepositoryInterface interface {
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	Create(ctx context.Context, d model.Draft) (model.Campaign, error)
	Update(ctx context.Context, id string, d model.Draft) (model.Campaign, error)
	Delete(ctx context.Context, id string) error
}

type CampaignRepository struct {
	Client *Client
}

// campaignJSON tolerates the shapes the backend has been seen to return:
// numeric ids and rich-text content sent as a JSON document instead of a
// string.
type campaignJSON struct {
	ID          json.RawMessage  `json:"id"`
	Title       string           `json:"title"`
	Subject     string           `json:"subject"`
	Content     json.RawMessage  `json:"content"`
	TemplateID  model.TemplateID `json:"templateId"`
	Audience    *model.Audience  `json:"audience"`
	TestEmails  []string         `json:"testEmails"`
	Status      model.Status     `json:"status"`
	ScheduledAt *time.Time       `json:"scheduledAt"`
	SentAt      *time.Time       `json:"sentAt"`
	Stats       *model.Stats     `json:"stats"`
	CreatedAt   *time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time       `json:"updatedAt"`
}

func (j campaignJSON) toModel() model.Campaign {
	c := model.Campaign{
		ID:          rawString(j.ID),
		Title:       j.Title,
		Subject:     j.Subject,
		Content:     model.ContentString(j.Content),
		TemplateID:  j.TemplateID,
		Audience:    j.Audience,
		TestEmails:  j.TestEmails,
		Status:      j.Status,
		ScheduledAt: j.ScheduledAt,
		SentAt:      j.SentAt,
		Stats:       j.Stats,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if c.TestEmails == nil {
		c.TestEmails = []string{}
	}
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	return c
}

// rawString reads ids the backend may send as numbers or strings.
func rawString(raw json.RawMessage) string {
	return model.ContentString(raw)
}

type campaignEnvelope struct {
	Campaign campaignJSON `json:"campaign"`
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	var out struct {
		Campaigns []campaignJSON `json:"campaigns"`
	}
	if err := r.Client.doJSON(ctx, "list campaigns", http.MethodGet, "/campaigns", nil, nil, &out); err != nil {
		return nil, err
	}
	campaigns := make([]model.Campaign, 0, len(out.Campaigns))
	for _, c := range out.Campaigns {
		campaigns = append(campaigns, c.toModel())
	}
	return campaigns, nil
}

// GetByID finds the campaign in the list endpoint; the backend exposes no
// single-campaign read.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	campaigns, err := r.ListCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	for i := range campaigns {
		if campaigns[i].ID == id {
			return &campaigns[i], nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (r *CampaignRepository) Create(ctx context.Context, d model.Draft) (model.Campaign, error) {
	var out campaignEnvelope
	if err := r.Client.doJSON(ctx, "create campaign", http.MethodPost, "/campaigns", nil, d, &out); err != nil {
		return model.Campaign{}, err
	}
	return out.Campaign.toModel(), nil
}

func (r *CampaignRepository) Update(ctx context.Context, id string, d model.Draft) (model.Campaign, error) {
	var out campaignEnvelope
	path := "/campaigns/" + url.PathEscape(id)
	if err := r.Client.doJSON(ctx, "update campaign", http.MethodPut, path, nil, d, &out); err != nil {
		if isNotFound(err) {
			return model.Campaign{}, appErrors.NewCampaignNotFound(id)
		}
		return model.Campaign{}, err
	}
	return out.Campaign.toModel(), nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	path := "/campaigns/" + url.PathEscape(id)
	err := r.Client.doJSON(ctx, "delete campaign", http.MethodDelete, path, nil, nil, nil)
	if isNotFound(err) {
		return appErrors.NewCampaignNotFound(id)
	}
	return err
}

func isNotFound(err error) bool {
	var apiErr *appErrors.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
