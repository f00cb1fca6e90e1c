package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/repository"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *repository.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return repository.NewClient(srv.URL+"/api/newsletters/", "secret", 2*time.Second)
}

func TestListCampaignsToleratesBackendShapes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/newsletters/campaigns", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"campaigns":[
			{"id":42,"title":"Numeric","content":{"blocks":[]},"status":"sent","stats":{"totalSent":10}},
			{"id":"c2","title":"Plain","content":"hello","testEmails":["a@example.com"]}
		]}`))
	})
	repo := &repository.CampaignRepository{Client: client}

	campaigns, err := repo.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 2)

	assert.Equal(t, "42", campaigns[0].ID)
	assert.JSONEq(t, `{"blocks":[]}`, campaigns[0].Content)
	assert.Equal(t, model.StatusSent, campaigns[0].Status)
	assert.Equal(t, 10, campaigns[0].Stats.TotalSent)
	assert.Equal(t, []string{}, campaigns[0].TestEmails)

	assert.Equal(t, "c2", campaigns[1].ID)
	assert.Equal(t, "hello", campaigns[1].Content)
	assert.Equal(t, model.StatusDraft, campaigns[1].Status)
}

func TestCreateSendsEditableFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/newsletters/campaigns", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "March Newsletter", body["title"])
		assert.Equal(t, "basic", body["templateId"])
		assert.Equal(t, map[string]any{"type": "all", "subscriberCount": float64(3)}, body["audience"])
		assert.Equal(t, []any{}, body["testEmails"])
		w.Write([]byte(`{"campaign":{"id":"c1","title":"March Newsletter","status":"draft"}}`))
	})
	repo := &repository.CampaignRepository{Client: client}

	c := model.NewCampaign().
		UpdateTitle("March Newsletter").
		UpdateAudience(model.NewAudience(model.AudienceAll, nil, 3))
	created, err := repo.Create(context.Background(), c.EditableFields())
	require.NoError(t, err)
	assert.Equal(t, "c1", created.ID)
}

func TestDocumentContentSurvivesReadAndUpdate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"campaigns":[{"id":"c1","title":"March","content":{"blocks":[]}}]}`))
		case http.MethodPut:
			var body map[string]json.RawMessage
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.JSONEq(t, `{"blocks":[]}`, string(body["content"]))
			w.Write([]byte(`{"campaign":{"id":"c1","content":{"blocks":[]}}}`))
		}
	})
	repo := &repository.CampaignRepository{Client: client}

	c, err := repo.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	updated, err := repo.Update(context.Background(), c.ID, c.EditableFields())
	require.NoError(t, err)
	assert.Equal(t, `{"blocks":[]}`, updated.Content)
}

func TestUpdateAndDeleteMapNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/newsletters/campaigns/gone", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
	repo := &repository.CampaignRepository{Client: client}

	_, err := repo.Update(context.Background(), "gone", model.Draft{})
	var notFound *appErrors.ErrCampaignNotFound
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "gone", notFound.CampaignID)

	err = repo.Delete(context.Background(), "gone")
	require.True(t, errors.As(err, &notFound))
}

func TestGetByIDSearchesList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"campaigns":[{"id":"c1","status":"scheduled"}]}`))
	})
	repo := &repository.CampaignRepository{Client: client}

	c, err := repo.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, c.Status)

	_, err = repo.GetByID(context.Background(), "c2")
	var notFound *appErrors.ErrCampaignNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestSendMailCarriesIdempotencyKeyAndServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get(repository.IdempotencyHeader))
		var req model.SendMailRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, model.ActionTest, req.Type)
		assert.Equal(t, []string{"qa@example.com"}, req.TestEmails)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"SMTP unavailable"}`))
	})
	repo := &repository.MailRepository{Client: client}

	_, err := repo.SendMail(context.Background(), model.SendMailRequest{
		Type:       model.ActionTest,
		CampaignID: "c1",
		TestEmails: []string{"qa@example.com"},
	}, "key-1")

	var apiErr *appErrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "SMTP unavailable", apiErr.Message)
}

func TestAudienceCounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "all", r.URL.Query().Get("type"))
			w.Write([]byte(`{"count":120}`))
		case http.MethodPost:
			var body struct {
				Type          string   `json:"type"`
				SpecialityIDs []string `json:"specialityIds"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "specialities", body.Type)
			assert.Equal(t, []string{"s1", "s2"}, body.SpecialityIDs)
			w.Write([]byte(`{"count":7}`))
		}
	})
	repo := &repository.SpecialityRepository{Client: client}

	all, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, all)

	some, err := repo.CountBySpecialities(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, 7, some)
}

func TestListSpecialities(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"specialities":[{"id":"s1","libelle":"Engineering","subscriberCount":4}]}`))
	})
	repo := &repository.SpecialityRepository{Client: client}

	list, err := repo.ListSpecialities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Speciality{{ID: "s1", Libelle: "Engineering", SubscriberCount: 4}}, list)
}

func TestStatisticsKeepsRawPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalSubscribers":50,"averageOpenRate":0.4,"bySource":{"web":30}}`))
	})
	repo := &repository.ReportRepository{Client: client}

	stats, err := repo.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, stats.TotalSubscribers)
	assert.InDelta(t, 0.4, stats.AverageOpenRate, 1e-9)
	assert.Contains(t, stats.Raw, "bySource")
}

func TestExportStreamsCSV(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("email,speciality\na@example.com,s1\n"))
	})
	repo := &repository.ReportRepository{Client: client}

	body, contentType, err := repo.Export(context.Background())
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "email,speciality\na@example.com,s1\n", string(data))
}
