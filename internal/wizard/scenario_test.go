package wizard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/repository"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
	"github.com/unclebandit/newsletter-backoffice/internal/wizard"
)

// fakeBackend mimics the newsletter API and logs every request.
type fakeBackend struct {
	mu       sync.Mutex
	requests []string
	mails    []model.SendMailRequest
	status   string
}

func (b *fakeBackend) log(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/audience-count", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		json.NewEncoder(w).Encode(map[string]int{"count": 1200})
	})
	mux.HandleFunc("/specialities", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		json.NewEncoder(w).Encode(map[string]any{"specialities": []map[string]any{
			{"id": "dev", "libelle": "Developers", "subscriberCount": 42},
		}})
	})
	mux.HandleFunc("/campaigns", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		switch r.Method {
		case http.MethodPost:
			var d model.Draft
			json.NewDecoder(r.Body).Decode(&d)
			json.NewEncoder(w).Encode(map[string]any{"campaign": map[string]any{
				"id": "c1", "title": d.Title, "subject": d.Subject, "content": d.Content,
				"audience": d.Audience, "status": "draft",
			}})
		case http.MethodGet:
			b.mu.Lock()
			status := b.status
			b.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"campaigns": []map[string]any{
				{"id": "c1", "title": "March Newsletter", "subject": "New roles", "status": status},
			}})
		}
	})
	mux.HandleFunc("/send-mail", func(w http.ResponseWriter, r *http.Request) {
		b.log(r)
		var req model.SendMailRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.mails = append(b.mails, req)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"message": "Sent"})
	})
	return mux
}

func TestMarchNewsletterSendNow(t *testing.T) {
	backend := &fakeBackend{status: "sent"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := repository.NewClient(srv.URL, "", 5*time.Second)
	campaigns := &repository.CampaignRepository{Client: client}
	resolver := service.NewAudienceResolver(&repository.SpecialityRepository{Client: client})
	dispatcher := service.NewDispatcher(campaigns, &repository.MailRepository{Client: client}, nil)
	w := wizard.New(resolver, dispatcher, nil)
	ctx := context.Background()

	w.Update(func(c model.Campaign) model.Campaign {
		return c.UpdateTitle("March Newsletter").UpdateSubject("New roles")
	})
	require.NoError(t, w.Next())
	w.Update(func(c model.Campaign) model.Campaign { return c.UpdateContent(`{"blocks":[]}`) })
	require.NoError(t, w.Next())
	audience, err := w.SetAudience(ctx, model.AudienceAll, nil)
	require.NoError(t, err)
	assert.Equal(t, 1200, audience.SubscriberCount)
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	assert.Equal(t, wizard.StepSchedule, w.Step())

	require.NoError(t, w.SendNow(ctx))

	assert.Equal(t, []string{
		"GET /audience-count",
		"POST /campaigns",
		"POST /send-mail",
		"GET /campaigns",
	}, backend.requests)
	assert.Equal(t, []model.SendMailRequest{{Type: model.ActionSend, CampaignID: "c1"}}, backend.mails)

	final := w.Campaign()
	assert.Equal(t, "c1", final.ID)
	assert.Equal(t, model.StatusSent, final.Status)
	assert.Equal(t, "Campaign is being sent.", w.Notice())
}

func TestScheduleInPastNeverReachesBackend(t *testing.T) {
	backend := &fakeBackend{status: "scheduled"}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	now := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	client := repository.NewClient(srv.URL, "", 5*time.Second)
	dispatcher := service.NewDispatcher(&repository.CampaignRepository{Client: client}, &repository.MailRepository{Client: client}, nil)
	dispatcher.Now = func() time.Time { return now }
	w := wizard.New(nil, dispatcher, nil, wizard.WithClock(func() time.Time { return now }))

	require.Error(t, w.Schedule(context.Background(), now.Add(-time.Second)))
	require.Error(t, w.Schedule(context.Background(), now))

	assert.Empty(t, backend.requests)
	assert.Empty(t, w.Campaign().ID)
}

func TestUnknownSpecialitiesNeverReachTheCampaign(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := repository.NewClient(srv.URL, "", 5*time.Second)
	resolver := service.NewAudienceResolver(&repository.SpecialityRepository{Client: client})
	dispatcher := service.NewDispatcher(&repository.CampaignRepository{Client: client}, &repository.MailRepository{Client: client}, nil)
	w := wizard.New(resolver, dispatcher, nil)
	ctx := context.Background()

	w.Update(func(c model.Campaign) model.Campaign {
		return c.UpdateTitle("March Newsletter").UpdateSubject("New roles").UpdateContent("<p>hi</p>")
	})
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())

	audience, err := w.SetAudience(ctx, model.AudienceSpecialities, []string{"bogus", "dev"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, audience.SpecialityIDs)
	assert.Equal(t, []string{"dev"}, w.Campaign().Audience.SpecialityIDs)

	audience, err = w.SetAudience(ctx, model.AudienceSpecialities, []string{"bogus"})
	require.NoError(t, err)
	assert.Empty(t, audience.SpecialityIDs)
	assert.Equal(t, 0, audience.SubscriberCount)

	// the list is fetched once and reused
	assert.Equal(t, []string{
		"GET /specialities",
		"POST /audience-count",
	}, backend.requests)
}
