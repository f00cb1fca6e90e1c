// internal/controller/wizard_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
	"github.com/unclebandit/newsletter-backoffice/internal/wizard"
)

// WizardController exposes wizard sessions over HTTP.
type WizardController struct {
	Registry  *wizard.Registry
	NewWizard func(initial *model.Campaign) *wizard.Controller
	Now       func() time.Time
}

// Routes mounts the wizard endpoints on r.
func (c *WizardController) Routes(r chi.Router) {
	r.Post("/wizards", c.CreateWizard)
	r.Route("/wizards/{id}", func(r chi.Router) {
		r.Get("/", c.GetWizard)
		r.Delete("/", c.CloseWizard)
		r.Patch("/campaign", c.UpdateCampaign)
		r.Put("/audience", c.SetAudience)
		r.Post("/test-emails", c.AddTestEmail)
		r.Delete("/test-emails/{email}", c.RemoveTestEmail)
		r.Post("/next", c.Next)
		r.Post("/previous", c.Previous)
		r.Post("/save-draft", c.SaveDraft)
		r.Post("/send-test", c.SendTest)
		r.Post("/send", c.Send)
		r.Post("/schedule", c.Schedule)
	})
}

func (c *WizardController) CreateWizard(w http.ResponseWriter, r *http.Request) {
	var initial *model.Campaign
	if r.ContentLength != 0 {
		var body model.Campaign
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if body.TestEmails == nil {
			body.TestEmails = []string{}
		}
		if body.Status == "" {
			body.Status = model.StatusDraft
		}
		initial = &body
	}

	wz := c.NewWizard(initial)
	c.Registry.Add(wz)
	logrus.WithField("wizard_id", wz.ID()).Info("WizardController: session opened")
	c.writeView(w, http.StatusCreated, wz)
}

func (c *WizardController) GetWizard(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	c.writeView(w, http.StatusOK, wz)
}

func (c *WizardController) CloseWizard(w http.ResponseWriter, r *http.Request) {
	if err := c.Registry.Remove(chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *WizardController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Title      *string           `json:"title"`
		Subject    *string           `json:"subject"`
		Content    json.RawMessage   `json:"content"`
		TemplateID *model.TemplateID `json:"templateId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	content, hasContent := decodeContent(body.Content)

	_, err := wz.Update(func(cp model.Campaign) model.Campaign {
		if body.Title != nil {
			cp = cp.UpdateTitle(*body.Title)
		}
		if body.Subject != nil {
			cp = cp.UpdateSubject(*body.Subject)
		}
		if hasContent {
			cp = cp.UpdateContent(content)
		}
		if body.TemplateID != nil {
			cp = cp.WithTemplate(*body.TemplateID)
		}
		return cp
	})
	c.respond(w, wz, err)
}

func (c *WizardController) SetAudience(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Type          model.AudienceType `json:"type"`
		SpecialityIDs []string           `json:"specialityIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !body.Type.Valid() {
		http.Error(w, "unknown audience type", http.StatusBadRequest)
		return
	}
	_, err := wz.SetAudience(r.Context(), body.Type, body.SpecialityIDs)
	c.respond(w, wz, err)
}

func (c *WizardController) AddTestEmail(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	_, err := wz.Update(func(cp model.Campaign) model.Campaign { return cp.AddTestEmail(body.Email) })
	c.respond(w, wz, err)
}

func (c *WizardController) RemoveTestEmail(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	email := chi.URLParam(r, "email")
	_, err := wz.Update(func(cp model.Campaign) model.Campaign { return cp.RemoveTestEmail(email) })
	c.respond(w, wz, err)
}

func (c *WizardController) Next(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	c.respond(w, wz, wz.Next())
}

func (c *WizardController) Previous(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	c.respond(w, wz, wz.Previous())
}

func (c *WizardController) SaveDraft(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	c.respond(w, wz, wz.SaveDraft(r.Context()))
}

func (c *WizardController) SendTest(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	c.respond(w, wz, wz.SendTest(r.Context()))
}

func (c *WizardController) Send(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	c.respond(w, wz, wz.SendNow(r.Context()))
}

func (c *WizardController) Schedule(w http.ResponseWriter, r *http.Request) {
	wz, ok := c.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		ScheduledAt time.Time `json:"scheduledAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: scheduledAt must be RFC 3339", http.StatusBadRequest)
		return
	}
	c.respond(w, wz, wz.Schedule(r.Context(), body.ScheduledAt))
}

func (c *WizardController) lookup(w http.ResponseWriter, r *http.Request) (*wizard.Controller, bool) {
	wz, err := c.Registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return wz, true
}

// respond writes the session view with a status derived from err.
func (c *WizardController) respond(w http.ResponseWriter, wz *wizard.Controller, err error) {
	c.writeView(w, statusFor(err), wz)
}

func statusFor(err error) int {
	var (
		verrs      appErrors.ValidationErrors
		persistErr *appErrors.PersistError
		apiErr     *appErrors.APIError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, appErrors.ErrWizardNotFound):
		return http.StatusNotFound
	case errors.As(err, &verrs),
		errors.Is(err, appErrors.ErrScheduleInPast),
		errors.Is(err, appErrors.ErrNoTestEmails):
		return http.StatusUnprocessableEntity
	case errors.Is(err, appErrors.ErrActionInFlight):
		return http.StatusConflict
	case errors.As(err, &persistErr), errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (c *WizardController) writeView(w http.ResponseWriter, status int, wz *wizard.Controller) {
	state := wz.Snapshot()
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	view := map[string]interface{}{
		"id":              state.ID,
		"step":            state.Step,
		"steps":           wizard.Steps(),
		"campaign":        state.Campaign,
		"errors":          state.Errors,
		"notice":          state.Notice,
		"alert":           state.Alert,
		"inFlight":        state.InFlight,
		"minScheduleTime": service.MinScheduleTime(now),
	}
	if state.Step >= wizard.StepPreview {
		view["preview"] = service.RenderPreview(state.Campaign)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(view)
}

// decodeContent accepts content as a JSON string or as a raw rich-text
// document, which is stored verbatim.
func decodeContent(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}
