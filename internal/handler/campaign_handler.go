// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/i18n"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
)

// CampaignHandler holds the dependencies for campaign-related HTTP handlers
type CampaignHandler struct {
	Service *service.CampaignService
	Locale  string
}

// NewCampaignHandler creates a new CampaignHandler with the given service
func NewCampaignHandler(svc *service.CampaignService, locale string) *CampaignHandler {
	return &CampaignHandler{
		Service: svc,
		Locale:  locale,
	}
}

// Routes mounts the administration endpoints on r.
func (h *CampaignHandler) Routes(r chi.Router) {
	r.Get("/campaigns", h.ListCampaignsHandler)
	r.Get("/campaigns/{id}", h.GetCampaignHandler)
	r.Delete("/campaigns/{id}", h.DeleteCampaignHandler)
	r.Get("/campaigns/{id}/journal", h.JournalHandler)
	r.Get("/specialities", h.SpecialitiesHandler)
	r.Get("/statistics", h.StatisticsHandler)
	r.Get("/export", h.ExportHandler)
}

// ListCampaignsHandler returns a paginated list of campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	pageStr := r.URL.Query().Get("page")
	pageSizeStr := r.URL.Query().Get("page_size")
	page := 1
	pageSize := 10

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 {
			pageSize = ps
		}
	}

	status := r.URL.Query().Get("status")

	campaigns, pagination, err := h.Service.ListCampaigns(r.Context(), page, pageSize, status)
	if err != nil {
		http.Error(w, "failed to fetch campaigns: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// GetCampaignHandler returns a single campaign with its stats
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	campaign, err := h.Service.GetCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, "failed to fetch campaign", err)
		return
	}

	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) DeleteCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Service.DeleteCampaign(r.Context(), id); err != nil {
		logrus.WithField("campaign_id", id).Warnf("CampaignHandler: delete failed: %v", err)
		h.writeError(w, i18n.T(h.Locale, i18n.AlertDeleteFailed), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) JournalHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.DispatchHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "failed to fetch journal: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}

func (h *CampaignHandler) SpecialitiesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Specialities(r.Context())
	if err != nil {
		h.writeError(w, "failed to fetch specialities", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"specialities": list})
}

func (h *CampaignHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Statistics(r.Context())
	if err != nil {
		h.writeError(w, "failed to fetch statistics", err)
		return
	}
	if stats.Raw != nil {
		writeJSON(w, http.StatusOK, stats.Raw)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportHandler streams the subscriber CSV as a download.
func (h *CampaignHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.Service.Export(r.Context())
	if err != nil {
		h.writeError(w, "failed to export subscribers", err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="subscribers.csv"`)
	if _, err := io.Copy(w, body); err != nil {
		logrus.Warnf("CampaignHandler: export interrupted: %v", err)
	}
}

func (h *CampaignHandler) writeError(w http.ResponseWriter, msg string, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	if errors.As(err, &notFound) {
		http.Error(w, msg+": "+err.Error(), http.StatusNotFound)
		return
	}
	if text := appErrors.ServerMessage(err); text != "" {
		http.Error(w, msg+": "+text, http.StatusBadGateway)
		return
	}
	http.Error(w, msg+": "+err.Error(), http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
