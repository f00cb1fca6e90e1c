package repository

import (
	"context"
	"net/http"
	"net/url"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

// SpecialityRepositoryInterface covers the reference data and audience counts.
type SpecialityRepositoryInterface interface {
	ListSpecialities(ctx context.Context) ([]model.Speciality, error)
	CountAll(ctx context.Context) (int, error)
	CountBySpecialities(ctx context.Context, ids []string) (int, error)
}

type SpecialityRepository struct {
	Client *Client
}

type countResponse struct {
	Count int `json:"count"`
}

func (r *SpecialityRepository) ListSpecialities(ctx context.Context) ([]model.Speciality, error) {
	var out struct {
		Specialities []model.Speciality `json:"specialities"`
	}
	if err := r.Client.doJSON(ctx, "list specialities", http.MethodGet, "/specialities", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Specialities == nil {
		out.Specialities = []model.Speciality{}
	}
	return out.Specialities, nil
}

func (r *SpecialityRepository) CountAll(ctx context.Context) (int, error) {
	var out countResponse
	query := url.Values{"type": []string{string(model.AudienceAll)}}
	if err := r.Client.doJSON(ctx, "count audience", http.MethodGet, "/audience-count", query, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (r *SpecialityRepository) CountBySpecialities(ctx context.Context, ids []string) (int, error) {
	body := struct {
		Type          model.AudienceType `json:"type"`
		SpecialityIDs []string           `json:"specialityIds"`
	}{model.AudienceSpecialities, ids}
	var out countResponse
	if err := r.Client.doJSON(ctx, "count audience", http.MethodPost, "/audience-count", nil, body, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

var _ SpecialityRepositoryInterface = (*SpecialityRepository)(nil)
