package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

// ReportRepositoryInterface covers the read-only statistics and export.
type ReportRepositoryInterface interface {
	Statistics(ctx context.Context) (model.Statistics, error)
	Export(ctx context.Context) (io.ReadCloser, string, error)
}

type ReportRepository struct {
	Client *Client
}

func (r *ReportRepository) Statistics(ctx context.Context) (model.Statistics, error) {
	var raw json.RawMessage
	if err := r.Client.doJSON(ctx, "statistics", http.MethodGet, "/statistics", nil, nil, &raw); err != nil {
		return model.Statistics{}, err
	}
	var stats model.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return model.Statistics{}, err
	}
	if err := json.Unmarshal(raw, &stats.Raw); err != nil {
		return model.Statistics{}, err
	}
	return stats, nil
}

// Export returns the CSV body and its content type. The caller closes it.
func (r *ReportRepository) Export(ctx context.Context) (io.ReadCloser, string, error) {
	return r.Client.stream(ctx, "export subscribers", "/export")
}

var _ ReportRepositoryInterface = (*ReportRepository)(nil)
