// internal/service/campaign_service.go
package service

import (
	"context"
	"io"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/newsletter-backoffice/internal/journal"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/repository"
)

// CampaignService backs the administration endpoints around the wizard:
// listing, deletion, statistics, export and dispatch history.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ReportRepo   repository.ReportRepositoryInterface
	Audience     *AudienceResolver
	Journal      journal.Journal
}

// ListCampaigns fetches campaigns with pagination. The backend returns the
// whole list, so filtering and paging happen here. Newest first.
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	all, err := s.CampaignRepo.ListCampaigns(ctx)
	if err != nil {
		return nil, nil, err
	}

	filtered := make([]model.Campaign, 0, len(all))
	for _, c := range all {
		if status != "" && string(c.Status) != status {
			continue
		}
		filtered = append(filtered, c)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i].CreatedAt, filtered[j].CreatedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})

	total := len(filtered)
	campaigns := []model.Campaign{}
	if offset < total {
		end := offset + pageSize
		if end > total {
			end = total
		}
		campaigns = filtered[offset:end]
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

// GetCampaign returns one campaign with its engagement stats.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.CampaignRepo.Delete(ctx, id); err != nil {
		return err
	}
	logrus.WithField("campaign_id", id).Info("CampaignService: campaign deleted")
	return nil
}

func (s *CampaignService) Specialities(ctx context.Context) ([]model.Speciality, error) {
	return s.Audience.Specialities(ctx)
}

func (s *CampaignService) Statistics(ctx context.Context) (model.Statistics, error) {
	return s.ReportRepo.Statistics(ctx)
}

// Export returns the subscriber CSV. The caller closes it.
func (s *CampaignService) Export(ctx context.Context) (io.ReadCloser, string, error) {
	return s.ReportRepo.Export(ctx)
}

// DispatchHistory lists the recorded dispatch attempts for a campaign.
func (s *CampaignService) DispatchHistory(ctx context.Context, campaignID string) ([]journal.Entry, error) {
	if s.Journal == nil {
		return []journal.Entry{}, nil
	}
	return s.Journal.ListByCampaign(ctx, campaignID)
}
