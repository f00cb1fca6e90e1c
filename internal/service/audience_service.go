package service

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/repository"
)

// AudienceResolver turns an audience selection into a subscriber estimate.
// Estimates are advisory: any backend failure degrades to zero.
type AudienceResolver struct {
	Repo repository.SpecialityRepositoryInterface

	mu    sync.RWMutex
	known map[string]model.Speciality
	list  []model.Speciality
}

func NewAudienceResolver(repo repository.SpecialityRepositoryInterface) *AudienceResolver {
	return &AudienceResolver{Repo: repo}
}

// Specialities returns the reference list, loading it once.
func (r *AudienceResolver) Specialities(ctx context.Context) ([]model.Speciality, error) {
	r.mu.RLock()
	list := r.list
	r.mu.RUnlock()
	if list != nil {
		return list, nil
	}

	list, err := r.Repo.ListSpecialities(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.list = list
	r.known = model.IndexSpecialities(list)
	r.mu.Unlock()
	return list, nil
}

// Known returns the loaded speciality index, or nil before the first load.
func (r *AudienceResolver) Known() map[string]model.Speciality {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.known
}

// Estimate returns the subscriber count for the selection. Custom audiences
// and empty speciality sets are zero without asking the backend.
func (r *AudienceResolver) Estimate(ctx context.Context, t model.AudienceType, ids []string) int {
	var (
		count int
		err   error
	)
	switch t {
	case model.AudienceAll:
		count, err = r.Repo.CountAll(ctx)
	case model.AudienceSpecialities:
		ids = model.NormalizeIDs(ids)
		if len(ids) == 0 {
			return 0
		}
		count, err = r.Repo.CountBySpecialities(ctx, ids)
	default:
		return 0
	}
	if err != nil {
		log := logrus.WithFields(logrus.Fields{"audience_type": t, "speciality_ids": ids})
		if errors.Is(err, context.Canceled) {
			log.Debug("AudienceResolver: estimate cancelled")
		} else {
			log.Warnf("AudienceResolver: estimate failed, using 0: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return count
}

// Resolve builds the audience value for the selection. The speciality list
// is loaded on first use and ids not in it are dropped. When the list cannot
// be loaded the ids are kept as given.
func (r *AudienceResolver) Resolve(ctx context.Context, t model.AudienceType, ids []string) model.Audience {
	ids = model.NormalizeIDs(ids)
	if t == model.AudienceSpecialities && len(ids) > 0 {
		if _, err := r.Specialities(ctx); err != nil {
			logrus.Warnf("AudienceResolver: could not load specialities: %v", err)
		}
	}
	if known := r.Known(); known != nil && t == model.AudienceSpecialities {
		kept := ids[:0:0]
		for _, id := range ids {
			if _, ok := known[id]; ok {
				kept = append(kept, id)
				continue
			}
			logrus.WithField("speciality_id", id).Warn("AudienceResolver: dropping unknown speciality")
		}
		ids = kept
	}
	return model.NewAudience(t, ids, r.Estimate(ctx, t, ids))
}
