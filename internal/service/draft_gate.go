package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/repository"
)

// DefaultCreateTimeout bounds a shared create request.
const DefaultCreateTimeout = 30 * time.Second

// ErrNoCampaignID is returned when the backend accepts a create but the reply
// carries no campaign id.
var ErrNoCampaignID = errors.New("create campaign: response carried no id")

// DraftGate guarantees a campaign has a server id before anything references
// it. Concurrent callers for the same draft key share one create request, and
// a key that already produced a campaign is never created twice.
type DraftGate struct {
	Repo          repository.CampaignRepositoryInterface
	CreateTimeout time.Duration

	group     singleflight.Group
	mu        sync.Mutex
	persisted map[string]model.Campaign
}

func NewDraftGate(repo repository.CampaignRepositoryInterface) *DraftGate {
	return &DraftGate{Repo: repo}
}

// EnsurePersisted returns c unchanged when it has an id. Otherwise it creates
// the campaign from its editable fields and returns c under the server's id.
// Failures, including a reply without an id, come back as
// *appErrors.PersistError.
func (g *DraftGate) EnsurePersisted(ctx context.Context, key string, c model.Campaign) (model.Campaign, error) {
	if c.IsPersisted() {
		return c, nil
	}
	if key == "" {
		key = uuid.NewString()
	}
	if saved, ok := g.lookup(key); ok {
		return adoptID(c, saved), nil
	}

	// The shared create is detached from ctx: callers that joined it must not
	// fail because the first caller went away.
	ch := g.group.DoChan(key, func() (any, error) {
		if saved, ok := g.lookup(key); ok {
			return saved, nil
		}
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.createTimeout())
		defer cancel()
		created, err := g.Repo.Create(createCtx, c.EditableFields())
		if err != nil {
			return nil, err
		}
		if !created.IsPersisted() {
			return nil, ErrNoCampaignID
		}
		g.remember(key, created)
		logrus.WithFields(logrus.Fields{
			"draft_key":   key,
			"campaign_id": created.ID,
		}).Info("DraftGate: draft persisted")
		return created, nil
	})

	select {
	case <-ctx.Done():
		return c, appErrors.NewPersistError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return c, appErrors.NewPersistError(res.Err)
		}
		if res.Shared {
			logrus.WithField("draft_key", key).Debug("DraftGate: joined in-flight create")
		}
		return adoptID(c, res.Val.(model.Campaign)), nil
	}
}

// SaveDraft writes the editable fields: create when unpersisted, update
// otherwise.
func (g *DraftGate) SaveDraft(ctx context.Context, key string, c model.Campaign) (model.Campaign, error) {
	if !c.IsPersisted() {
		if saved, ok := g.lookup(key); ok {
			c.ID = saved.ID
		} else {
			return g.EnsurePersisted(ctx, key, c)
		}
	}
	updated, err := g.Repo.Update(ctx, c.ID, c.EditableFields())
	if err != nil {
		return c, appErrors.NewPersistError(err)
	}
	if !updated.IsPersisted() {
		updated = c
	}
	g.remember(key, updated)
	return updated, nil
}

// adoptID keeps the caller's local edits under the id the server assigned.
func adoptID(c, saved model.Campaign) model.Campaign {
	c.ID = saved.ID
	c.CreatedAt = saved.CreatedAt
	c.UpdatedAt = saved.UpdatedAt
	return c
}

func (g *DraftGate) createTimeout() time.Duration {
	if g.CreateTimeout > 0 {
		return g.CreateTimeout
	}
	return DefaultCreateTimeout
}

// Forget drops what the gate knows about key.
func (g *DraftGate) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.persisted, key)
	g.group.Forget(key)
}

func (g *DraftGate) lookup(key string) (model.Campaign, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.persisted[key]
	return c, ok
}

func (g *DraftGate) remember(key string, c model.Campaign) {
	if key == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.persisted == nil {
		g.persisted = make(map[string]model.Campaign)
	}
	g.persisted[key] = c
}
