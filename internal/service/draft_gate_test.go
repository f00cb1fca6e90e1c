package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
	"github.com/unclebandit/newsletter-backoffice/internal/model"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
)

func draftCampaign() model.Campaign {
	return model.NewCampaign().
		UpdateTitle("March Newsletter").
		UpdateSubject("News").
		UpdateContent("<p>Hello</p>")
}

func TestEnsurePersistedKeepsPersistedCampaign(t *testing.T) {
	repo := &MockCampaignRepo{}
	gate := service.NewDraftGate(repo)
	c := draftCampaign()
	c.ID = "existing"

	got, err := gate.EnsurePersisted(context.Background(), "k", c)

	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Zero(t, repo.Creates)
}

func TestEnsurePersistedCreatesOnce(t *testing.T) {
	repo := &MockCampaignRepo{CreateDelay: 20 * time.Millisecond}
	gate := service.NewDraftGate(repo)
	c := draftCampaign()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := gate.EnsurePersisted(context.Background(), "wizard-1", c)
			assert.NoError(t, err)
			ids[i] = got.ID
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.Creates)
	for _, id := range ids {
		assert.Equal(t, "c1", id)
	}

	// a later call with the same key adopts the id without another create
	again, err := gate.EnsurePersisted(context.Background(), "wizard-1", c.UpdateTitle("Renamed"))
	require.NoError(t, err)
	assert.Equal(t, "c1", again.ID)
	assert.Equal(t, "Renamed", again.Title)
	assert.Equal(t, 1, repo.Creates)
}

func TestEnsurePersistedFailure(t *testing.T) {
	repo := &MockCampaignRepo{CreateErr: errors.New("boom")}
	gate := service.NewDraftGate(repo)
	c := draftCampaign()

	got, err := gate.EnsurePersisted(context.Background(), "k", c)

	var persistErr *appErrors.PersistError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, c, got)
	assert.False(t, got.IsPersisted())
}

func TestSaveDraftCreatesThenUpdates(t *testing.T) {
	repo := &MockCampaignRepo{}
	gate := service.NewDraftGate(repo)

	first, err := gate.SaveDraft(context.Background(), "k", draftCampaign())
	require.NoError(t, err)
	assert.Equal(t, "c1", first.ID)

	// an unpersisted snapshot under the same key updates the same campaign
	second, err := gate.SaveDraft(context.Background(), "k", draftCampaign().UpdateSubject("Updated"))
	require.NoError(t, err)
	assert.Equal(t, "c1", second.ID)
	assert.Equal(t, "Updated", second.Subject)
	assert.Equal(t, 1, repo.Creates)
	assert.Equal(t, 1, repo.Updates)

	gate.Forget("k")
	third, err := gate.SaveDraft(context.Background(), "k", draftCampaign())
	require.NoError(t, err)
	assert.Equal(t, "c2", third.ID)
}

func TestEnsurePersistedRejectsMissingID(t *testing.T) {
	repo := &MockCampaignRepo{CreateNoID: true}
	gate := service.NewDraftGate(repo)
	c := draftCampaign()

	got, err := gate.EnsurePersisted(context.Background(), "k", c)
	require.ErrorIs(t, err, service.ErrNoCampaignID)
	var persistErr *appErrors.PersistError
	require.ErrorAs(t, err, &persistErr)
	assert.False(t, got.IsPersisted())

	// nothing was remembered, so the next attempt creates again
	repo.CreateNoID = false
	got, err = gate.EnsurePersisted(context.Background(), "k", c)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, 2, repo.Creates)
}

func TestJoinedCallerSurvivesFirstCallerCancel(t *testing.T) {
	repo := &MockCampaignRepo{CreateDelay: 100 * time.Millisecond}
	gate := service.NewDraftGate(repo)
	c := draftCampaign()

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := gate.EnsurePersisted(firstCtx, "wizard-1", c)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	joined := make(chan model.Campaign, 1)
	go func() {
		got, err := gate.EnsurePersisted(context.Background(), "wizard-1", c.UpdateTitle("Edited meanwhile"))
		assert.NoError(t, err)
		joined <- got
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	var persistErr *appErrors.PersistError
	require.ErrorAs(t, <-firstErr, &persistErr)
	assert.ErrorIs(t, persistErr, context.Canceled)

	got := <-joined
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, "Edited meanwhile", got.Title)
	assert.Equal(t, 1, repo.Creates)
}
