package service

import (
	"context"
	"sync"
	"time"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

// DefaultAudienceDebounce is the quiet period before an estimate is issued.
const DefaultAudienceDebounce = 300 * time.Millisecond

// DebouncedAudience coalesces rapid selection changes so only the last one in
// a burst reaches the backend. A newer request cancels an estimate already in
// flight; stale results are never delivered.
type DebouncedAudience struct {
	Resolver interface {
		Resolve(ctx context.Context, t model.AudienceType, ids []string) model.Audience
	}
	Delay    time.Duration
	OnResult func(model.Audience)

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func NewDebouncedAudience(resolver *AudienceResolver, delay time.Duration, onResult func(model.Audience)) *DebouncedAudience {
	if delay <= 0 {
		delay = DefaultAudienceDebounce
	}
	return &DebouncedAudience{Resolver: resolver, Delay: delay, OnResult: onResult}
}

// Request schedules an estimate for the selection, replacing any pending one.
func (d *DebouncedAudience) Request(t model.AudienceType, ids []string) {
	ids = model.NormalizeIDs(ids)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.seq++
	seq := d.seq
	d.stopLocked()

	d.wg.Add(1)
	d.timer = time.AfterFunc(d.Delay, func() {
		defer d.wg.Done()
		d.fire(seq, t, ids)
	})
}

func (d *DebouncedAudience) fire(seq uint64, t model.AudienceType, ids []string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	audience := d.Resolver.Resolve(ctx, t, ids)

	d.mu.Lock()
	current := !d.closed && seq == d.seq
	d.mu.Unlock()
	if current && d.OnResult != nil {
		d.OnResult(audience)
	}
}

// stopLocked drops the pending timer and cancels the running estimate.
func (d *DebouncedAudience) stopLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.timer = nil
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Close stops pending work and waits for any running callback to return.
func (d *DebouncedAudience) Close() {
	d.mu.Lock()
	d.closed = true
	d.stopLocked()
	d.mu.Unlock()
	d.wg.Wait()
}
