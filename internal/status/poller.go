// Package status keeps a demo's run state fresh while a view of it is open.
package status

import (
	"context"
	"sync"
	"time"

	"central-illustration/internal/logger"
	"central-illustration/internal/models"
)

const DefaultInterval = 5 * time.Second

type Source interface {
	DemoStatus(ctx context.Context, demoID int64) (*models.DemoStatus, error)
}

type Option func(*Poller)

// WithInterval sets the polling period. Non-positive values keep
// DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(l *logger.Logger) Option { return func(p *Poller) { p.log = l } }

// OnChange is called from the polling goroutine whenever the observed
// status or URL differs from the previous one.
func OnChange(fn func(models.DemoStatus)) Option { return func(p *Poller) { p.onChange = fn } }

type Poller struct {
	src      Source
	demoID   int64
	interval time.Duration
	log      *logger.Logger
	onChange func(models.DemoStatus)

	refresh chan struct{}

	mu  sync.RWMutex
	cur models.DemoStatus
}

func New(src Source, demoID int64, opts ...Option) *Poller {
	p := &Poller{
		src:      src,
		demoID:   demoID,
		interval: DefaultInterval,
		refresh:  make(chan struct{}, 1),
		cur:      models.DemoStatus{Status: models.StateUnknown},
	}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = logger.Nop()
	}
	return p
}

func (p *Poller) Current() models.DemoStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur
}

// Refresh asks a running poller for one extra poll. Requests made while one
// is already pending are merged.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run polls immediately and then on every tick until ctx ends.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		case <-p.refresh:
			p.Poll(ctx)
		}
	}
}

// Poll fetches the status once. A failed read keeps the last known state.
func (p *Poller) Poll(ctx context.Context) models.DemoStatus {
	st, err := p.src.DemoStatus(ctx, p.demoID)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("poll demo status", "demo_id", p.demoID, "error", err)
		}
		return p.Current()
	}

	p.mu.Lock()
	prev := p.cur
	p.cur = *st
	p.mu.Unlock()

	if p.onChange != nil && changed(prev, *st) {
		p.onChange(*st)
	}
	return *st
}

func changed(a, b models.DemoStatus) bool {
	if a.Status != b.Status {
		return true
	}
	switch {
	case a.URL == nil && b.URL == nil:
		return false
	case a.URL == nil || b.URL == nil:
		return true
	}
	return *a.URL != *b.URL
}
