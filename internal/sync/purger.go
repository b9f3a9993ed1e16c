// Package sync runs background maintenance jobs against the store.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/todo-web/internal/logging"
)

// PurgeState is the current state of the purger.
type PurgeState int

const (
	PurgeIdle PurgeState = iota
	PurgeRunning
	PurgeError
)

// PurgeStatus reports the outcome of the most recent purge.
type PurgeStatus struct {
	State     PurgeState
	LastPurge time.Time
	Removed   int64
	Error     error
}

// PurgeFunc is the operation run on each tick, typically
// (*session.Manager).PurgeExpired.
type PurgeFunc func(ctx context.Context) (int64, error)

// purgeTimeout bounds a single purge.
const purgeTimeout = 30 * time.Second

// Purger periodically removes expired sessions.
type Purger struct {
	purge     PurgeFunc
	interval  time.Duration
	logger    *log.Logger
	status    PurgeStatus
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        gosync.Mutex
	running   bool
}

// New creates a Purger that calls purge every interval.
func New(purge PurgeFunc, interval time.Duration, logger *log.Logger) *Purger {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Purger{
		purge:     purge,
		interval:  interval,
		logger:    logging.OrDiscard(logger),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the purge loop. It is a no-op if already running.
func (p *Purger) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	go p.loop()
}

// Stop halts the loop and waits for an in-flight purge to finish.
func (p *Purger) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	<-p.doneCh
}

// Trigger requests an immediate purge without waiting for the next tick.
func (p *Purger) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A purge is already pending.
	}
}

// Status returns the outcome of the most recent purge.
func (p *Purger) Status() PurgeStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Purger) loop() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.runOnce()
		case <-p.triggerCh:
			p.runOnce()
		}
	}
}

func (p *Purger) runOnce() {
	p.setStatus(PurgeStatus{State: PurgeRunning})

	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := p.purge(ctx)
	if err != nil {
		p.logger.Error("purging expired sessions", "err", err)
		p.setStatus(PurgeStatus{State: PurgeError, Error: err})
		return
	}
	if n > 0 {
		p.logger.Info("purged expired sessions", "count", n)
	}
	p.setStatus(PurgeStatus{State: PurgeIdle, LastPurge: time.Now(), Removed: n})
}

func (p *Purger) setStatus(s PurgeStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.State == PurgeRunning || s.State == PurgeError {
		s.LastPurge = p.status.LastPurge
	}
	p.status = s
}
