package queue

import (
	"time"

	"github.com/econdata/tsengine/pkg/log"
)

// Reaper periodically reverts expired leases, the queue-side half of
// the teacher's reconciler ticker loop (pkg/reconciler).
type Reaper struct {
	q        *Queue
	leaseTTL time.Duration
	period   time.Duration
	stopCh   chan struct{}
}

// NewReaper returns a Reaper that reverts leases older than leaseTTL,
// checking every period.
func NewReaper(q *Queue, leaseTTL, period time.Duration) *Reaper {
	return &Reaper{q: q, leaseTTL: leaseTTL, period: period, stopCh: make(chan struct{})}
}

// Start runs the reap loop in a background goroutine until Stop is called.
func (r *Reaper) Start() {
	go func() {
		ticker := time.NewTicker(r.period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				now := time.Now().UTC()
				if _, err := r.q.ReapExpiredLeases(now, r.leaseTTL); err != nil {
					log.WithComponent("queue").Warn().Err(err).Msg("reap expired leases failed")
				}
				if _, err := r.q.PromoteReadyRetries(now); err != nil {
					log.WithComponent("queue").Warn().Err(err).Msg("promote ready retries failed")
				}
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop ends the reap loop.
func (r *Reaper) Stop() {
	close(r.stopCh)
}
