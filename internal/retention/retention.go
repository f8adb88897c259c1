package retention

import (
	"sync"
	"time"

	"imageforge/internal/logging"
	"imageforge/internal/metrics"
	"imageforge/internal/store"
)

// Scheduler owns deferred session deletes and the abandoned-session
// sweep. Create one at process boot with New, call Start, and Stop it at
// shutdown.
type Scheduler struct {
	store *store.Store

	// GraceDelay is how long after a download completes the session
	// survives. It only needs to outlive the response flush; the bytes
	// were already read into memory before scheduling.
	graceDelay time.Duration
	// retention is the age past which the sweep removes a session.
	retention time.Duration
	// sweepInterval is the sweep period.
	sweepInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a Scheduler. Start must be called before the sweep runs;
// ScheduleDelete works immediately.
func New(s *store.Store, graceDelay, retention, sweepInterval time.Duration) *Scheduler {
	return &Scheduler{
		store:         s,
		graceDelay:    graceDelay,
		retention:     retention,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the periodic sweep in the background.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
	logging.Info("retention sweep started (interval %v, retention %v)", s.sweepInterval, s.retention)
}

// Stop halts the sweep loop. Already-scheduled deferred deletes still
// run; there is no cancel operation for them.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// ScheduleDelete removes the session after the grace delay. Callers must
// have fully buffered any bytes they need before calling this; that
// ordering, plus idempotent removal, is what makes the delete safe
// against an in-flight download.
func (s *Scheduler) ScheduleDelete(sessionID string) {
	time.AfterFunc(s.graceDelay, func() {
		if err := s.store.Delete(sessionID); err != nil {
			logging.Warn("deferred delete of session %s failed: %v", sessionID, err)
			return
		}
		metrics.SessionsDeleted.WithLabelValues("deferred").Inc()
		logging.Debug("session %s cleaned up after download", sessionID)
	})
}

// Sweep deletes every session older than the retention threshold and
// returns how many were removed.
func (s *Scheduler) Sweep() int {
	metrics.SweepRunsTotal.Inc()

	ids, err := s.store.List()
	if err != nil {
		logging.Error("sweep failed to list sessions: %v", err)
		return 0
	}

	cleaned := 0
	cutoff := time.Now().Add(-s.retention)
	for _, id := range ids {
		createdAt, err := s.store.CreatedAt(id)
		if err != nil {
			logging.Warn("sweep could not age session %s: %v", id, err)
			continue
		}
		if createdAt.After(cutoff) {
			continue
		}
		if err := s.store.Delete(id); err != nil {
			logging.Warn("sweep failed to delete session %s: %v", id, err)
			continue
		}
		metrics.SessionsDeleted.WithLabelValues("sweep").Inc()
		cleaned++
	}

	if cleaned > 0 {
		logging.Info("sweep removed %d expired sessions", cleaned)
	}
	return cleaned
}
