package retention

import (
	"testing"
	"time"

	"imageforge/internal/store"
)

func newScheduler(t *testing.T, grace, retention time.Duration) (*Scheduler, *store.Store) {
	t.Helper()
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sched := New(s, grace, retention, time.Hour)
	return sched, s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestScheduleDeleteRemovesAfterGrace(t *testing.T) {
	sched, s := newScheduler(t, 20*time.Millisecond, time.Hour)

	sess, _ := s.CreateSession()
	if err := s.Save(sess); err != nil {
		t.Fatal(err)
	}

	sched.ScheduleDelete(sess.ID)

	// Still present inside the grace window
	if !s.Exists(sess.ID) {
		t.Fatal("session removed before the grace delay elapsed")
	}

	waitFor(t, time.Second, func() bool { return !s.Exists(sess.ID) })
}

func TestScheduleDeleteIsSafeToRace(t *testing.T) {
	sched, s := newScheduler(t, time.Millisecond, time.Hour)

	sess, _ := s.CreateSession()
	if err := s.Save(sess); err != nil {
		t.Fatal(err)
	}

	// Double-scheduling and a concurrent manual delete must all collapse
	// into one effective removal with no errors.
	sched.ScheduleDelete(sess.ID)
	sched.ScheduleDelete(sess.ID)
	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("manual delete: %v", err)
	}

	waitFor(t, time.Second, func() bool { return !s.Exists(sess.ID) })
}

func TestSweepRemovesOnlyExpiredSessions(t *testing.T) {
	sched, s := newScheduler(t, time.Hour, 50*time.Millisecond)

	old, _ := s.CreateSession()
	old.CreatedAt = time.Now().Add(-time.Hour)
	if err := s.Save(old); err != nil {
		t.Fatal(err)
	}

	fresh, _ := s.CreateSession()
	if err := s.Save(fresh); err != nil {
		t.Fatal(err)
	}

	cleaned := sched.Sweep()
	if cleaned != 1 {
		t.Errorf("Sweep removed %d sessions, want 1", cleaned)
	}
	if s.Exists(old.ID) {
		t.Error("expired session survived the sweep")
	}
	if !s.Exists(fresh.ID) {
		t.Error("fresh session must survive the sweep")
	}
}

func TestStartStop(t *testing.T) {
	sched, _ := newScheduler(t, time.Hour, time.Hour)
	sched.Start()
	sched.Stop()
	// Stop must be idempotent
	sched.Stop()
}
