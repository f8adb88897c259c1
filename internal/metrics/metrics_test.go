package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(SessionsCreated)
	SessionsCreated.Inc()
	after := testutil.ToFloat64(SessionsCreated)

	if after != before+1 {
		t.Errorf("SessionsCreated = %v, want %v", after, before+1)
	}
}

func TestLabeledCounters(t *testing.T) {
	before := testutil.ToFloat64(SessionsDeleted.WithLabelValues("sweep"))
	SessionsDeleted.WithLabelValues("sweep").Inc()
	after := testutil.ToFloat64(SessionsDeleted.WithLabelValues("sweep"))

	if after != before+1 {
		t.Errorf("SessionsDeleted{sweep} = %v, want %v", after, before+1)
	}

	AssetsProcessed.WithLabelValues("success").Inc()
	AssetsProcessed.WithLabelValues("failure").Inc()
	if testutil.ToFloat64(AssetsProcessed.WithLabelValues("success")) == 0 {
		t.Error("AssetsProcessed{success} should be non-zero after Inc")
	}
}
