package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/recipes", "200"))
	RecordAPIRequest("GET", "/recipes", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/recipes", "200"))
	if after != before+1 {
		t.Errorf("requests = %v, want %v", after, before+1)
	}
}

func TestRecordDBCommand(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantDelta float64
	}{
		{"success", nil, 0},
		{"failure", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(DBCommandErrors.WithLabelValues("find"))
			RecordDBCommand("find", time.Millisecond, tt.err)
			got := testutil.ToFloat64(DBCommandErrors.WithLabelValues("find")) - before
			if got != tt.wantDelta {
				t.Errorf("error delta = %v, want %v", got, tt.wantDelta)
			}
		})
	}
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues("recipe"))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("recipe"))
	RecordCache("recipe", true)
	RecordCache("recipe", false)
	RecordCache("recipe", false)
	if got := testutil.ToFloat64(CacheHits.WithLabelValues("recipe")) - hits; got != 1 {
		t.Errorf("hits delta = %v", got)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("recipe")) - misses; got != 2 {
		t.Errorf("misses delta = %v", got)
	}
}

func TestRecordBreakerState(t *testing.T) {
	tests := map[string]float64{"closed": 0, "half-open": 1, "open": 2}
	for state, want := range tests {
		RecordBreakerState("vector", state)
		if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("vector")); got != want {
			t.Errorf("%s: gauge = %v, want %v", state, got, want)
		}
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v", got)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v", got)
	}
}
