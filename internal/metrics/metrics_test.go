package metrics

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCollector resets the default registerer so every test owns its metrics.
func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	return NewCollector(), reg
}

// counterValue returns the value of the named counter whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			matched := true
			for k, v := range want {
				if labels[k] != v {
					matched = false
					break
				}
			}
			if matched {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestNewCollector(t *testing.T) {
	collector, _ := newTestCollector(t)

	assert.NotNil(t, collector, "NewCollector should return a non-nil collector")
	assert.NotNil(t, collector.apiRequests, "apiRequests counter should be initialized")
	assert.NotNil(t, collector.apiDuration, "apiDuration histogram should be initialized")
	assert.NotNil(t, collector.guardOutcomes, "guardOutcomes counter should be initialized")
	assert.NotNil(t, collector.staleResponses, "staleResponses counter should be initialized")
	assert.NotNil(t, collector.mutations, "mutations counter should be initialized")
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	newTestCollector(t)

	assert.Panics(t, func() {
		NewCollector()
	}, "registering twice on the same registry should panic")
}

func TestObserveRequest(t *testing.T) {
	collector, reg := newTestCollector(t)

	collector.ObserveRequest(http.MethodGet, "jobs", 200, 10*time.Millisecond)
	collector.ObserveRequest(http.MethodGet, "jobs", 200, 20*time.Millisecond)
	collector.ObserveRequest(http.MethodGet, "jobs", 0, time.Second)
	collector.ObserveRequest(http.MethodDelete, "jobs", 403, time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, reg, "talenthub_api_requests_total",
		map[string]string{"method": "GET", "resource": "jobs", "code": "200"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "talenthub_api_requests_total",
		map[string]string{"method": "GET", "code": "error"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "talenthub_api_requests_total",
		map[string]string{"method": "DELETE", "code": "403"}))
}

func TestRecordGuardOutcome(t *testing.T) {
	collector, reg := newTestCollector(t)

	collector.RecordGuardOutcome("employer", "authorized")
	collector.RecordGuardOutcome("employer", "unauthorized")
	collector.RecordGuardOutcome("employer", "unauthorized")

	assert.Equal(t, 2.0, counterValue(t, reg, "talenthub_guard_outcomes_total",
		map[string]string{"role": "employer", "outcome": "unauthorized"}))
}

func TestRecordStaleResponse(t *testing.T) {
	collector, reg := newTestCollector(t)

	for i := 0; i < 3; i++ {
		collector.RecordStaleResponse("jobs")
	}
	assert.Equal(t, 3.0, counterValue(t, reg, "talenthub_pager_stale_responses_total",
		map[string]string{"resource": "jobs"}))
}

func TestRecordMutation(t *testing.T) {
	collector, reg := newTestCollector(t)

	collector.RecordMutation("job.create", nil)
	collector.RecordMutation("job.create", errors.New("boom"))
	collector.RecordMutation("apply", nil)

	assert.Equal(t, 1.0, counterValue(t, reg, "talenthub_mutations_total",
		map[string]string{"kind": "job.create", "result": ResultSuccess}))
	assert.Equal(t, 1.0, counterValue(t, reg, "talenthub_mutations_total",
		map[string]string{"kind": "job.create", "result": ResultFailure}))
	assert.Equal(t, 1.0, counterValue(t, reg, "talenthub_mutations_total",
		map[string]string{"kind": "apply", "result": ResultSuccess}))
}

func TestServerShutdown(t *testing.T) {
	var nilServer *Server
	assert.NoError(t, nilServer.Shutdown(context.Background()))

	newTestCollector(t)
	srv := StartServer(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
