package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmtools/internal/tools/database"
)

type stubPools struct {
	stats database.PoolStats
	err   error
}

func (s stubPools) Stats() (database.PoolStats, error) { return s.stats, s.err }

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.Observe(context.Background(), database.Event{Operation: database.OpInsertEntry, Success: true, Duration: 20 * time.Millisecond})
	m.Observe(context.Background(), database.Event{Operation: database.OpInsertEntry, Success: false})
	m.Observe(context.Background(), database.Event{Operation: database.OpListTables, Success: false, PoolUnavailable: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("insert_entry", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("insert_entry", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("list_tables", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolUnavailable))
	assert.Equal(t, 2, testutil.CollectAndCount(m.OperationDuration))
}

func TestMetrics_UnknownOperationLabel(t *testing.T) {
	m := NewMetrics()
	for _, op := range []string{"drop_database", "x", ""} {
		m.Observe(context.Background(), database.Event{Operation: op})
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("unknown", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationsTotal))
}

func TestRegistry_PoolCollector(t *testing.T) {
	reg := NewRegistry(stubPools{stats: database.PoolStats{AcquiredConns: 2, IdleConns: 1, TotalConns: 3, MaxConns: 10}})

	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "llmtools_pool_") {
			got[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"llmtools_pool_acquired_connections": 2,
		"llmtools_pool_idle_connections":     1,
		"llmtools_pool_total_connections":    3,
		"llmtools_pool_max_connections":      10,
	}, got)
}

func TestRegistry_PoolCollectorSilentWithoutPool(t *testing.T) {
	c := newPoolCollector(stubPools{err: database.ErrNoPool})
	assert.Equal(t, 0, testutil.CollectAndCount(c))

	c = newPoolCollector(stubPools{err: errors.New("boom")})
	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

func TestRegistry_NilPools(t *testing.T) {
	reg := NewRegistry(nil)
	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.False(t, strings.HasPrefix(mf.GetName(), "llmtools_pool_"), mf.GetName())
	}
}

func TestRegistry_ObservesGateway(t *testing.T) {
	reg := NewRegistry(nil)
	gw := database.New(database.NewPoolManager(database.PoolConfig{}), database.WithObserver(reg.Metrics))

	res := gw.Dispatch(context.Background(), database.ListTablesArgs{})
	require.True(t, res.IsError())

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Metrics.OperationsTotal.WithLabelValues("list_tables", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Metrics.PoolUnavailable))
}

func TestServer_Handler(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Metrics.Observe(context.Background(), database.Event{Operation: database.OpQuery, Success: true})
	srv := NewServer("", "", reg)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `llmtools_gateway_operations_total{operation="query",status="success"} 1`)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "/metrics", NewRegistry(nil))
	assert.Empty(t, srv.Address())

	require.NoError(t, srv.Start())
	assert.ErrorIs(t, srv.Start(), ErrServerRunning)

	addr := srv.Address()
	require.True(t, strings.HasPrefix(addr, "http://127.0.0.1:"), addr)

	resp, err := http.Get(addr)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.Empty(t, srv.Address())
	require.NoError(t, srv.Stop(ctx))
}

func TestServer_StartWithoutRegistry(t *testing.T) {
	srv := NewServer("127.0.0.1:0", "", nil)
	assert.Error(t, srv.Start())
}
