package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordReceived("pumpfun")
	m.RecordReceived("pumpfun")
	m.RecordDuplicate("pumpfun")
	m.RecordDelivered("pumpfun", "new_token", time.Unix(1700000000, 0))
	m.RecordError("raydium", "payload")
	m.RecordError("raydium", "")
	m.SetConnected("birdeye", true)
	m.RecordConnectAttempt("moonshot", false)
	m.RecordDowngrade("moonshot")
	m.RecordPollTick("dexscreener", true)
	m.ObserveDBQuery("postgres", "insert", time.Millisecond, errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsReceived.WithLabelValues("pumpfun")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDuplicated.WithLabelValues("pumpfun")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDelivered.WithLabelValues("pumpfun", "new_token")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastEventTimestamp.WithLabelValues("pumpfun")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceErrors.WithLabelValues("raydium", "payload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceErrors.WithLabelValues("raydium", "other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceConnected.WithLabelValues("birdeye")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectAttempts.WithLabelValues("moonshot", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Downgrades.WithLabelValues("moonshot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollTicks.WithLabelValues("dexscreener", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordReceived("pumpfun")
		m.RecordDelivered("pumpfun", "new_token", time.Now())
		m.RecordError("pumpfun", "transport")
		m.SetConnected("pumpfun", true)
		m.SetCacheSize(3)
		m.RecordCacheClear()
		m.ObserveConsumer(time.Millisecond)
		m.ObserveDBQuery("postgres", "insert", time.Millisecond, nil)
		m.AddUptime(time.Second)
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	m := NewMetrics("test", reg)
	m.SetCacheSize(7)

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "test_hub_dedup_cache_size 7"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
