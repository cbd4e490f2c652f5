package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveHTTP("/api/notes", "GET", 200, 3*time.Millisecond)
	m.ObserveHTTP("/api/notes", "GET", 200, 5*time.Millisecond)
	m.ObserveHTTP("/api/notes", "GET", 400, time.Millisecond)
	m.ObserveCompile(nil)
	m.ObserveCompile(errors.New("bad"))
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveSearch(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/notes", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/notes", "GET", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCompile.WithLabelValues(LblOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCompile.WithLabelValues(LblError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryCache.WithLabelValues(LblHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueryCache.WithLabelValues(LblMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues(LblOK)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("/", "GET", 200, time.Second)
		m.ObserveCompile(nil)
		m.ObserveCache(true)
		m.ObserveSearch(nil)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveCompile(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `memo_query_compile_total{result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveSearch(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SearchTotal.WithLabelValues(LblOK)))
	assert.NotSame(t, a.Registry(), b.Registry())
}
