package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrNoop(t *testing.T) {
	assert.IsType(t, NoopRecorder{}, OrNoop(nil))
	pr := NewPrometheusRecorder(nil)
	assert.Same(t, pr, OrNoop(pr))
}

func TestPrometheusRecorder_Counts(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncStatusPoll("processing")
	pr.IncStatusPoll("processing")
	pr.IncStatusPoll("failed")
	pr.IncJobOutcome(OutcomeTimeout)
	pr.ObserveJobDuration(3 * time.Second)
	pr.IncBackfill(BackfillFilled)
	pr.IncDeviceSync(SyncReregistered)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.statusPolls.WithLabelValues("processing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.statusPolls.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.jobOutcomes.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.backfill.WithLabelValues(BackfillFilled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.deviceSync.WithLabelValues(SyncReregistered)))
}

func TestHTTPHandler_ExposesNamespace(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncJobOutcome(OutcomeCompleted)

	srv := httptest.NewServer(HTTPHandler(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "larder_job_outcomes_total"))
}

func TestServe_BindsAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	require.NoError(t, Serve(ctx, addr, prom.NewRegistry(), nil))
	assert.Error(t, Serve(ctx, addr, prom.NewRegistry(), nil), "second bind on the same address should fail")
}
