package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGlobeCollector(reg)
	if err != nil {
		t.Fatalf("NewGlobeCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/peerglobe.control.v1.GlobeControl/Navigate"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("GlobeControl", "Navigate", "OK")); got != 1 {
		t.Fatalf("globe_control_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "globe_control_request_duration_seconds", map[string]string{
		"service": "GlobeControl",
		"method":  "Navigate",
	}); count != 1 {
		t.Fatalf("globe_control_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGlobeCollector(reg)
	if err != nil {
		t.Fatalf("NewGlobeCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/peerglobe.control.v1.GlobeControl/CenterOn"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "boom")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("GlobeControl", "CenterOn", "InvalidArgument")); got != 1 {
		t.Fatalf("globe_control_requests_total error label = %v, want 1", got)
	}
}

func TestCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewGlobeCollector(reg)
	if err != nil {
		t.Fatalf("first NewGlobeCollector: %v", err)
	}
	second, err := NewGlobeCollector(reg)
	if err != nil {
		t.Fatalf("second NewGlobeCollector: %v", err)
	}
	first.IncFlight("global")
	if got := testutil.ToFloat64(second.Flights.WithLabelValues("global")); got != 1 {
		t.Fatalf("shared flight counter = %v, want 1", got)
	}
}

func TestRegisterRejectsIncompatibleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: "globe_frames_total", Help: "gauge"}), "globe_frames_total"); err != nil {
		t.Fatalf("register gauge: %v", err)
	}
	if _, err := NewGlobeCollector(reg); err == nil {
		t.Fatalf("NewGlobeCollector succeeded over a conflicting gauge")
	}
}

func TestRecordersAreNilSafe(t *testing.T) {
	var c *GlobeCollector
	c.ObserveLayout(1, 1, 0, time.Millisecond)
	c.IncFrame()
	c.IncFrameError("rotation")
	c.IncFlight("cluster")
	c.IncFlightSettled()
	c.SetRotationState(1)
	c.IncOverlaySnap()
	c.SetStreamClients(2)
	c.IncFeedRefresh("ok")
	if c.Gatherer() != nil {
		t.Fatalf("nil collector returned a gatherer")
	}
}

func TestMetricsHandlerExposesEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGlobeCollector(reg)
	if err != nil {
		t.Fatalf("NewGlobeCollector: %v", err)
	}
	collector.ObserveLayout(42, 7, 3, 2*time.Millisecond)
	collector.IncFrameError("")
	collector.SetRotationState(2)
	collector.IncFeedRefresh("ok")
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, line := range []string{
		"globe_layout_entities 42",
		"globe_layout_clusters 7",
		"globe_layout_dropped_entities 3",
		"globe_rotation_state 2",
		`globe_frame_callback_errors_total{loop="unknown"} 1`,
		`globe_feed_refreshes_total{result="ok"} 1`,
		"globe_control_requests_total",
		"globe_layout_build_duration_seconds_count 1",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in /metrics output:\n%s", line, body)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
