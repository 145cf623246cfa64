package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// GlobeCollector bundles Prometheus metrics for the globe engine and its
// control surface.
type GlobeCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	Frames      prometheus.Counter
	FrameErrors *prometheus.CounterVec

	LayoutEntities      prometheus.Gauge
	LayoutClusters      prometheus.Gauge
	LayoutDropped       prometheus.Gauge
	LayoutBuildDuration prometheus.Histogram

	Flights        *prometheus.CounterVec
	FlightsSettled prometheus.Counter
	RotationState  prometheus.Gauge
	OverlaySnaps   prometheus.Counter

	StreamClients prometheus.Gauge
	FeedRefreshes *prometheus.CounterVec
}

// NewGlobeCollector registers globe metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewGlobeCollector(reg prometheus.Registerer) (*GlobeCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &GlobeCollector{gatherer: gatherer}
	var err error

	if c.RPCRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_control_requests_total",
		Help: "Total number of handled control RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "globe_control_requests_total"); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "globe_control_request_duration_seconds",
		Help:    "Control RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "globe_control_request_duration_seconds"); err != nil {
		return nil, err
	}

	if c.Frames, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_frames_total",
		Help: "Frames stepped by the engine.",
	}), "globe_frames_total"); err != nil {
		return nil, err
	}
	if c.FrameErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_frame_callback_errors_total",
		Help: "Frame callbacks that returned an error or panicked, labeled by loop.",
	}, []string{"loop"}), "globe_frame_callback_errors_total"); err != nil {
		return nil, err
	}

	if c.LayoutEntities, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_layout_entities",
		Help: "Entities placed by the current layout.",
	}), "globe_layout_entities"); err != nil {
		return nil, err
	}
	if c.LayoutClusters, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_layout_clusters",
		Help: "Clusters in the current layout.",
	}), "globe_layout_clusters"); err != nil {
		return nil, err
	}
	if c.LayoutDropped, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_layout_dropped_entities",
		Help: "Entities filtered out of the current layout.",
	}), "globe_layout_dropped_entities"); err != nil {
		return nil, err
	}
	if c.LayoutBuildDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "globe_layout_build_duration_seconds",
		Help:    "Time to rebuild the layout after an entity list replacement.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "globe_layout_build_duration_seconds"); err != nil {
		return nil, err
	}

	if c.Flights, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_camera_flights_total",
		Help: "Directed camera flights started, labeled by distance band.",
	}, []string{"band"}), "globe_camera_flights_total"); err != nil {
		return nil, err
	}
	if c.FlightsSettled, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_camera_flights_settled_total",
		Help: "Directed camera flights that settled and committed their selection.",
	}), "globe_camera_flights_settled_total"); err != nil {
		return nil, err
	}
	if c.RotationState, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_rotation_state",
		Help: "Auto-rotation state: 0 idle, 1 rotating, 2 stopped.",
	}), "globe_rotation_state"); err != nil {
		return nil, err
	}
	if c.OverlaySnaps, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_overlay_snaps_total",
		Help: "Times the detail panel landed on its target position.",
	}), "globe_overlay_snaps_total"); err != nil {
		return nil, err
	}

	if c.StreamClients, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_stream_clients",
		Help: "Connected websocket state stream clients.",
	}), "globe_stream_clients"); err != nil {
		return nil, err
	}
	if c.FeedRefreshes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_feed_refreshes_total",
		Help: "Entity feed refresh attempts, labeled by result.",
	}, []string{"result"}), "globe_feed_refreshes_total"); err != nil {
		return nil, err
	}

	return c, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *GlobeCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}
		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *GlobeCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the gatherer the collector registered against.
func (c *GlobeCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}
