package observability

import "time"

// The recorder methods below are nil-safe so callers can run without metrics.

// ObserveLayout records the result of a layout rebuild.
func (c *GlobeCollector) ObserveLayout(entities, clusters, dropped int, took time.Duration) {
	if c == nil {
		return
	}
	c.LayoutEntities.Set(float64(entities))
	c.LayoutClusters.Set(float64(clusters))
	c.LayoutDropped.Set(float64(dropped))
	c.LayoutBuildDuration.Observe(took.Seconds())
}

// IncFrame counts one engine frame.
func (c *GlobeCollector) IncFrame() {
	if c == nil {
		return
	}
	c.Frames.Inc()
}

// IncFrameError counts a failed frame callback.
func (c *GlobeCollector) IncFrameError(loop string) {
	if c == nil {
		return
	}
	if loop == "" {
		loop = "unknown"
	}
	c.FrameErrors.WithLabelValues(loop).Inc()
}

// IncFlight counts a started camera flight.
func (c *GlobeCollector) IncFlight(band string) {
	if c == nil {
		return
	}
	c.Flights.WithLabelValues(band).Inc()
}

// IncFlightSettled counts a committed camera flight.
func (c *GlobeCollector) IncFlightSettled() {
	if c == nil {
		return
	}
	c.FlightsSettled.Inc()
}

// SetRotationState mirrors the auto-rotation state.
func (c *GlobeCollector) SetRotationState(state int) {
	if c == nil {
		return
	}
	c.RotationState.Set(float64(state))
}

// IncOverlaySnap counts a panel snap.
func (c *GlobeCollector) IncOverlaySnap() {
	if c == nil {
		return
	}
	c.OverlaySnaps.Inc()
}

// SetStreamClients updates the websocket client gauge.
func (c *GlobeCollector) SetStreamClients(n int) {
	if c == nil {
		return
	}
	c.StreamClients.Set(float64(n))
}

// IncFeedRefresh counts a feed refresh with result "ok", "unchanged" or "error".
func (c *GlobeCollector) IncFeedRefresh(result string) {
	if c == nil {
		return
	}
	c.FeedRefreshes.WithLabelValues(result).Inc()
}
