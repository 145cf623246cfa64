// Package feed keeps the knowledge base in step with an external entity list.
package feed

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/internal/observability"
	"github.com/signalsfoundry/peerglobe/kb"
	"github.com/signalsfoundry/peerglobe/model"
)

// Refresh outcomes, also used as the metric label.
const (
	ResultOK        = "ok"
	ResultUnchanged = "unchanged"
	ResultError     = "error"
)

// Replacer receives each decoded entity list. *kb.KnowledgeBase implements it.
type Replacer interface {
	Replace(entities []model.Entity) kb.Snapshot
}

// Poller fetches the entity list on an interval and replaces the knowledge
// base wholesale whenever the content changes.
type Poller struct {
	src      Source
	dst      Replacer
	interval time.Duration
	log      logging.Logger
	metrics  *observability.GlobeCollector

	digest [sha256.Size]byte
	loaded bool
}

// NewPoller wires src to dst. interval <= 0 means a single refresh in Run.
func NewPoller(src Source, dst Replacer, interval time.Duration, log logging.Logger, metrics *observability.GlobeCollector) *Poller {
	if log == nil {
		log = logging.Noop()
	}
	return &Poller{src: src, dst: dst, interval: interval, log: log, metrics: metrics}
}

// Refresh performs one fetch. Unchanged content does not touch the
// knowledge base. Not safe for concurrent use.
func (p *Poller) Refresh(ctx context.Context) (string, error) {
	ctx, span := observability.StartSpan(ctx, "feed.refresh")
	defer span.End()

	result, err := p.refresh(ctx)
	p.metrics.IncFeedRefresh(result)
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

func (p *Poller) refresh(ctx context.Context) (string, error) {
	data, err := p.src.Fetch(ctx)
	if errors.Is(err, ErrNotModified) {
		return ResultUnchanged, nil
	}
	if err != nil {
		return ResultError, err
	}
	digest := sha256.Sum256(data)
	if p.loaded && digest == p.digest {
		return ResultUnchanged, nil
	}
	entities, err := Decode(data)
	if err != nil {
		return ResultError, err
	}
	snap := p.dst.Replace(entities)
	p.digest = digest
	p.loaded = true

	p.log.Info(ctx, "entity list replaced",
		logging.String("source", p.src.String()),
		logging.Int("received", len(entities)),
		logging.Int("kept", snap.Layout.Report.Kept),
		logging.Int("clusters", len(snap.Layout.Clusters)),
		logging.Any("version", snap.Version),
	)
	return ResultOK, nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Refresh errors are logged; the previous entity list stays in place.
func (p *Poller) Run(ctx context.Context) error {
	p.tick(ctx)
	if p.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if _, err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.log.Warn(ctx, "feed refresh failed",
			logging.String("source", p.src.String()),
			logging.Err(err),
		)
	}
}
