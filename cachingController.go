package main

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/Financial-Times/go-logger"
	"github.com/jonboulle/clockwork"
)

const defaultRefreshPeriod = 30 * time.Second

type snapshotBuilder interface {
	buildSnapshot(ctx context.Context) (*catalogSnapshot, error)
	checkWorkload(ctx context.Context, w workload) workload
}

type cachingController struct {
	builder       snapshotBuilder
	cache         *cachedCatalog
	clock         clockwork.Clock
	refreshPeriod time.Duration
	baseAddress   string
	refreshing    atomic.Bool
}

func newCachingController(builder snapshotBuilder, clock clockwork.Clock, refreshPeriod time.Duration, baseAddress string) *cachingController {
	return &cachingController{
		builder:       builder,
		cache:         newCachedCatalog(),
		clock:         clock,
		refreshPeriod: refreshPeriod,
		baseAddress:   baseAddress,
	}
}

// refresh runs one cycle unless another is in flight, in which case it
// returns the current state untouched and ran is false.
func (c *cachingController) refresh(ctx context.Context) (snapshot *catalogSnapshot, record refreshRecord, ran bool) {
	if !c.refreshing.CompareAndSwap(false, true) {
		log.Debugf("Catalog refresh already in progress, skipping")
		return c.cache.latest(), c.cache.lastRefresh(), false
	}
	defer c.refreshing.Store(false)

	started := c.clock.Now().UTC()
	log.Infof("Starting catalog refresh")
	newSnapshot, err := c.builder.buildSnapshot(ctx)
	finished := c.clock.Now().UTC()

	durationMs := finished.Sub(started).Milliseconds()
	record = refreshRecord{
		StartedAt:  &started,
		FinishedAt: &finished,
		DurationMs: &durationMs,
	}
	if err != nil {
		log.WithError(err).Error("Catalog refresh failed, keeping previous snapshot")
		record.Error = stringPtr(err.Error())
	} else {
		c.cache.publish(newSnapshot)
		log.Infof("Catalog refresh finished in %dms with %d workloads", durationMs, newSnapshot.Count)
	}
	c.cache.recordRefresh(record)

	return c.cache.latest(), record, true
}

// scheduleRefreshes runs a cycle immediately and then on every tick until ctx
// is done. Ticks that land while a cycle is still running are dropped.
func (c *cachingController) scheduleRefreshes(ctx context.Context) {
	ticker := c.clock.NewTicker(c.refreshPeriod)
	defer ticker.Stop()

	// a cycle in flight is never cut short, shutdown only stops new ticks
	cycleCtx := context.WithoutCancel(ctx)
	c.refresh(cycleCtx)
	for {
		select {
		case <-ctx.Done():
			log.Infof("Stopping catalog refresh scheduler")
			return
		case <-ticker.Chan():
			c.refresh(cycleCtx)
		}
	}
}

func (c *cachingController) currentSnapshot() *catalogSnapshot {
	return c.cache.latest()
}

func (c *cachingController) lastRefresh() refreshRecord {
	return c.cache.lastRefresh()
}

func (c *cachingController) getRefreshPeriod() time.Duration {
	return c.refreshPeriod
}

func (c *cachingController) getBaseAddress() string {
	return c.baseAddress
}
