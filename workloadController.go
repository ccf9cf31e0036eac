package main

import (
	"context"

	log "github.com/Financial-Times/go-logger"
)

// findWorkload looks a workload up by name in the current snapshot. When
// useCache is false the workload is probed again before being returned.
func (c *cachingController) findWorkload(ctx context.Context, name string, useCache bool) (workload, bool) {
	for _, w := range c.cache.latest().Workloads {
		if w.Name != name {
			continue
		}
		if useCache {
			return w, true
		}
		log.Debugf("Running a forced health check for workload %s, bypassing the cache", name)
		return c.builder.checkWorkload(ctx, w), true
	}
	return workload{}, false
}
