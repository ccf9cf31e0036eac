package main

import (
	"context"
	"fmt"
	"sort"

	log "github.com/Financial-Times/go-logger"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

type workloadProber interface {
	checkWorkloadHealth(ctx context.Context, w workload) workload
}

type catalogController struct {
	runtimeService      runtimeService
	prober              workloadProber
	discovery           discoveryConfig
	maxConcurrentChecks int
	clock               clockwork.Clock
}

func newCatalogController(rs runtimeService, prober workloadProber, discovery discoveryConfig, maxConcurrentChecks int, clock clockwork.Clock) *catalogController {
	return &catalogController{
		runtimeService:      rs,
		prober:              prober,
		discovery:           discovery,
		maxConcurrentChecks: maxConcurrentChecks,
		clock:               clock,
	}
}

// buildSnapshot runs one full discovery and probe pass. The only error it
// returns is a failed runtime listing; probe failures stay inside workloads.
func (c *catalogController) buildSnapshot(ctx context.Context) (*catalogSnapshot, error) {
	containers, err := c.runtimeService.listContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot build catalog snapshot: %w", err)
	}

	workloads := discoverWorkloads(containers, c.discovery)
	log.Debugf("Discovered %d catalog workloads out of %d containers", len(workloads), len(containers))

	c.checkWorkloads(ctx, workloads)
	sort.Sort(byName(workloads))

	return &catalogSnapshot{
		GeneratedAt: c.clock.Now().UTC(),
		Count:       len(workloads),
		Workloads:   workloads,
	}, nil
}

// checkWorkloads probes every workload in place, with at most
// maxConcurrentChecks probes in flight.
func (c *catalogController) checkWorkloads(ctx context.Context, workloads []workload) {
	g := new(errgroup.Group)
	g.SetLimit(c.maxConcurrentChecks)
	for i := range workloads {
		i := i
		g.Go(func() error {
			workloads[i] = c.prober.checkWorkloadHealth(ctx, workloads[i])
			return nil
		})
	}
	_ = g.Wait()
}

func (c *catalogController) checkWorkload(ctx context.Context, w workload) workload {
	return c.prober.checkWorkloadHealth(ctx, w)
}
