package main

import "sync/atomic"

// cachedCatalog holds the latest published snapshot and refresh record.
// Both are swapped by reference so readers never see a partial value.
type cachedCatalog struct {
	snapshot atomic.Pointer[catalogSnapshot]
	record   atomic.Pointer[refreshRecord]
}

func newCachedCatalog() *cachedCatalog {
	c := &cachedCatalog{}
	c.record.Store(&refreshRecord{})
	return c
}

// latest returns the current snapshot, or an empty one before the first
// successful cycle.
func (c *cachedCatalog) latest() *catalogSnapshot {
	if s := c.snapshot.Load(); s != nil {
		return s
	}
	return &catalogSnapshot{Workloads: []workload{}}
}

func (c *cachedCatalog) lastRefresh() refreshRecord {
	return *c.record.Load()
}

func (c *cachedCatalog) publish(s *catalogSnapshot) {
	c.snapshot.Store(s)
}

func (c *cachedCatalog) recordRefresh(r refreshRecord) {
	c.record.Store(&r)
}
