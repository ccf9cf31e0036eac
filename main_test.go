package main

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeOptions(t *testing.T) {
	opts := normalizeOptions(catalogOptions{
		refreshSeconds:      0,
		checkTimeoutMs:      -5,
		degradedMs:          250,
		maxRetries:          0,
		retryCooldownMs:     -1,
		maxConcurrentChecks: 0,
	})

	assert.Equal(t, defaultRefreshSeconds, opts.refreshSeconds)
	assert.Equal(t, defaultCheckTimeoutMs, opts.checkTimeoutMs)
	assert.Equal(t, 250, opts.degradedMs)
	assert.Equal(t, defaultMaxRetries, opts.maxRetries)
	assert.Equal(t, 0, opts.retryCooldownMs)
	assert.Equal(t, defaultMaxConcurrentChecks, opts.maxConcurrentChecks)
}

func TestInitializeController(t *testing.T) {
	opts := normalizeOptions(catalogOptions{
		enableLabel:     "catalog.enable",
		baseAddress:     "http://nas.lan",
		refreshSeconds:  45,
		retryCooldownMs: 100,
	})

	c := initializeController(opts, &mockRuntimeService{}, clockwork.NewFakeClock())

	assert.Equal(t, 45*time.Second, c.getRefreshPeriod())
	assert.Equal(t, "http://nas.lan", c.getBaseAddress())

	builder, ok := c.builder.(*catalogController)
	if assert.True(t, ok) {
		assert.Equal(t, defaultMaxConcurrentChecks, builder.maxConcurrentChecks)
		assert.Equal(t, "catalog.enable", builder.discovery.enableLabel)
		prober, ok := builder.prober.(*healthProber)
		if assert.True(t, ok) {
			assert.Equal(t, 3*time.Second, prober.config.attemptTimeout)
			assert.Equal(t, 800*time.Millisecond, prober.config.degradedThreshold)
			assert.Equal(t, 3, prober.config.maxAttempts)
			assert.Equal(t, 100*time.Millisecond, prober.config.retryCooldown)
		}
	}
}
