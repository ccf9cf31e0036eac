package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Financial-Times/go-logger"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("workload-catalog", "debug")
}

type mockRuntimeService struct {
	containers []runtimeContainer
	err        error
}

func (m *mockRuntimeService) listContainers(context.Context) ([]runtimeContainer, error) {
	return m.containers, m.err
}

// trackingProber records how many checks run at the same time.
type trackingProber struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	delay       time.Duration
}

func (p *trackingProber) checkWorkloadHealth(_ context.Context, w workload) workload {
	p.calls.Add(1)
	current := p.inFlight.Add(1)
	for {
		seen := p.maxInFlight.Load()
		if current <= seen || p.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}
	time.Sleep(p.delay)
	p.inFlight.Add(-1)
	w.Health = statusUp
	return w
}

func routedContainer(id string, name string, host string) runtimeContainer {
	return enabledContainer(id, name, stateRunning, map[string]string{
		"traefik.http.routers." + name + ".rule": "Host(`" + host + "`)",
	})
}

func TestBuildSnapshotReportsEachWorkload(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timeoutErr := &url.Error{Op: "Get", URL: "http://b.local", Err: context.DeadlineExceeded}
	client := newScriptedHTTPClient(clock, map[string][]probeStep{
		"http://a.local": {{latency: 50 * time.Millisecond, status: http.StatusOK}},
		"http://b.local": {{err: timeoutErr}},
	})
	rs := &mockRuntimeService{containers: []runtimeContainer{
		routedContainer("bbb", "B", "b.local"),
		routedContainer("aaa", "A", "a.local"),
	}}
	controller := newCatalogController(rs, newHealthProber(client, clock, testProberConfig()), testDiscovery, 2, clock)

	snapshot, err := controller.buildSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Count)
	assert.Equal(t, clock.Now().UTC(), snapshot.GeneratedAt)
	require.Len(t, snapshot.Workloads, 2)

	a, b := snapshot.Workloads[0], snapshot.Workloads[1]
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, statusUp, a.Health)
	assert.Equal(t, 1, a.Attempts)
	assert.Nil(t, a.LastError)

	assert.Equal(t, "B", b.Name)
	assert.Equal(t, statusDown, b.Health)
	assert.Equal(t, 3, b.Attempts)
	assert.Nil(t, b.ResponseTimeMs)
	if assert.NotNil(t, b.LastError) {
		assert.Equal(t, "timeout", *b.LastError)
	}
}

func TestBuildSnapshotDoesNotProbeStoppedWorkloads(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client := &mockHTTPClient{
		doFunc: func(_ *http.Request) (*http.Response, error) {
			t.Fatal("a stopped workload must not be probed")
			return nil, nil
		},
	}
	stopped := routedContainer("ccc", "stopped", "stopped.local")
	stopped.state = "exited"
	controller := newCatalogController(&mockRuntimeService{containers: []runtimeContainer{stopped}},
		newHealthProber(client, clock, testProberConfig()), testDiscovery, 2, clock)

	snapshot, err := controller.buildSnapshot(context.Background())

	require.NoError(t, err)
	require.Len(t, snapshot.Workloads, 1)
	assert.Equal(t, statusDown, snapshot.Workloads[0].Health)
	assert.Equal(t, 0, snapshot.Workloads[0].Attempts)
}

func TestBuildSnapshotRuntimeFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rs := &mockRuntimeService{err: errors.New("Cannot connect to the Docker daemon")}
	controller := newCatalogController(rs, &trackingProber{}, testDiscovery, 2, clock)

	snapshot, err := controller.buildSnapshot(context.Background())

	assert.Nil(t, snapshot)
	assert.ErrorContains(t, err, "Cannot connect to the Docker daemon")
}

func TestBuildSnapshotEmptyCatalog(t *testing.T) {
	clock := clockwork.NewFakeClock()
	controller := newCatalogController(&mockRuntimeService{}, &trackingProber{}, testDiscovery, 2, clock)

	snapshot, err := controller.buildSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.Count)
	assert.NotNil(t, snapshot.Workloads)
}

func TestBuildSnapshotBoundsConcurrentChecks(t *testing.T) {
	const limit = 3
	containers := make([]runtimeContainer, 0, 10)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		containers = append(containers, routedContainer(name+"-id", name, name+".local"))
	}
	prober := &trackingProber{delay: 20 * time.Millisecond}
	controller := newCatalogController(&mockRuntimeService{containers: containers}, prober, testDiscovery, limit, clockwork.NewRealClock())

	snapshot, err := controller.buildSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 10, snapshot.Count)
	assert.Equal(t, int32(10), prober.calls.Load())
	assert.LessOrEqual(t, prober.maxInFlight.Load(), int32(limit))
	assert.GreaterOrEqual(t, prober.maxInFlight.Load(), int32(1))
}
