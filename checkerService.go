package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	log "github.com/Financial-Times/go-logger"
	"github.com/jonboulle/clockwork"
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var errTimeout = errors.New("timeout")

type unacceptableStatusError struct {
	status string
}

func (e *unacceptableStatusError) Error() string {
	return e.status
}

type proberConfig struct {
	attemptTimeout    time.Duration
	degradedThreshold time.Duration
	maxAttempts       int
	retryCooldown     time.Duration
}

type healthProber struct {
	httpClient httpClient
	clock      clockwork.Clock
	config     proberConfig
}

// candidateResult is the outcome of the retry loop on a single candidate URL.
type candidateResult struct {
	status   healthStatus
	elapsed  time.Duration
	attempts int
	err      error
}

func newHealthProber(client httpClient, clock clockwork.Clock, config proberConfig) *healthProber {
	return &healthProber{httpClient: client, clock: clock, config: config}
}

func newProbeHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
		// a redirect is an acceptable answer on its own
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// probe performs one attempt against url, bounded by the per-attempt timeout.
func (p *healthProber) probe(ctx context.Context, url string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("error constructing health check request: %w", err)
	}

	start := p.clock.Now()
	resp, err := p.httpClient.Do(req)
	elapsed := p.clock.Since(start)
	if err != nil {
		return 0, classifyTransportError(ctx, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Error("Cannot close response body reader.")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return 0, &unacceptableStatusError{status: statusText(resp)}
	}
	return elapsed, nil
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errTimeout
	}
	return err
}

// checkCandidate retries a single candidate until it answers acceptably or
// maxAttempts is reached. Only a fast first attempt counts as up.
func (p *healthProber) checkCandidate(ctx context.Context, url string) candidateResult {
	var lastErr error
	for attempt := 1; attempt <= p.config.maxAttempts; attempt++ {
		if attempt > 1 && p.config.retryCooldown > 0 {
			p.clock.Sleep(p.config.retryCooldown)
		}

		elapsed, err := p.probe(ctx, url)
		if err == nil {
			status := statusUp
			if attempt > 1 || elapsed >= p.config.degradedThreshold {
				status = statusDegraded
			}
			return candidateResult{status: status, elapsed: elapsed, attempts: attempt}
		}

		lastErr = err
		log.Debugf("Health check attempt %d/%d against %s failed: %s", attempt, p.config.maxAttempts, url, err.Error())
	}

	return candidateResult{status: statusDown, attempts: p.config.maxAttempts, err: lastErr}
}

// checkWorkloadHealth fills in the health fields of w. Candidates are tried in
// order; a winner preceded by an exhausted candidate is reported degraded.
func (p *healthProber) checkWorkloadHealth(ctx context.Context, w workload) workload {
	w.ResponseTimeMs = nil
	w.LastError = nil
	w.CheckedURL = nil
	w.Attempts = 0

	if w.State != stateRunning {
		w.Health = statusDown
		return w
	}
	if len(w.Candidates) == 0 {
		w.Health = statusUp
		return w
	}

	var last candidateResult
	for i, candidate := range w.Candidates {
		result := p.checkCandidate(ctx, candidate)
		if result.status == statusDown {
			last = result
			continue
		}

		if i > 0 {
			result.status = statusDegraded
		}
		elapsedMs := result.elapsed.Milliseconds()
		w.Health = result.status
		w.ResponseTimeMs = &elapsedMs
		w.Attempts = result.attempts
		w.CheckedURL = stringPtr(candidate)
		return w
	}

	w.Health = statusDown
	w.Attempts = last.attempts
	w.CheckedURL = stringPtr(w.Candidates[0])
	if last.err != nil {
		w.LastError = stringPtr(last.err.Error())
	}
	log.Warnf("All %d health check candidates of workload %s failed, last error: %v", len(w.Candidates), w.Name, last.err)
	return w
}

func stringPtr(s string) *string {
	return &s
}
