package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/Financial-Times/go-logger"
	"github.com/gorilla/mux"
	cli "github.com/jawher/mow.cli"
	"github.com/jonboulle/clockwork"
)

const (
	appName = "workload-catalog"

	defaultRefreshSeconds      = 30
	defaultCheckTimeoutMs      = 3000
	defaultDegradedMs          = 800
	defaultMaxRetries          = 3
	defaultMaxConcurrentChecks = 8
	metricsFeedPeriod          = 15 * time.Second
	shutdownTimeout            = 10 * time.Second
)

type catalogOptions struct {
	port                int
	pathPrefix          string
	environment         string
	runtime             string
	namespace           string
	enableLabel         string
	refreshSeconds      int
	checkTimeoutMs      int
	degradedMs          int
	maxRetries          int
	retryCooldownMs     int
	maxConcurrentChecks int
	baseAddress         string
	graphiteURL         string
}

func main() {
	app := cli.App(appName, "Catalog of labelled container workloads with their routes and probed health.")

	port := app.Int(cli.IntOpt{
		Name:   "app-port",
		Value:  8080,
		Desc:   "Port to listen on",
		EnvVar: "APP_PORT",
	})
	pathPrefix := app.String(cli.StringOpt{
		Name:   "path-prefix",
		Value:  "",
		Desc:   "Path prefix for all endpoints",
		EnvVar: "PATH_PREFIX",
	})
	environment := app.String(cli.StringOpt{
		Name:   "environment",
		Value:  "local",
		Desc:   "Environment tag (e.g. local, home-lab)",
		EnvVar: "ENVIRONMENT",
	})
	logLevel := app.String(cli.StringOpt{
		Name:   "log-level",
		Value:  "info",
		Desc:   "Logging level (debug, info, warning, error)",
		EnvVar: "LOG_LEVEL",
	})
	runtime := app.String(cli.StringOpt{
		Name:   "runtime",
		Value:  runtimeDocker,
		Desc:   "Container runtime to discover workloads from (docker or kubernetes)",
		EnvVar: "CONTAINER_RUNTIME",
	})
	namespace := app.String(cli.StringOpt{
		Name:   "namespace",
		Value:  "default",
		Desc:   "Namespace listed by the kubernetes runtime",
		EnvVar: "NAMESPACE",
	})
	enableLabel := app.String(cli.StringOpt{
		Name:   "enable-label",
		Value:  "catalog.enable",
		Desc:   "Label that must be \"true\" or \"1\" for a workload to be cataloged",
		EnvVar: "ENABLE_LABEL",
	})
	refreshSeconds := app.Int(cli.IntOpt{
		Name:   "refresh-interval",
		Value:  defaultRefreshSeconds,
		Desc:   "Seconds between catalog refresh cycles",
		EnvVar: "REFRESH_INTERVAL_SECONDS",
	})
	checkTimeoutMs := app.Int(cli.IntOpt{
		Name:   "check-timeout",
		Value:  defaultCheckTimeoutMs,
		Desc:   "Timeout of a single health check attempt, in milliseconds",
		EnvVar: "CHECK_TIMEOUT_MS",
	})
	degradedMs := app.Int(cli.IntOpt{
		Name:   "degraded-threshold",
		Value:  defaultDegradedMs,
		Desc:   "Response time from which a successful check is reported degraded, in milliseconds",
		EnvVar: "DEGRADED_THRESHOLD_MS",
	})
	maxRetries := app.Int(cli.IntOpt{
		Name:   "max-retries",
		Value:  defaultMaxRetries,
		Desc:   "Maximum attempts per health check candidate",
		EnvVar: "MAX_RETRIES",
	})
	retryCooldownMs := app.Int(cli.IntOpt{
		Name:   "retry-cooldown",
		Value:  0,
		Desc:   "Pause between attempts on the same candidate, in milliseconds",
		EnvVar: "RETRY_COOLDOWN_MS",
	})
	maxConcurrentChecks := app.Int(cli.IntOpt{
		Name:   "max-concurrent-checks",
		Value:  defaultMaxConcurrentChecks,
		Desc:   "Maximum number of workloads probed at the same time",
		EnvVar: "MAX_CONCURRENT_CHECKS",
	})
	baseAddress := app.String(cli.StringOpt{
		Name:   "base-address",
		Value:  "",
		Desc:   "Base address joined with PathPrefix rules to build LAN candidates; empty disables them",
		EnvVar: "BASE_ADDRESS",
	})
	graphiteURL := app.String(cli.StringOpt{
		Name:   "graphite-host",
		Value:  "",
		Desc:   "Graphite host:port; empty disables the graphite feeder",
		EnvVar: "GRAPHITE_URL",
	})

	app.Action = func() {
		log.InitLogger(appName, *logLevel)

		opts := normalizeOptions(catalogOptions{
			port:                *port,
			pathPrefix:          *pathPrefix,
			environment:         *environment,
			runtime:             *runtime,
			namespace:           *namespace,
			enableLabel:         *enableLabel,
			refreshSeconds:      *refreshSeconds,
			checkTimeoutMs:      *checkTimeoutMs,
			degradedMs:          *degradedMs,
			maxRetries:          *maxRetries,
			retryCooldownMs:     *retryCooldownMs,
			maxConcurrentChecks: *maxConcurrentChecks,
			baseAddress:         *baseAddress,
			graphiteURL:         *graphiteURL,
		})

		rs, err := initializeRuntimeService(opts.runtime, opts.namespace, opts.enableLabel)
		if err != nil {
			log.WithError(err).Fatal("Cannot initialise the container runtime client")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		catalog := initializeController(opts, rs, clockwork.NewRealClock())
		go catalog.scheduleRefreshes(ctx)

		handler := &httpHandler{
			controller:  catalog,
			environment: opts.environment,
		}

		promFeeder := newPrometheusFeeder(opts.environment, catalog)
		go promFeeder.feed(metricsFeedPeriod)
		defer promFeeder.stop()

		if opts.graphiteURL != "" {
			graphite := newGraphiteFeeder(opts.graphiteURL, opts.environment, catalog)
			go graphite.feed()
		}

		listen(ctx, newRouter(handler, promFeeder.handler(), opts.pathPrefix), opts.port)
	}

	err := app.Run(os.Args)
	if err != nil {
		panic(fmt.Sprintf("Cannot run the app. Error was: %v", err))
	}
}

func initializeController(opts catalogOptions, rs runtimeService, clock clockwork.Clock) *cachingController {
	prober := newHealthProber(newProbeHTTPClient(), clock, proberConfig{
		attemptTimeout:    time.Duration(opts.checkTimeoutMs) * time.Millisecond,
		degradedThreshold: time.Duration(opts.degradedMs) * time.Millisecond,
		maxAttempts:       opts.maxRetries,
		retryCooldown:     time.Duration(opts.retryCooldownMs) * time.Millisecond,
	})
	builder := newCatalogController(rs, prober, discoveryConfig{
		enableLabel: opts.enableLabel,
		baseAddress: opts.baseAddress,
	}, opts.maxConcurrentChecks, clock)

	return newCachingController(builder, clock, time.Duration(opts.refreshSeconds)*time.Second, opts.baseAddress)
}

// normalizeOptions replaces out-of-range numeric options with their defaults.
func normalizeOptions(opts catalogOptions) catalogOptions {
	clamp := func(name string, value *int, fallback int) {
		if *value > 0 {
			return
		}
		log.Warnf("Invalid value %d for %s, using default %d", *value, name, fallback)
		*value = fallback
	}
	clamp("refresh-interval", &opts.refreshSeconds, defaultRefreshSeconds)
	clamp("check-timeout", &opts.checkTimeoutMs, defaultCheckTimeoutMs)
	clamp("degraded-threshold", &opts.degradedMs, defaultDegradedMs)
	clamp("max-retries", &opts.maxRetries, defaultMaxRetries)
	clamp("max-concurrent-checks", &opts.maxConcurrentChecks, defaultMaxConcurrentChecks)
	if opts.retryCooldownMs < 0 {
		opts.retryCooldownMs = 0
	}
	return opts
}

func newRouter(h *httpHandler, metricsHandler http.Handler, pathPrefix string) *mux.Router {
	r := mux.NewRouter()
	s := r.PathPrefix(pathPrefix).Subrouter()
	s.HandleFunc("/__gtg", h.handleGoodToGo).Methods(http.MethodGet)
	s.HandleFunc("/__health", h.handleCatalogHealth).Methods(http.MethodGet)
	s.HandleFunc("/catalog", h.handleCatalog).Methods(http.MethodGet)
	s.HandleFunc("/catalog/{name}", h.handleWorkload).Methods(http.MethodGet)
	s.HandleFunc("/refresh", h.handleRefresh).Methods(http.MethodPost)
	s.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	return r
}

func listen(ctx context.Context, router http.Handler, port int) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("HTTP server did not shut down cleanly")
		}
	}()

	log.Infof("Listening on :%d", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(fmt.Sprintf("Cannot set up HTTP listener. Error was: %v", err))
	}
}
