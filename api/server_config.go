package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the registry API server built by
// httpserver.New. The server trusts the CallerHeader of every request, so
// ListenAddr should only be reachable through the authenticating gateway.
type HTTPServerConfig struct {
	// ListenAddr serves the registry API and the health endpoints.
	ListenAddr string

	// MetricsAddr serves Prometheus ledger, notification and document
	// metrics. Empty disables the metrics listener.
	MetricsAddr string

	// EnablePprof mounts /debug/pprof on the API router.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /readyz reports 503 before shutdown, so load
	// balancers stop routing ledger writes to this instance.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests.
	GracefulShutdownDuration time.Duration

	// ReadTimeout must cover document uploads of up to
	// registryhandler.MaxDocumentSize.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
