/*
Package httpserver hosts the registry API behind the operational endpoints
every deployment needs.

The server wraps any RouteRegistrar (normally a registryhandler.Handler) in
a chi router with request logging and panic recovery, and adds:

  - GET /livez - Liveness check
  - GET /readyz - Readiness check, 503 while draining
  - GET /drain - Mark the server as not ready
  - GET /undrain - Mark the server as ready
  - /debug/pprof - Profiling, when EnablePprof is set

Prometheus metrics are served on a separate listener when MetricsAddr is
configured.

# Example Usage

	cfg := &api.HTTPServerConfig{
		ListenAddr:               ":8080",
		MetricsAddr:              ":9090",
		Log:                      logger,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 10 * time.Second,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             30 * time.Second,
	}

	srv, err := httpserver.New(cfg, registryhandler.NewHandler(suite, documents, logger))
	if err != nil {
		log.Fatal(err)
	}
	srv.RunInBackground()
	defer srv.Shutdown()
*/
package httpserver
