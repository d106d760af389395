package myhttp

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

// newServerMux returns a mux whose *WithMiddleware routes are traced, profiled and timed in
// httpRequestsDurationMicroSeconds by method, handler and status code.
func newServerMux(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram) *myRouter {
	return &myRouter{
		ServeMux:                         http.NewServeMux(),
		logger:                           logger,
		httpRequestsDurationMicroSeconds: httpRequestsDurationMicroSeconds,
	}
}

var NewServerMux = newServerMux
