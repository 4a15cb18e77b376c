package catalog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ShopCatalog/pkg/kit"
)

// HandlerOptions describes the middleware stack wrapped around the catalog
// routes.
type HandlerOptions struct {
	Log     *zap.Logger
	Service string

	// Registry collects HTTP metrics. /metrics is served from it only when
	// ServeMetrics is set, behind MetricsToken.
	Registry     *prometheus.Registry
	ServeMetrics bool
	MetricsToken string

	// RequestTimeout bounds each request's context. Zero means no bound.
	RequestTimeout time.Duration
}

func NewHandler(s *Server, o HandlerOptions) http.Handler {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	if s.Log == nil {
		s.Log = log
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, kit.Recoverer, kit.Logging(log))
	if o.RequestTimeout > 0 {
		r.Use(chimw.Timeout(o.RequestTimeout))
	}

	switch {
	case o.Registry != nil:
		r.Use(kit.NewMetrics(o.Registry).Middleware(o.Service, kit.ChiRoutePatternOrPath))
		if o.ServeMetrics {
			exporter := promhttp.HandlerFor(o.Registry, promhttp.HandlerOpts{
				ErrorLog: zap.NewStdLog(log.Named("promhttp")),
			})
			r.With(kit.BearerToken(o.MetricsToken)).Method(http.MethodGet, "/metrics", exporter)
		}
	case o.ServeMetrics:
		log.Warn("metrics requested without a registry; /metrics not served")
	}

	r.Mount("/", s.Routes())
	return r
}
