package httpapi

import (
	"net/http"

	"github.com/MrEthical07/edgeauth"
	"github.com/MrEthical07/edgeauth/internal/respond"
	"github.com/MrEthical07/edgeauth/middleware"
	"github.com/MrEthical07/edgeauth/permission"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Options wires the router. Metrics, when set, is served at GET /metrics.
type Options struct {
	Engine  *edgeauth.Engine
	Logger  *zap.Logger
	Metrics http.Handler
	Service string
}

type server struct {
	engine *edgeauth.Engine
	log    *zap.Logger
}

var (
	errNotFound         = &edgeauth.Error{Code: "not_found", Message: "Not Found", Status: http.StatusNotFound}
	errMethodNotAllowed = &edgeauth.Error{Code: "method_not_allowed", Message: "Method Not Allowed", Status: http.StatusMethodNotAllowed}
)

// NewRouter builds the HTTP surface: the auth endpoints, the role-guarded check endpoints,
// health and metrics. The whole router is traced by otelhttp.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	service := opts.Service
	if service == "" {
		service = "edgeauth"
	}
	s := &server{engine: opts.Engine, log: log.Named("http")}

	r := chi.NewRouter()
	r.Use(requestContext)
	r.Use(accessLog(s.log))
	r.Use(recoverer(s.log))
	r.Use(respond.SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { respond.Error(w, errNotFound) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) { respond.Error(w, errMethodNotAllowed) })

	r.Get("/health", s.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(s.engine, edgeauth.RateClassLogin)).Post("/login", s.login)
		r.With(middleware.RateLimit(s.engine, edgeauth.RateClassRefresh)).Post("/refresh", s.refresh)
		r.Post("/logout", s.logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAccessToken(s.engine))
		r.Use(middleware.RateLimit(s.engine, edgeauth.RateClassAPI))

		r.With(middleware.RequireRole(s.engine)).Get("/me", s.me)
		r.With(middleware.RequireRole(s.engine, permission.RoleDJ)).Get("/dj/ping", s.ping("dj"))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(s.engine, permission.RoleAdmin))
			r.Get("/ping", s.ping("admin"))
			r.Post("/role", s.setRole)
		})
	})

	return otelhttp.NewHandler(r, service)
}
