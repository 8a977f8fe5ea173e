package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/route"
	"github.com/cmlabs-hris/hris-portal-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
)

// RouterConfig holds what the router needs beyond its handlers
type RouterConfig struct {
	AllowedOrigins []string
	Screens        route.Screens
	Paths          route.Paths
	Logger         *slog.Logger
	RateLimit      int          // API requests per minute per IP, 0 disables
	Metrics        http.Handler // mounted at /metrics when set
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	screenHandler ScreenHandler,
	channelHandler ChannelHandler,
	notificationHandler NotificationHandler,
	locationHandler LocationHandler,
) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Location"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/healthz"))

	// Token from the Authorization header or the jwt cookie; never rejects
	// on its own, the guards decide.
	r.Use(jwtauth.Verifier(JWTService.JWTAuth()))

	// Guarded screens
	for _, screen := range cfg.Screens {
		r.With(middleware.Guard(screen, cfg.Paths)).Get(screen.Path, screenHandler.Show(screen))
	}

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// Presence/location channel
	r.Get("/ws", channelHandler.Connect)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentEncoding("application/json"))
		if cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
		}

		r.Get("/session", screenHandler.Session)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthRequired)

			r.Get("/channel/token", channelHandler.Token)

			r.With(middleware.RequireCapability(route.CapabilityAdminOrLeader)).
				Get("/locations", locationHandler.Snapshot)

			r.With(middleware.RequireCapability(route.CapabilityAdmin)).
				Post("/notifications", notificationHandler.Send)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})
	return r
}
