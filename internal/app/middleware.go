package app

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/observability"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/platform/httpx"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

// Headers set by the gateway after authenticating the caller.
const (
	HeaderActorID      = "X-Actor-ID"
	HeaderActorRole    = "X-Actor-Role"
	HeaderActorCentral = "X-Actor-Central"
	HeaderActorOutlets = "X-Actor-Outlets"
)

// RoleOwner sees and acts on every location.
const RoleOwner = "owner"

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the service middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.Config.IsProduction(),
	})

	timeout := 30 * time.Second
	perMinute := 120
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		if cfg.Config.RateLimitPerMin > 0 {
			perMinute = cfg.Config.RateLimitPerMin
		}
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request rejected")
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		httprate.Limit(perMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit reached")
			}),
		),
		ActorMiddleware,
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

// ActorMiddleware resolves the caller identity and accessible locations
// from gateway headers. Requests without an actor id carry no actor and
// therefore an empty scope.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromHeaders(r.Header)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

func actorFromHeaders(h http.Header) (shared.Actor, bool) {
	id := strings.TrimSpace(h.Get(HeaderActorID))
	if id == "" {
		return shared.Actor{}, false
	}
	role := strings.ToLower(strings.TrimSpace(h.Get(HeaderActorRole)))
	actor := shared.Actor{ID: id, Role: role}
	if role == RoleOwner {
		actor.Scope = location.FullScope()
		return actor, true
	}
	central, _ := strconv.ParseBool(strings.TrimSpace(h.Get(HeaderActorCentral)))
	actor.Scope = location.NewScope(central, strings.Split(h.Get(HeaderActorOutlets), ",")...)
	return actor, true
}
