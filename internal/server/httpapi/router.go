// Package httpapi is the public HTTP surface of the server: auth routes,
// the protected admin route, health and metrics.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/homesite/internal/logging"
	"github.com/dmitrijs2005/homesite/internal/server/metrics"
	"github.com/dmitrijs2005/homesite/internal/server/ratelimit"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// RouterConfig holds the collaborators of the HTTP router.
type RouterConfig struct {
	Users  UserService
	Logger logging.Logger

	// Metrics enables request metrics and the /metrics route. Optional.
	Metrics *metrics.Metrics

	// AuthLimiter throttles register and login. Nil disables limiting.
	AuthLimiter ratelimit.Limiter
}

// NewRouter builds the handler tree.
//
// Order: Recover -> RequestID -> AccessLog -> Metrics -> route.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	logger = logger.With("module", "httpapi")

	h := &handler{users: cfg.Users, logger: logger}

	var authMW []Middleware
	if cfg.AuthLimiter != nil {
		var o RateLimitObserver
		if cfg.Metrics != nil {
			o = cfg.Metrics
		}
		authMW = append(authMW, RateLimit(cfg.AuthLimiter, logger, o))
	}
	authMW = append(authMW, MaxBody(MaxBodyBytes))
	protected := RequireAuth(cfg.Users)

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/register", Chain(http.HandlerFunc(h.register), authMW...))
	mux.Handle("POST /api/auth/login", Chain(http.HandlerFunc(h.login), authMW...))
	mux.Handle("GET /api/auth/me", protected(http.HandlerFunc(h.me)))
	mux.Handle("GET /api/admin", protected(http.HandlerFunc(h.admin)))
	mux.HandleFunc("GET /health", h.health)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	chain := []Middleware{Recover(logger), RequestID(), AccessLog(logger)}
	if cfg.Metrics != nil {
		chain = append(chain, Metrics(cfg.Metrics))
	}
	return Chain(mux, chain...)
}
