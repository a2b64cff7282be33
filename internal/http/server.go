package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"yarikuri/internal/cache"
	"yarikuri/internal/middleware/ratelimit"
	"yarikuri/internal/middleware/security"
	"yarikuri/internal/middleware/trace"
	"yarikuri/internal/services"
)

// Server exposes the planner as a JSON API. Every mutating endpoint
// returns the freshly recomputed plan so clients never need a second
// round trip to see the consequences of a change.
type Server struct {
	http.Server
	planner     *services.PlannerService
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	// Plan responses are cached by revision. A mutation bumps the
	// revision, so stale entries are never served; they just age out.
	planCache *cache.LRUCache[planResponse]

	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, planner *services.PlannerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		planner:      planner,
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:       trace.NewMiddleware(clientIP),
		planCache:    cache.NewLRUCache[planResponse](16, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.planCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/plan", s.handleGetPlan)

	mux.HandleFunc("POST /api/wishlist", s.handleAddWishlistItem)
	mux.HandleFunc("DELETE /api/wishlist/{id}", s.handleDeleteWishlistItem)
	mux.HandleFunc("POST /api/wishlist/{id}/move", s.handleMoveWishlistItem)
	mux.HandleFunc("POST /api/wishlist/{id}/purchase", s.handlePurchaseItem)
	mux.HandleFunc("PUT /api/wishlist/order", s.handleReorderWishlist)

	mux.HandleFunc("GET /api/events", s.handleListEvents)
	mux.HandleFunc("POST /api/events", s.handleAddEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	mux.HandleFunc("GET /api/rules", s.handleListRules)
	mux.HandleFunc("POST /api/rules", s.handleApplyRule)
	mux.HandleFunc("DELETE /api/rules/{id}", s.handleDeleteRule)

	mux.HandleFunc("PUT /api/settings/safety-line", s.handleSetSafetyLine)
	mux.HandleFunc("PUT /api/settings/initial-assets", s.handleSetInitialAssets)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)

	mux.HandleFunc("GET /api/snapshot", s.handleExportSnapshot)
	mux.HandleFunc("POST /api/snapshot", s.handleImportSnapshot)

	// Rate limiting applies to mutations only; reads are cheap.
	limited := s.rateLimiter.Middleware(clientIP, nil)
	var handler http.Handler = mux
	handler = mutationOnly(limited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

// mutationOnly applies the wrapped middleware to non-GET requests and
// passes reads straight through.
func mutationOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) cachedPlan(ctx context.Context) planResponse {
	key := strconv.FormatInt(s.planner.Revision(), 10)
	if resp, found := s.planCache.Get(key); found {
		return resp
	}
	resp := toPlanResponse(s.planner.Plan(ctx))
	s.planCache.Set(key, resp)
	return resp
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
