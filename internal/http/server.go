package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/monitor"
	"expensetracker/internal/scheduler"
	"expensetracker/internal/services"

	"github.com/gorilla/mux"
)

// MonitorService is the part of the due monitor the API exposes.
type MonitorService interface {
	ForceCheck(ctx context.Context) (monitor.ScanReport, error)
	LastReport() (monitor.ScanReport, bool)
	Today() core.Date
}

// SchedulerStatus reports the cron triggers.
type SchedulerStatus interface {
	Status() scheduler.Status
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes to. Scheduler and DB may be
// nil.
type Deps struct {
	Expenses  *services.ExpenseService
	Recurring *services.RecurringService
	Processor *services.RecurringProcessor
	Users     *services.UserService
	Monitor   MonitorService
	Scheduler SchedulerStatus
	DB        Pinger
	Logger    *log.Logger

	// UserHeader names the header carrying the authenticated user id.
	UserHeader string
	RateLimit  ratelimit.Config

	// Today overrides the current date; defaults to Monitor.Today.
	Today func() core.Date
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	categories *cache.LRUCache[[]core.Category]
	dashboards *cache.LRUCache[core.Dashboard]
	caches     *cache.Manager

	shutdownOnce sync.Once
}

const (
	categoriesKey   = "all"
	cacheCleanEvery = 10 * time.Minute
)

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.UserHeader == "" {
		deps.UserHeader = "X-User-ID"
	}
	if deps.Today == nil {
		if deps.Monitor != nil {
			deps.Today = deps.Monitor.Today
		} else {
			deps.Today = func() core.Date { return core.DateOf(time.Now().UTC()) }
		}
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		deps:       deps,
		logger:     logger,
		limiter:    ratelimit.NewLimiter(deps.RateLimit),
		detector:   security.NewDetector(),
		categories: cache.NewLRUCache[[]core.Category](1, 10*time.Minute),
		dashboards: cache.NewLRUCache[core.Dashboard](200, 5*time.Minute),
		caches:     cache.NewManager(logger),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.caches.Register(s.categories)
	s.caches.Register(s.dashboards)
	s.caches.StartCleanup(cacheCleanEvery)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError(r, "no such route").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(r, http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireUser)

	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/search", s.handleSearchExpenses).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)

	api.HandleFunc("/recurring", s.handleListRecurring).Methods(http.MethodGet)
	api.HandleFunc("/recurring", s.handleCreateRecurring).Methods(http.MethodPost)
	api.HandleFunc("/recurring/{id:[0-9]+}", s.handleGetRecurring).Methods(http.MethodGet)
	api.HandleFunc("/recurring/{id:[0-9]+}", s.handleUpdateRecurring).Methods(http.MethodPut)
	api.HandleFunc("/recurring/{id:[0-9]+}", s.handleDeactivateRecurring).Methods(http.MethodDelete)

	api.HandleFunc("/due", s.handleListDue).Methods(http.MethodGet)
	api.HandleFunc("/due/process", s.handleProcessSelected).Methods(http.MethodPost)
	api.HandleFunc("/due/{id:[0-9]+}/process", s.handleProcessOne).Methods(http.MethodPost)

	api.HandleFunc("/monitor/status", s.handleMonitorStatus).Methods(http.MethodGet)
	api.HandleFunc("/monitor/check", s.handleMonitorCheck).Methods(http.MethodPost)

	var h http.Handler = r
	h = s.limiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(r, http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

// rateLimitKey buckets writes per claimed user, falling back to client IP.
func (s *Server) rateLimitKey(r *http.Request) string {
	if id := r.Header.Get(s.deps.UserHeader); id != "" {
		if _, err := strconv.ParseInt(id, 10, 64); err == nil {
			return "user:" + id
		}
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

func (s *Server) today() core.Date {
	return s.deps.Today()
}

func dashboardKey(userID int64) string {
	return "dashboard:" + strconv.FormatInt(userID, 10)
}

func (s *Server) invalidateDashboard(userID int64) {
	s.dashboards.Delete(dashboardKey(userID))
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
