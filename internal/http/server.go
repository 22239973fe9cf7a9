package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/prefs"
	"expenses/internal/services"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr               string
	TrustedProxies     []string
	RateLimitPerMinute int
	SessionCookie      string
	SessionTTL         time.Duration
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server

	ledger *services.Ledger
	prefs  *prefs.Service
	logger *log.Logger
	now    func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	checks           map[string]ReadinessCheck

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime          time.Time
	expensesCreated int64
	expensesUpdated int64
	expensesDeleted int64
	serverErrors    int64
}

type Option func(*Server)

// WithReadinessCheck adds a dependency to /readyz. The ledger's store is
// always checked.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithClock overrides the clock used for quick filters.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(cfg Config, ledger *services.Ledger, prefsSvc *prefs.Service, logger *log.Logger, opts ...Option) (*Server, error) {
	if ledger == nil || prefsSvc == nil {
		return nil, errors.New("http: ledger and preferences service are required")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "expense_session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}

	detector, err := security.NewDetector(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("configure trusted proxies: %w", err)
	}

	s := &Server{
		ledger:           ledger,
		prefs:            prefsSvc,
		logger:           logger.WithComponent(log.ComponentHTTP),
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: detector,
		checks:           map[string]ReadinessCheck{"store": ledger.Ping},
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, detector.ExtractClientIP)
	for _, opt := range opts {
		opt(s)
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(cfg Config) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("Not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
		TooManyRequestsError().Write(w)
	}))

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", s.handleGetCategory).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id}", s.handleUpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)

	// Registered before /expenses/{id} so they are not taken for IDs.
	session := sessionMiddleware(cfg.SessionCookie, cfg.SessionTTL)
	api.HandleFunc("/expenses/summary", s.handleSummary).Methods(http.MethodGet)
	api.Handle("/expenses/view", session(http.HandlerFunc(s.handleView))).Methods(http.MethodGet)

	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id}", s.handleGetExpense).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	api.Handle("/preferences/filters", session(http.HandlerFunc(s.handleGetFilters))).Methods(http.MethodGet)
	api.Handle("/preferences/filters", session(http.HandlerFunc(s.handlePutFilters))).Methods(http.MethodPut)
	api.Handle("/preferences/filters", session(http.HandlerFunc(s.handleDeleteFilters))).Methods(http.MethodDelete)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = r
	h = s.securityDetector.Middleware(h)
	h = headers.Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// writeError maps domain errors onto status codes. Anything that is not a
// client error is logged and reported with the generic failure message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, notFound, failure, component, op string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(notFound).Write(w)
	case errors.Is(err, core.ErrCategoryInUse):
		BadRequestError("Cannot delete category with expenses").Write(w)
	case errors.Is(err, errInvalidBody):
		BadRequestError("Invalid request body").Write(w)
	case errors.Is(err, core.ErrValidation):
		BadRequestError(validationMessage(err)).Write(w)
	default:
		atomic.AddInt64(&s.appMetrics.serverErrors, 1)
		ctx := r.Context()
		log.FromContext(ctx).WithComponent(component).ErrorContext(ctx, failure,
			log.NewFields().
				WithError(err).
				WithErrorType(errorType(err)).
				WithOperation(op).
				ToSlice()...)
		InternalServerError(failure).Write(w)
	}
}

// validationMessage renders validation errors for clients.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, errMissingFields),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrMissingDate),
		errors.Is(err, core.ErrMissingCategory):
		return "All fields are required"
	case errors.Is(err, core.ErrEmptyName):
		return "Name is required"
	case errors.Is(err, core.ErrNameTooLong):
		return fmt.Sprintf("Name must be at most %d characters", core.MaxCategoryNameLength)
	case errors.Is(err, core.ErrDescriptionTooLong):
		return fmt.Sprintf("Description must be at most %d characters", core.MaxDescriptionLength)
	case errors.Is(err, core.ErrAmountTooLarge):
		return "Amount is too large"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a positive number"
	case errors.Is(err, core.ErrInvalidDate):
		return "Invalid date"
	case errors.Is(err, core.ErrInvalidCategory):
		return "Category not found"
	case errors.Is(err, core.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, errInvalidLimit):
		return "Invalid limit"
	case errors.Is(err, errInvalidPage):
		return "Invalid page"
	case errors.Is(err, errInvalidPageSize):
		return "Invalid page size"
	}
	return strings.TrimPrefix(err.Error(), core.ErrValidation.Error()+": ")
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return log.ErrorTypeNetwork
	}
	return log.ErrorTypeDatabase
}
