package server

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/chorebridge/internal/auth"
	"github.com/dukerupert/chorebridge/internal/handler"
	"github.com/dukerupert/chorebridge/internal/middleware"
	"github.com/dukerupert/chorebridge/internal/store"
)

// Config controls the stand-in API.
type Config struct {
	// Secret signs session tokens. A random one is used when empty.
	Secret   []byte
	TokenTTL time.Duration
	// RestrictCompletion limits completing chores to paid plans.
	RestrictCompletion bool
	// RateLimit caps requests per caller per RateWindow. Zero disables it.
	RateLimit  int
	RateWindow time.Duration
}

type Server struct {
	db          *sql.DB
	cfg         Config
	issuer      *auth.Issuer
	userStore   *store.UserStore
	circleStore *store.CircleStore
	labelStore  *store.LabelStore
	choreStore  *store.ChoreStore
	authH       *handler.AuthHandler
	choreH      *handler.ChoreHandler
	circleH     *handler.CircleHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		rand.Read(cfg.Secret)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}

	issuer := auth.NewIssuer(cfg.Secret, cfg.TokenTTL)
	userStore := store.NewUserStore(db)
	circleStore := store.NewCircleStore(db)
	labelStore := store.NewLabelStore(db)
	choreStore := store.NewChoreStore(db)

	return &Server{
		db:          db,
		cfg:         cfg,
		issuer:      issuer,
		userStore:   userStore,
		circleStore: circleStore,
		labelStore:  labelStore,
		choreStore:  choreStore,
		authH:       handler.NewAuthHandler(userStore, issuer, logger.With("component", "auth")),
		choreH:      handler.NewChoreHandler(choreStore, circleStore, logger.With("component", "chore")),
		circleH:     handler.NewCircleHandler(circleStore, labelStore, logger.With("component", "circle")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Issuer returns the token issuer, so tests can revoke sessions.
func (s *Server) Issuer() *auth.Issuer {
	return s.issuer
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/v1/auth/login", s.rateLimitedHandler(s.authH.Login))

	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)

	byUser := func(r *http.Request) string {
		return "user:" + strconv.Itoa(auth.UserID(r.Context()))
	}
	limited := middleware.RateLimit(s.rateLimiter, byUser, s.cfg.RateLimit, s.cfg.RateWindow)(apiMux)
	outerMux.Handle("/api/", middleware.RequireToken(s.issuer, s.userStore, s.circleStore)(limited))

	return middleware.AccessLog(s.logger)(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := "ok"
	if err := s.db.PingContext(r.Context()); err != nil {
		status = "degraded"
	}
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	byIP := func(r *http.Request) string { return "ip:" + middleware.RealIP(r) }
	return middleware.RateLimit(s.rateLimiter, byIP, s.cfg.RateLimit, s.cfg.RateWindow)(h).ServeHTTP
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/chores/{$}", s.choreH.List)
	mux.HandleFunc("POST /api/v1/chores/{$}", s.choreH.Create)
	mux.HandleFunc("GET /api/v1/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/v1/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/v1/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("PUT /api/v1/chores/{id}/priority", s.choreH.UpdatePriority)
	mux.HandleFunc("PUT /api/v1/chores/{id}/assignee", s.choreH.UpdateAssignee)
	mux.HandleFunc("POST /api/v1/chores/{id}/skip", s.choreH.Skip)

	complete := http.Handler(http.HandlerFunc(s.choreH.Complete))
	if s.cfg.RestrictCompletion {
		complete = middleware.RequirePlan(complete)
	}
	mux.Handle("POST /api/v1/chores/{id}/do", complete)

	mux.HandleFunc("GET /api/v1/circles/members/{$}", s.circleH.Members)
	mux.HandleFunc("GET /api/v1/labels", s.circleH.Labels)
}
