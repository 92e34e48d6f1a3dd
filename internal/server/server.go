// Package server exposes the coffee machine over HTTP. Every browser gets its
// own machine, identified by a signed session cookie.
package server

import (
	"context"
	"net/http"
	"time"

	"coffee-machine/internal/machine"
	"coffee-machine/internal/metrics"
	"coffee-machine/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// CookieName is the session cookie set on every client.
const CookieName = "coffee_session"

// SalesReporter answers the operator's sales queries.
type SalesReporter interface {
	GetDailySales(ctx context.Context, days int) ([]metrics.DailySales, error)
	GetSalesByDrink(ctx context.Context) ([]metrics.DrinkSales, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	coordinator *machine.Coordinator
	sessions    *session.Manager
	tokens      *session.Tokens
	sessionTTL  time.Duration
	recorders   []machine.SaleRecorder
	sales       SalesReporter
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithSaleRecorders registers sinks for fulfilled orders. Their failures are
// logged and never undo the sale.
func WithSaleRecorders(r ...machine.SaleRecorder) Option {
	return func(s *Server) { s.recorders = append(s.recorders, r...) }
}

// WithSalesReporter enables GET /api/sales.
func WithSalesReporter(r SalesReporter) Option {
	return func(s *Server) { s.sales = r }
}

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server. Sessions and their cookies live for ttl.
func New(coordinator *machine.Coordinator, sessions *session.Manager, tokens *session.Tokens, ttl time.Duration, opts ...Option) *Server {
	s := &Server{
		coordinator: coordinator,
		sessions:    sessions,
		tokens:      tokens,
		sessionTTL:  ttl,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/api/menu", s.handleMenu)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Get("/api/resources", s.handleResources)
		r.Post("/api/order", s.handleOrder)
		r.Post("/api/refill", s.handleRefill)
		r.Post("/api/power", s.handlePower)
		r.Get("/api/report", s.handleReport)
	})

	if s.sales != nil {
		r.Get("/api/sales", s.handleSales)
	}
	return r
}

type sessionKey struct{}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// withSession resolves the caller's session from the cookie. A missing,
// expired or tampered cookie starts a new session. A cookie past half its
// lifetime is reissued for the same session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		issue := true
		if c, err := r.Cookie(CookieName); err == nil {
			if parsed, exp, err := s.tokens.Parse(c.Value); err == nil {
				id = parsed
				issue = s.tokens.Stale(exp)
			} else {
				s.logger.Debug("session cookie rejected", zap.Error(err))
			}
		}

		if id == "" {
			id = session.NewID()
		}
		if issue {
			token, err := s.tokens.Issue(id)
			if err != nil {
				s.logger.Error("failed to issue session token", zap.Error(err))
				writeInternalError(w)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(s.sessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
