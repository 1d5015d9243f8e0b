// Package api exposes the kiosk and admin HTTP surfaces.
package api

import (
	"context"
	"net/http"
	"time"

	"crewtime/internal/admin"
	"crewtime/internal/attendance"
	"crewtime/internal/cache"
	"crewtime/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// MonthSyncer mirrors a month listing into an external spreadsheet.
type MonthSyncer interface {
	SyncMonth(ctx context.Context, monthTitle string, rows []model.Entry, loc *time.Location) error
}

// Server holds the HTTP handler dependencies. Board cache and sheets syncer
// are optional; nil disables them.
type Server struct {
	svc    *attendance.Service
	admin  *admin.Service
	board  *cache.BoardCache
	sheets MonthSyncer
	loc    *time.Location
	logger zerolog.Logger
}

func NewServer(svc *attendance.Service, adminSvc *admin.Service, board *cache.BoardCache, sheets MonthSyncer, loc *time.Location, logger zerolog.Logger) *Server {
	if loc == nil {
		loc = time.Local
	}
	return &Server{
		svc:    svc,
		admin:  adminSvc,
		board:  board,
		sheets: sheets,
		loc:    loc,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the route tree. Kiosk mutations share one rate limiter: two
// tablets in a lobby never legitimately produce a burst, a wedged client does.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	limiter := rate.NewLimiter(rate.Limit(20), 40)

	r.Route("/api", func(r chi.Router) {
		r.Get("/members", s.handleMembers)

		r.Route("/kiosk", func(r chi.Router) {
			r.Get("/status", s.handleBoard)
			r.Route("/{hall}/{role}", func(r chi.Router) {
				r.Get("/", s.handleSlot)
				r.Group(func(r chi.Router) {
					r.Use(s.rateLimit(limiter))
					r.Post("/checkin", s.handleCheckIn)
					r.Post("/checkout", s.handleCheckOut)
					r.Post("/members", s.handleToggleMember)
					r.Post("/checkin-time", s.handleCorrectCheckInTime)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/entries", s.handleAdminList)
			r.Get("/entries/export.csv", s.handleExportCSV)
			r.Get("/entries/export.xlsx", s.handleExportXLSX)
			r.Patch("/entries/{id}", s.handleAdminUpdate)
			r.Post("/sheets/sync", s.handleSheetsSync)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "リクエストが多すぎます。少し待ってからもう一度お試しください")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// slotParams resolves the {hall}/{role} URL segments. Unknown values are a
// 404: the kiosk only ever links to the six real slots.
func slotParams(r *http.Request) (model.Hall, model.Role, bool) {
	hall, err := model.ParseHall(chi.URLParam(r, "hall"))
	if err != nil {
		return "", "", false
	}
	role, err := model.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return "", "", false
	}
	return hall, role, true
}
