/* handlers.go
 * Contains the router and the HTTP handlers for the game list. Handlers only translate between HTTP and the api
 * package; refreshes run in the background and are reported through /api/status
 */

package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"uscf-gamelist/api/api"
	"uscf-gamelist/api/logic"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const defaultRefreshTimeout = 15 * time.Minute

// maxBodyBytes limits request bodies, which are tiny json documents
const maxBodyBytes = 64 << 10

// NewServer creates a server for cfg. Call Close to cancel background refreshes
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		api:            cfg.API,
		logger:         logger,
		refreshTimeout: timeout,
		baseCtx:        ctx,
		cancel:         cancel,
	}
}

// Close cancels running background refreshes and waits for them to return
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until background refreshes have finished
func (s *Server) Wait() {
	s.wg.Wait()
}

// Routes builds the chi router
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)
	router.Use(s.requestLogger)

	router.Get("/", s.ReportHandler)
	router.Route("/api", func(r chi.Router) {
		r.Get("/games", s.GamesHandler)
		r.Get("/tournaments", s.TournamentsHandler)
		r.Get("/stats", s.StatsHandler)
		r.Get("/status", s.StatusHandler)
		r.Get("/cache", s.CacheInfoHandler)
		r.Get("/links/suggestions", s.LinkSuggestionsHandler)

		r.Post("/refresh", s.RefreshHandler)
		r.Post("/links", s.AddLinkHandler)
		r.Post("/publish", s.PublishHandler)
	})

	return router
}

// requestLogger logs one line per request with zap
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestId", chiMiddleware.GetReqID(r.Context())),
		)
	})
}

// writeJSON sends data as a json response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal json response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(js, '\n')); err != nil {
		s.logger.Warn("failed to write json response", zap.Error(err))
	}
}

// writeError sends {"error": message}. Server errors are logged with the underlying cause
func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		s.logger.Error(message, zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: message})
}

// readJSON decodes a single json document from the body. An empty body leaves dst untouched
func readJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return err
	}
	if len(body) > maxBodyBytes {
		return errors.New("request body is too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}

// region read handlers

// ReportHandler serves the html game list
func (s *Server) ReportHandler(w http.ResponseWriter, r *http.Request) {
	page, err := s.api.RenderReport("")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to render game list", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page)
}

// GamesHandler returns the display models
func (s *Server) GamesHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.api.Games())
}

// TournamentsHandler returns the distinct tournaments
func (s *Server) TournamentsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.api.Tournaments())
}

// StatsHandler returns the yearly statistics and the summary
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	years, total := s.api.YearlyStats()
	if years == nil {
		years = []logic.YearStats{}
	}
	s.writeJSON(w, http.StatusOK, statsResponse{Years: years, Total: total, Summary: s.api.Summary()})
}

// StatusHandler reports whether a refresh is running and how the last one ended
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	var last *refreshStatus
	if s.lastRefresh != nil {
		copied := *s.lastRefresh
		last = &copied
	}
	s.mu.Unlock()
	s.writeJSON(w, http.StatusOK, statusResponse{Refreshing: running || s.api.Refreshing(), LastRefresh: last})
}

// CacheInfoHandler describes the games cache
func (s *Server) CacheInfoHandler(w http.ResponseWriter, r *http.Request) {
	info, err := s.api.CacheInfo(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read cache", err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// LinkSuggestionsHandler returns candidate tournaments for link entries that matched nothing
func (s *Server) LinkSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	suggestions := s.api.LinkSuggestions()
	if suggestions == nil {
		suggestions = []logic.LinkSuggestion{}
	}
	s.writeJSON(w, http.StatusOK, suggestions)
}

// endregion

// region write handlers

// RefreshHandler starts a refresh in the background
// Preconditions: Receives an optional {"memberId": "..."} body
// Postconditions: Responds 202 once the refresh has been started, 409 if one is already running and 400 for a
// malformed body. The outcome is available from /api/status
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body", err)
		return
	}

	s.mu.Lock()
	if s.running || s.api.Refreshing() {
		s.mu.Unlock()
		s.writeError(w, http.StatusConflict, api.ErrRefreshInProgress.Error(), nil)
		return
	}
	status := &refreshStatus{StartedAt: time.Now().UTC()}
	s.lastRefresh = status
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.baseCtx, s.refreshTimeout)
		defer cancel()

		result, err := s.api.Refresh(ctx, req.MemberID, func(msg string) {
			s.logger.Debug("refresh progress", zap.String("message", msg))
		})

		finished := time.Now().UTC()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.running = false
		status.FinishedAt = &finished
		if err != nil {
			s.logger.Error("background refresh failed", zap.Error(err))
			status.Error = err.Error()
			return
		}
		status.Result = &result
		status.Skipped = result.SkippedSections()
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

// AddLinkHandler attaches a game link to a tournament
// Preconditions: Receives {"eventName", "url", "confirm"}
// Postconditions: Responds 200 with the tournament name and number of games updated, 400 for a missing name or
// url, 409 when the url needs confirmation, 404 for an unknown tournament and 500 if the link could not be saved
func (s *Server) AddLinkHandler(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body", err)
		return
	}
	if strings.TrimSpace(req.EventName) == "" {
		s.writeError(w, http.StatusBadRequest, "eventName is required", nil)
		return
	}

	name, updated, err := s.api.AddGameLink(r.Context(), req.EventName, req.URL, req.Confirm)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, linkResponse{EventName: name, Updated: updated})
	case errors.Is(err, logic.ErrEmptyGameURL):
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, logic.ErrMalformedGameURL):
		s.writeError(w, http.StatusConflict, err.Error()+": resend with confirm set to keep it", nil)
	case errors.Is(err, logic.ErrUnknownTournament):
		s.writeError(w, http.StatusNotFound, err.Error(), nil)
	default:
		s.writeError(w, http.StatusInternalServerError, "failed to save game link", err)
	}
}

// PublishHandler uploads the html game list
func (s *Server) PublishHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.api.Publish(r.Context(), "")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to publish game list", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"published": n})
}

// endregion
