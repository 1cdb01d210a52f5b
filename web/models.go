package web

import (
	"context"
	"sync"
	"time"
	"uscf-gamelist/api/api"
	"uscf-gamelist/api/logic"

	"go.uber.org/zap"
)

// Config holds the configuration for the web server
type Config struct {
	Addr string
	API  *api.API
	// RefreshTimeout bounds a refresh started over http
	RefreshTimeout time.Duration
	Logger         *zap.Logger
}

// Server is the HTTP server that serves the game list and its management endpoints
type Server struct {
	api            *api.API
	logger         *zap.Logger
	refreshTimeout time.Duration

	// background refreshes run under baseCtx so that Close can cancel them
	baseCtx     context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
	lastRefresh *refreshStatus
}

// linkRequest is the body of POST /api/links
type linkRequest struct {
	EventName string `json:"eventName"`
	URL       string `json:"url"`
	Confirm   bool   `json:"confirm"`
}

// linkResponse is returned after a link has been applied
type linkResponse struct {
	EventName string `json:"eventName"`
	Updated   int    `json:"updated"`
}

// refreshRequest is the optional body of POST /api/refresh
type refreshRequest struct {
	MemberID string `json:"memberId"`
}

// refreshStatus describes the most recent refresh started over http
type refreshStatus struct {
	StartedAt  time.Time            `json:"startedAt"`
	FinishedAt *time.Time           `json:"finishedAt,omitempty"`
	Result     *api.RefreshResult   `json:"result,omitempty"`
	Skipped    []api.SkippedSection `json:"skipped,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// statusResponse is returned by GET /api/status
type statusResponse struct {
	Refreshing  bool           `json:"refreshing"`
	LastRefresh *refreshStatus `json:"lastRefresh,omitempty"`
}

// statsResponse is returned by GET /api/stats
type statsResponse struct {
	Years   []logic.YearStats `json:"years"`
	Total   logic.YearStats   `json:"total"`
	Summary logic.Summary     `json:"summary"`
}

// errorResponse is the body of every error reply
type errorResponse struct {
	Error string `json:"error"`
}
