package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/mkrasov/planner/internal/session"
)

// timerPushInterval is how often the timer feed pushes a snapshot.
const timerPushInterval = time.Second

// TimerFeedHandler streams the active session's timer facts over a
// WebSocket so the frontend can render a live countdown without polling
// the REST API.
type TimerFeedHandler struct {
	svc           *session.Service
	allowedOrigin string
	isDev         bool
}

// NewTimerFeedHandler creates a timer feed handler.
func NewTimerFeedHandler(svc *session.Service, allowedOrigin string, isDev bool) *TimerFeedHandler {
	return &TimerFeedHandler{svc: svc, allowedOrigin: allowedOrigin, isDev: isDev}
}

// timerUpdate is one pushed frame. Active is false when no session runs;
// the other fields are omitted in that case.
type timerUpdate struct {
	Active    string         `json:"session_id,omitempty"`
	IsActive  bool           `json:"active"`
	StartTime *time.Time     `json:"start_time,omitempty"`
	Planned   int            `json:"planned_duration,omitempty"`
	Timer     *session.Timer `json:"timer,omitempty"`
}

// ServeHTTP upgrades the connection and pushes timer snapshots until the
// client disconnects or the request context ends.
func (h *TimerFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept timer feed WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed ended"); closeErr != nil {
			slog.Debug("Timer feed close error", "error", closeErr)
		}
	}()

	ctx := r.Context()
	ticker := time.NewTicker(timerPushInterval)
	defer ticker.Stop()

	// Push the first frame immediately so the client doesn't wait a tick.
	if err := h.pushUpdate(ctx, ws); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.pushUpdate(ctx, ws); err != nil {
				// Client gone or write failed; either way the feed is over.
				slog.Debug("Timer feed ended", "error", err)
				return
			}
		}
	}
}

func (h *TimerFeedHandler) pushUpdate(ctx context.Context, ws *websocket.Conn) error {
	update := timerUpdate{}

	s, err := h.svc.Active(ctx)
	if err != nil {
		slog.Warn("Timer feed failed to load active session", "error", err)
	} else if s != nil {
		t := session.TimerFor(s, h.svc.Clock().Now())
		update = timerUpdate{
			Active:    s.ID,
			IsActive:  true,
			StartTime: &s.StartTime,
			Planned:   s.PlannedDurationMinutes,
			Timer:     &t,
		}
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, ws, update)
}

func (h *TimerFeedHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.allowedOrigin != "" && strings.HasPrefix(origin, h.allowedOrigin)
}
