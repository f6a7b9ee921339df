package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mkrasov/planner/internal/domain"
	"github.com/mkrasov/planner/internal/session"
)

// SessionHandler exposes the active-session manager over HTTP. These are
// the request-handling entry points for the mutating operations; errors
// propagate synchronously to the caller here, unlike inside the worker.
type SessionHandler struct {
	svc *session.Service
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(svc *session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.Recent)
		r.Get("/active", h.Active)
		r.Post("/start", h.Start)
		r.Post("/{id}/stop", h.Stop)
		r.Post("/{id}/note", h.AddNote)
		r.Post("/{id}/add-time", h.AddTime)
		r.Post("/{id}/toggle-notifications", h.ToggleNotifications)
	})
}

// sessionResponse is a session plus its derived timer facts and resolved
// tags. The timer is recomputed per request; it is never stored.
type sessionResponse struct {
	*domain.Session
	Timer *session.Timer `json:"timer,omitempty"`
	Tags  []*domain.Tag  `json:"tags,omitempty"`
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, status int, s *domain.Session) {
	resp := sessionResponse{Session: s}
	if s.Active() {
		t := session.TimerFor(s, h.svc.Clock().Now())
		resp.Timer = &t
	}
	if len(s.TagIDs) > 0 {
		tags, err := h.svc.Tags(r.Context(), s.TagIDs)
		if err != nil {
			DomainError(w, err)
			return
		}
		resp.Tags = tags
	}
	JSON(w, status, resp)
}

// Active returns the running session with its timer, or 204 if none.
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Active(r.Context())
	if err != nil {
		DomainError(w, err)
		return
	}
	if s == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respond(w, r, http.StatusOK, s)
}

// Recent lists completed sessions, most recent first.
func (h *SessionHandler) Recent(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.Recent(r.Context(), 20)
	if err != nil {
		DomainError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	JSON(w, http.StatusOK, sessions)
}

// Start begins a new session. Starting while another session is active is
// rejected with 409 rather than silently replacing it.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var input session.StartInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.svc.Start(r.Context(), input)
	if err != nil {
		DomainError(w, err)
		return
	}
	h.respond(w, r, http.StatusCreated, s)
}

// Stop ends a session. The body is an optional review object; absent
// fields leave the session's review data untouched.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var review *domain.SessionReview
	body, err := io.ReadAll(r.Body)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		review = &domain.SessionReview{}
		if err := json.Unmarshal(body, review); err != nil {
			Error(w, http.StatusBadRequest, "invalid review body")
			return
		}
	}

	s, err := h.svc.Stop(r.Context(), id, review)
	if err != nil {
		DomainError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, s)
}

type addNoteRequest struct {
	Note string `json:"note"`
}

// AddNote appends a timestamped note to the active session.
func (h *SessionHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.svc.AddNote(r.Context(), id, req.Note)
	if err != nil {
		DomainError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, s)
}

type addTimeRequest struct {
	Minutes int `json:"minutes"`
}

// AddTime extends the active session's planned duration.
func (h *SessionHandler) AddTime(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.svc.AddTime(r.Context(), id, req.Minutes)
	if err != nil {
		DomainError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, s)
}

// ToggleNotifications flips overtime-reminder suppression for the session.
func (h *SessionHandler) ToggleNotifications(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := h.svc.ToggleNotifications(r.Context(), id)
	if err != nil {
		DomainError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, s)
}
