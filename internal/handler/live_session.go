package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eduinstitute/liveclass-server/internal/audit"
	"github.com/eduinstitute/liveclass-server/internal/service"
)

type LiveSessionHandler struct {
	sessions    *service.LiveSessionService
	enrollment  *service.EnrollmentService
	streams     *StreamHandler
	adminAuth   func(http.Handler) http.Handler
	enrollLimit func(http.Handler) http.Handler
}

func NewLiveSessionHandler(
	sessions *service.LiveSessionService,
	enrollment *service.EnrollmentService,
	streams *StreamHandler,
	adminAuth func(http.Handler) http.Handler,
	enrollLimit func(http.Handler) http.Handler,
) *LiveSessionHandler {
	return &LiveSessionHandler{
		sessions:    sessions,
		enrollment:  enrollment,
		streams:     streams,
		adminAuth:   adminAuth,
		enrollLimit: enrollLimit,
	}
}

func (h *LiveSessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(h.enrollLimit)
		r.Post("/{id}/enroll", h.Enroll)
		r.Post("/{id}/unenroll", h.Unenroll)
	})

	if h.streams != nil {
		r.Get("/{id}/events", h.streams.Events)
		r.Get("/{id}/ws", h.streams.WebSocket)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.adminAuth)
		r.Post("/", h.Create)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/toggle/{id}", h.Toggle)
	})

	return r
}

// GET /live-sessions
func (h *LiveSessionHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.sessions.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// GET /live-sessions/{id}
func (h *LiveSessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /live-sessions
func (h *LiveSessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.LiveSessionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.sessions.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventLiveSessionCreate,
		SessionID: view.ID,
		Details:   map[string]interface{}{"title": view.Title},
	})

	writeJSON(w, http.StatusCreated, view)
}

// PATCH /live-sessions/{id}
func (h *LiveSessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.LiveSessionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	view, err := h.sessions.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLiveSessionUpdate, SessionID: id})

	writeJSON(w, http.StatusOK, view)
}

// DELETE /live-sessions/{id}
func (h *LiveSessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLiveSessionDelete, SessionID: id})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Live session deleted"})
}

// PATCH /live-sessions/toggle/{id}
func (h *LiveSessionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.sessions.ToggleStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventLiveSessionToggle,
		SessionID: id,
		Details:   map[string]interface{}{"status": string(view.StoredStatus)},
	})

	writeJSON(w, http.StatusOK, view)
}

type enrollmentRequest struct {
	StudentID string `json:"studentId"`
}

// POST /live-sessions/{id}/enroll
func (h *LiveSessionHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.enrollment.Enroll(r.Context(), id, req.StudentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventEnroll,
		SessionID: id,
		LearnerID: req.StudentID,
		Details:   map[string]interface{}{"enrolledCount": result.Session.EnrolledCount},
	})

	writeJSON(w, http.StatusOK, result)
}

// POST /live-sessions/{id}/unenroll
func (h *LiveSessionHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	var req enrollmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.enrollment.Unenroll(r.Context(), id, req.StudentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventUnenroll,
		SessionID: id,
		LearnerID: req.StudentID,
		Details:   map[string]interface{}{"enrolledCount": result.Session.EnrolledCount},
	})

	writeJSON(w, http.StatusOK, result)
}
