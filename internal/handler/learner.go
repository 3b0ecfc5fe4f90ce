package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eduinstitute/liveclass-server/internal/audit"
	"github.com/eduinstitute/liveclass-server/internal/service"
)

type LearnerHandler struct {
	learners  *service.LearnerService
	adminAuth func(http.Handler) http.Handler
}

func NewLearnerHandler(learners *service.LearnerService, adminAuth func(http.Handler) http.Handler) *LearnerHandler {
	return &LearnerHandler{
		learners:  learners,
		adminAuth: adminAuth,
	}
}

func (h *LearnerHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{id}", h.Get)
	r.Get("/{id}/live-sessions", h.LiveSessions)

	r.Group(func(r chi.Router) {
		r.Use(h.adminAuth)
		r.Post("/", h.Create)
		r.Get("/", h.List)
	})

	return r
}

// POST /learners
func (h *LearnerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateLearnerInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	learner, err := h.learners.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLearnerCreate, LearnerID: learner.ID})

	writeJSON(w, http.StatusCreated, learner)
}

// GET /learners?limit=&offset=
func (h *LearnerHandler) List(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)

	page, err := h.learners.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /learners/{id}
func (h *LearnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	learner, err := h.learners.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, learner)
}

// GET /learners/{id}/live-sessions
func (h *LearnerHandler) LiveSessions(w http.ResponseWriter, r *http.Request) {
	views, err := h.learners.LiveSessions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
