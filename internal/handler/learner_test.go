package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduinstitute/liveclass-server/internal/model"
	"github.com/eduinstitute/liveclass-server/internal/service"
)

func TestLearnerHandler(t *testing.T) {
	srv := newTestServer(t)

	var id string

	t.Run("create normalizes email", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/learners", map[string]string{
			"name":  "Asha",
			"email": "  Asha@Example.COM ",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		learner := decodeBody[model.Learner](t, rec)
		id = learner.ID
		assert.Equal(t, "asha@example.com", learner.Email)
		assert.Empty(t, learner.EnrolledLiveSessions)
	})

	t.Run("duplicate email is 409", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/learners", map[string]string{
			"name":  "Other",
			"email": "asha@example.com",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid email is 400", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/learners", map[string]string{
			"name":  "Bad",
			"email": "not-an-email",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get by id", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/learners/"+id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Asha", decodeBody[model.Learner](t, rec).Name)

		rec = srv.do(t, http.MethodGet, "/learners/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list is paginated", func(t *testing.T) {
		srv.seedLearner(t, "l2")
		srv.seedLearner(t, "l3")

		rec := srv.do(t, http.MethodGet, "/learners?limit=2&offset=0", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		page := decodeBody[service.LearnerPage](t, rec)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 2, page.Limit)
		assert.Len(t, page.Learners, 2)
	})

	t.Run("live sessions of unknown learner is 404", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/learners/missing/live-sessions", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("live sessions of new learner is an empty array", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/learners/"+id+"/live-sessions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=0", DefaultLimit, 0},
		{"limit=1000", DefaultLimit, 0},
		{"limit=abc&offset=-5", DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/learners?"+tt.query, nil)
			p := ParsePagination(req)
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}
