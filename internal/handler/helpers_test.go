package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/eduinstitute/liveclass-server/internal/fanout"
	"github.com/eduinstitute/liveclass-server/internal/httputil"
	"github.com/eduinstitute/liveclass-server/internal/model"
	"github.com/eduinstitute/liveclass-server/internal/repository"
	"github.com/eduinstitute/liveclass-server/internal/service"
)

type testServer struct {
	router http.Handler
	store  *repository.MemoryStore
	broker *fanout.Broker
}

func passthrough(next http.Handler) http.Handler { return next }

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repository.NewMemoryStore()
	broker := fanout.NewBroker(nil)
	t.Cleanup(broker.Close)

	sessions := service.NewLiveSessionService(store, time.UTC)
	enrollment := service.NewEnrollmentService(store, broker)
	learners := service.NewLearnerService(store, time.UTC)
	streams := NewStreamHandler(broker, sessions, nil)

	r := chi.NewRouter()
	r.Mount("/live-sessions", NewLiveSessionHandler(sessions, enrollment, streams, passthrough, passthrough).Routes())
	r.Mount("/learners", NewLearnerHandler(learners, passthrough).Routes())
	r.Handle("/health", NewHealthHandler(store))

	return &testServer{router: r, store: store, broker: broker}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seedSession(t *testing.T, id string, max int) {
	t.Helper()
	_, err := s.store.LiveSessions().Create(context.Background(), model.CreateLiveSessionParams{
		ID:              id,
		Title:           "Session " + id,
		Date:            time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
		Time:            "09:00 - 11:00",
		Link:            "https://meet.example.com/" + id,
		Status:          model.StoredStatusActive,
		MaxParticipants: max,
	})
	require.NoError(t, err)
}

func (s *testServer) seedLearner(t *testing.T, id string) {
	t.Helper()
	_, err := s.store.Learners().Create(context.Background(), model.CreateLearnerParams{
		ID:    id,
		Name:  "Learner " + id,
		Email: id + "@example.com",
	})
	require.NoError(t, err)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	return decodeBody[httputil.ErrorResponse](t, rec)
}

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}

func (s *testServer) doRaw(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}
