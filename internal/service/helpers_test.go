package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/eduinstitute/liveclass-server/internal/errors"
	"github.com/eduinstitute/liveclass-server/internal/model"
	"github.com/eduinstitute/liveclass-server/internal/repository"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, room, event string, payload any) error {
	args := m.Called(ctx, room, event, payload)
	return args.Error(0)
}

func ptr[T any](v T) *T { return &v }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func validInput() LiveSessionInput {
	return LiveSessionInput{
		Title: ptr("Intro to Go"),
		Date:  ptr("2026-03-01"),
		Time:  ptr("09:00 - 11:00"),
		Link:  ptr("https://meet.example.com/intro"),
	}
}

func seedSession(t *testing.T, store repository.Store, id string, max int) *model.LiveSession {
	t.Helper()
	session, err := store.LiveSessions().Create(context.Background(), model.CreateLiveSessionParams{
		ID:              id,
		Title:           "Session " + id,
		Date:            time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Time:            "09:00 - 11:00",
		Link:            "https://meet.example.com/" + id,
		Status:          model.StoredStatusActive,
		MaxParticipants: max,
	})
	require.NoError(t, err)
	return session
}

func seedLearner(t *testing.T, store repository.Store, id string) *model.Learner {
	t.Helper()
	learner, err := store.Learners().Create(context.Background(), model.CreateLearnerParams{
		ID:    id,
		Name:  "Learner " + id,
		Email: id + "@example.com",
	})
	require.NoError(t, err)
	return learner
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
	return appErr
}
