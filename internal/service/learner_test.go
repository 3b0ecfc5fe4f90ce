package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/eduinstitute/liveclass-server/internal/errors"
	"github.com/eduinstitute/liveclass-server/internal/repository"
)

func TestLearnerService(t *testing.T) {
	ctx := context.Background()

	t.Run("create normalizes email", func(t *testing.T) {
		svc := NewLearnerService(repository.NewMemoryStore(), time.UTC)

		learner, err := svc.Create(ctx, CreateLearnerInput{Name: " Ada ", Email: " Ada@Example.COM "})
		require.NoError(t, err)
		assert.NotEmpty(t, learner.ID)
		assert.Equal(t, "Ada", learner.Name)
		assert.Equal(t, "ada@example.com", learner.Email)
		assert.Empty(t, learner.EnrolledLiveSessions)
	})

	t.Run("duplicate email already exists", func(t *testing.T) {
		svc := NewLearnerService(repository.NewMemoryStore(), time.UTC)

		_, err := svc.Create(ctx, CreateLearnerInput{Name: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, CreateLearnerInput{Name: "Other", Email: "ADA@example.com"})
		requireCode(t, err, apperrors.ErrCodeAlreadyExists)
	})

	t.Run("invalid email is a validation error", func(t *testing.T) {
		svc := NewLearnerService(repository.NewMemoryStore(), time.UTC)

		_, err := svc.Create(ctx, CreateLearnerInput{Name: "Ada", Email: "not-an-email"})
		appErr := requireCode(t, err, apperrors.ErrCodeValidation)
		assert.Contains(t, appErr.Message, "email")
	})

	t.Run("get unknown is not found", func(t *testing.T) {
		svc := NewLearnerService(repository.NewMemoryStore(), time.UTC)

		_, err := svc.Get(ctx, "missing")
		appErr := requireCode(t, err, apperrors.ErrCodeNotFound)
		assert.Equal(t, "Student not found", appErr.Message)
	})

	t.Run("list pages with total", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewLearnerService(store, time.UTC)
		seedLearner(t, store, "l1")
		seedLearner(t, store, "l2")
		seedLearner(t, store, "l3")

		page, err := svc.List(ctx, 2, 0)
		require.NoError(t, err)
		assert.Len(t, page.Learners, 2)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 2, page.Limit)

		page, err = svc.List(ctx, 2, 10)
		require.NoError(t, err)
		assert.NotNil(t, page.Learners)
		assert.Empty(t, page.Learners)
	})

	t.Run("live sessions come from rosters", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewLearnerService(store, time.UTC)
		svc.views.now = fixedClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
		enroll := NewEnrollmentService(store, nil)
		seedSession(t, store, "s1", 5)
		seedSession(t, store, "s2", 5)
		seedLearner(t, store, "l1")
		_, err := enroll.Enroll(ctx, "s2", "l1")
		require.NoError(t, err)

		views, err := svc.LiveSessions(ctx, "l1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "s2", views[0].ID)
		assert.Equal(t, "live", string(views[0].Status))
	})

	t.Run("live sessions of unknown learner is not found", func(t *testing.T) {
		svc := NewLearnerService(repository.NewMemoryStore(), time.UTC)

		_, err := svc.LiveSessions(ctx, "missing")
		requireCode(t, err, apperrors.ErrCodeNotFound)
	})
}
