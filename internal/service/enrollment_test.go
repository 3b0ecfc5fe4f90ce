package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/eduinstitute/liveclass-server/internal/errors"
	"github.com/eduinstitute/liveclass-server/internal/fanout"
	"github.com/eduinstitute/liveclass-server/internal/repository"
)

func newEnrollmentFixture(t *testing.T) (*EnrollmentService, *repository.MemoryStore, *mockPublisher) {
	t.Helper()
	store := repository.NewMemoryStore()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return NewEnrollmentService(store, pub), store, pub
}

func TestEnrollmentService_Enroll(t *testing.T) {
	ctx := context.Background()

	t.Run("enrolls and links both sides", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 2)
		seedLearner(t, store, "l1")

		result, err := svc.Enroll(ctx, "s1", "l1")
		require.NoError(t, err)
		assert.Equal(t, "Successfully enrolled", result.Message)
		assert.Equal(t, SessionSummary{ID: "s1", Title: "Session s1", EnrolledCount: 1, MaxParticipants: 2}, result.Session)

		session, _ := store.LiveSessions().FindByID(ctx, "s1")
		learner, _ := store.Learners().FindByID(ctx, "l1")
		assert.True(t, session.IsEnrolled("l1"))
		assert.True(t, learner.HasLiveSession("s1"))
	})

	t.Run("capacity is never exceeded", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		const max = 3
		seedSession(t, store, "s1", max)
		for i := 0; i <= max; i++ {
			seedLearner(t, store, fmt.Sprintf("l%d", i))
		}

		for i := 0; i < max; i++ {
			_, err := svc.Enroll(ctx, "s1", fmt.Sprintf("l%d", i))
			require.NoError(t, err)
		}

		_, err := svc.Enroll(ctx, "s1", fmt.Sprintf("l%d", max))
		appErr := requireCode(t, err, apperrors.ErrCodeConflict)
		assert.Equal(t, "Session is full", appErr.Message)

		session, _ := store.LiveSessions().FindByID(ctx, "s1")
		assert.Equal(t, max, session.EnrolledCount())

		late, _ := store.Learners().FindByID(ctx, fmt.Sprintf("l%d", max))
		assert.False(t, late.HasLiveSession("s1"))
	})

	t.Run("concurrent enrolls respect capacity", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)
		for i := 0; i < 20; i++ {
			seedLearner(t, store, fmt.Sprintf("l%d", i))
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := svc.Enroll(ctx, "s1", id); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(fmt.Sprintf("l%d", i))
		}
		wg.Wait()

		session, _ := store.LiveSessions().FindByID(ctx, "s1")
		assert.Equal(t, 5, succeeded)
		assert.Equal(t, 5, session.EnrolledCount())
	})

	t.Run("duplicate enrollment is a conflict", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)
		seedLearner(t, store, "l1")

		_, err := svc.Enroll(ctx, "s1", "l1")
		require.NoError(t, err)

		_, err = svc.Enroll(ctx, "s1", "l1")
		appErr := requireCode(t, err, apperrors.ErrCodeConflict)
		assert.Equal(t, "Already enrolled in this session", appErr.Message)

		session, _ := store.LiveSessions().FindByID(ctx, "s1")
		assert.Equal(t, 1, session.EnrolledCount())
	})

	t.Run("duplicate wins over full", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 1)
		seedLearner(t, store, "l1")

		_, err := svc.Enroll(ctx, "s1", "l1")
		require.NoError(t, err)

		_, err = svc.Enroll(ctx, "s1", "l1")
		appErr := requireCode(t, err, apperrors.ErrCodeConflict)
		assert.Equal(t, "Already enrolled in this session", appErr.Message)
	})

	t.Run("missing session wins over missing learner", func(t *testing.T) {
		svc, _, _ := newEnrollmentFixture(t)

		_, err := svc.Enroll(ctx, "missing", "nobody")
		appErr := requireCode(t, err, apperrors.ErrCodeNotFound)
		assert.Equal(t, "Live session not found", appErr.Message)
	})

	t.Run("missing learner is not found", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)

		_, err := svc.Enroll(ctx, "s1", "nobody")
		appErr := requireCode(t, err, apperrors.ErrCodeNotFound)
		assert.Equal(t, "Student not found", appErr.Message)
	})

	t.Run("blank learner id is rejected", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)

		_, err := svc.Enroll(ctx, "s1", "  ")
		requireCode(t, err, apperrors.ErrCodeMissingRequired)
	})

	t.Run("publishes enrollment update to the session room", func(t *testing.T) {
		svc, store, pub := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 10)
		seedLearner(t, store, "l1")

		_, err := svc.Enroll(ctx, "s1", "l1")
		require.NoError(t, err)

		pub.AssertCalled(t, "Publish", mock.Anything, "session-s1", "enrollment-update", fanout.EnrollmentUpdate{
			SessionID:       "s1",
			EnrolledCount:   1,
			MaxParticipants: 10,
			StudentName:     "Learner l1",
		})
	})

	t.Run("publish failure does not fail enrollment", func(t *testing.T) {
		store := repository.NewMemoryStore()
		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
		svc := NewEnrollmentService(store, pub)
		seedSession(t, store, "s1", 10)
		seedLearner(t, store, "l1")

		result, err := svc.Enroll(ctx, "s1", "l1")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Session.EnrolledCount)
		pub.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("failed enrollment does not publish", func(t *testing.T) {
		svc, store, pub := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 10)

		_, err := svc.Enroll(ctx, "s1", "nobody")
		require.Error(t, err)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nil publisher falls back to no-op", func(t *testing.T) {
		store := repository.NewMemoryStore()
		svc := NewEnrollmentService(store, nil)
		seedSession(t, store, "s1", 10)
		seedLearner(t, store, "l1")

		_, err := svc.Enroll(ctx, "s1", "l1")
		assert.NoError(t, err)
	})
}

func TestEnrollmentService_Unenroll(t *testing.T) {
	ctx := context.Background()

	t.Run("removes both references", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)
		seedLearner(t, store, "l1")
		_, err := svc.Enroll(ctx, "s1", "l1")
		require.NoError(t, err)

		result, err := svc.Unenroll(ctx, "s1", "l1")
		require.NoError(t, err)
		assert.Equal(t, "Successfully unenrolled", result.Message)
		assert.Equal(t, 0, result.Session.EnrolledCount)

		session, _ := store.LiveSessions().FindByID(ctx, "s1")
		learner, _ := store.Learners().FindByID(ctx, "l1")
		assert.False(t, session.IsEnrolled("l1"))
		assert.False(t, learner.HasLiveSession("s1"))
	})

	t.Run("non-member fails closed", func(t *testing.T) {
		svc, store, pub := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)
		seedLearner(t, store, "l1")
		seedLearner(t, store, "l2")
		_, err := svc.Enroll(ctx, "s1", "l2")
		require.NoError(t, err)
		pub.Calls = nil

		_, err = svc.Unenroll(ctx, "s1", "l1")
		appErr := requireCode(t, err, apperrors.ErrCodeConflict)
		assert.Equal(t, "Not enrolled in this session", appErr.Message)

		session, _ := store.LiveSessions().FindByID(ctx, "s1")
		assert.Equal(t, []string{"l2"}, []string(session.EnrolledStudents))
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("second unenroll is a conflict", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)
		seedLearner(t, store, "l1")
		_, _ = svc.Enroll(ctx, "s1", "l1")

		_, err := svc.Unenroll(ctx, "s1", "l1")
		require.NoError(t, err)
		_, err = svc.Unenroll(ctx, "s1", "l1")
		requireCode(t, err, apperrors.ErrCodeConflict)
	})

	t.Run("missing session and learner are not found", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)

		_, err := svc.Unenroll(ctx, "missing", "l1")
		requireCode(t, err, apperrors.ErrCodeNotFound)

		_, err = svc.Unenroll(ctx, "s1", "nobody")
		requireCode(t, err, apperrors.ErrCodeNotFound)
	})

	t.Run("publishes the decreased count", func(t *testing.T) {
		svc, store, pub := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)
		seedLearner(t, store, "l1")
		_, _ = svc.Enroll(ctx, "s1", "l1")

		_, err := svc.Unenroll(ctx, "s1", "l1")
		require.NoError(t, err)

		pub.AssertCalled(t, "Publish", mock.Anything, "session-s1", "enrollment-update", fanout.EnrollmentUpdate{
			SessionID:       "s1",
			EnrolledCount:   0,
			MaxParticipants: 5,
			StudentName:     "Learner l1",
		})
	})
}

func TestEnrollmentService_ReconcileLearners(t *testing.T) {
	ctx := context.Background()

	t.Run("adds missing and removes stale references", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)
		seedSession(t, store, "s2", 5)
		seedLearner(t, store, "l1")

		// Roster says l1 is in s1; l1's list only has a stale s2 and a deleted s9.
		_, err := store.LiveSessions().AddStudent(ctx, "s1", "l1")
		require.NoError(t, err)
		require.NoError(t, store.Learners().AddLiveSession(ctx, "l1", "s2"))
		require.NoError(t, store.Learners().AddLiveSession(ctx, "l1", "s9"))

		result, err := svc.ReconcileLearners(ctx)
		require.NoError(t, err)
		assert.Equal(t, &ReconcileResult{Learners: 1, Added: 1, Removed: 2}, result)

		learner, _ := store.Learners().FindByID(ctx, "l1")
		assert.Equal(t, []string{"s1"}, []string(learner.EnrolledLiveSessions))
	})

	t.Run("consistent data is left alone", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		seedSession(t, store, "s1", 5)
		seedLearner(t, store, "l1")
		seedLearner(t, store, "l2")
		_, err := svc.Enroll(ctx, "s1", "l1")
		require.NoError(t, err)

		result, err := svc.ReconcileLearners(ctx)
		require.NoError(t, err)
		assert.Equal(t, &ReconcileResult{Learners: 2}, result)
	})

	t.Run("walks every page", func(t *testing.T) {
		svc, store, _ := newEnrollmentFixture(t)
		for i := 0; i < reconcilePageSize+5; i++ {
			seedLearner(t, store, fmt.Sprintf("l%03d", i))
		}

		result, err := svc.ReconcileLearners(ctx)
		require.NoError(t, err)
		assert.Equal(t, reconcilePageSize+5, result.Learners)
	})
}
