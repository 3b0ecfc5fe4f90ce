package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/eduinstitute/liveclass-server/internal/errors"
	"github.com/eduinstitute/liveclass-server/internal/fanout"
	"github.com/eduinstitute/liveclass-server/internal/model"
	"github.com/eduinstitute/liveclass-server/internal/repository"
)

const (
	learnerResource = "Student"

	msgAlreadyEnrolled = "Already enrolled in this session"
	msgSessionFull     = "Session is full"
	msgNotEnrolled     = "Not enrolled in this session"

	reconcilePageSize = 100
)

type EnrollmentResult struct {
	Message string         `json:"message"`
	Session SessionSummary `json:"session"`
}

type ReconcileResult struct {
	Learners int `json:"learners"`
	Added    int `json:"added"`
	Removed  int `json:"removed"`
}

// EnrollmentService keeps a session's roster and the learner's session
// list in step, one transaction per change.
type EnrollmentService struct {
	store     repository.Store
	publisher fanout.Publisher
}

func NewEnrollmentService(store repository.Store, publisher fanout.Publisher) *EnrollmentService {
	if publisher == nil {
		publisher = fanout.NopPublisher{}
	}
	return &EnrollmentService{
		store:     store,
		publisher: publisher,
	}
}

// Enroll checks, in order: session exists, learner exists, learner not on
// the roster, roster below capacity. The first failure is returned.
func (s *EnrollmentService) Enroll(ctx context.Context, sessionID, learnerID string) (*EnrollmentResult, error) {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return nil, apperrors.MissingRequired("studentId")
	}

	var (
		session *model.LiveSession
		learner *model.Learner
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		session, learner, err = loadPair(ctx, tx, sessionID, learnerID)
		if err != nil {
			return err
		}

		if session.IsEnrolled(learnerID) {
			return apperrors.Conflict(msgAlreadyEnrolled)
		}
		if session.IsFull() {
			return apperrors.Conflict(msgSessionFull)
		}

		session, err = tx.LiveSessions().AddStudent(ctx, sessionID, learnerID)
		if err != nil {
			return fmt.Errorf("add student: %w", err)
		}
		if session == nil {
			// Lost a race for the last seat.
			return apperrors.Conflict(msgSessionFull)
		}

		if err := tx.Learners().AddLiveSession(ctx, learnerID, sessionID); err != nil {
			return fmt.Errorf("add live session to learner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("learnerId", learnerID).
		Int("enrolledCount", session.EnrolledCount()).
		Msg("learner enrolled")

	s.notify(ctx, session, learner)

	return &EnrollmentResult{
		Message: "Successfully enrolled",
		Session: summarize(session),
	}, nil
}

// Unenroll checks that the session and learner exist and that the learner
// is on the roster.
func (s *EnrollmentService) Unenroll(ctx context.Context, sessionID, learnerID string) (*EnrollmentResult, error) {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return nil, apperrors.MissingRequired("studentId")
	}

	var (
		session *model.LiveSession
		learner *model.Learner
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		session, learner, err = loadPair(ctx, tx, sessionID, learnerID)
		if err != nil {
			return err
		}

		if !session.IsEnrolled(learnerID) {
			return apperrors.Conflict(msgNotEnrolled)
		}

		session, err = tx.LiveSessions().RemoveStudent(ctx, sessionID, learnerID)
		if err != nil {
			return fmt.Errorf("remove student: %w", err)
		}
		if session == nil {
			return apperrors.Conflict(msgNotEnrolled)
		}

		if err := tx.Learners().RemoveLiveSession(ctx, learnerID, sessionID); err != nil {
			return fmt.Errorf("remove live session from learner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("learnerId", learnerID).
		Int("enrolledCount", session.EnrolledCount()).
		Msg("learner unenrolled")

	s.notify(ctx, session, learner)

	return &EnrollmentResult{
		Message: "Successfully unenrolled",
		Session: summarize(session),
	}, nil
}

// loadPair locks the session row and loads the learner.
func loadPair(ctx context.Context, tx repository.Repositories, sessionID, learnerID string) (*model.LiveSession, *model.Learner, error) {
	session, err := tx.LiveSessions().FindByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("find live session: %w", err)
	}
	if session == nil {
		return nil, nil, apperrors.NotFound(liveSessionResource)
	}

	learner, err := tx.Learners().FindByID(ctx, learnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("find learner: %w", err)
	}
	if learner == nil {
		return nil, nil, apperrors.NotFound(learnerResource)
	}

	return session, learner, nil
}

// notify runs after commit. Failures are logged only.
func (s *EnrollmentService) notify(ctx context.Context, session *model.LiveSession, learner *model.Learner) {
	payload := fanout.EnrollmentUpdate{
		SessionID:       session.ID,
		EnrolledCount:   session.EnrolledCount(),
		MaxParticipants: session.MaxParticipants,
		StudentName:     learner.Name,
	}

	if err := s.publisher.Publish(ctx, fanout.SessionRoom(session.ID), fanout.EventEnrollmentUpdate, payload); err != nil {
		log.Warn().
			Err(err).
			Str("sessionId", session.ID).
			Msg("failed to publish enrollment update")
	}
}

// ReconcileLearners repairs learner session lists that disagree with the
// session rosters. Rosters are authoritative. Each repair re-reads the
// session under its row lock so it cannot undo a concurrent enrollment.
func (s *EnrollmentService) ReconcileLearners(ctx context.Context) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	for offset := 0; ; offset += reconcilePageSize {
		learners, err := s.store.Learners().List(ctx, reconcilePageSize, offset)
		if err != nil {
			return result, fmt.Errorf("list learners: %w", err)
		}

		for i := range learners {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if err := s.reconcileLearner(ctx, &learners[i], result); err != nil {
				return result, err
			}
			result.Learners++
		}

		if len(learners) < reconcilePageSize {
			return result, nil
		}
	}
}

func (s *EnrollmentService) reconcileLearner(ctx context.Context, learner *model.Learner, result *ReconcileResult) error {
	sessions, err := s.store.LiveSessions().FindByStudent(ctx, learner.ID)
	if err != nil {
		return fmt.Errorf("find sessions for learner %s: %w", learner.ID, err)
	}

	onRoster := make([]string, 0, len(sessions))
	for _, session := range sessions {
		onRoster = append(onRoster, session.ID)
	}

	var missing, extra []string
	for _, id := range onRoster {
		if !learner.HasLiveSession(id) {
			missing = append(missing, id)
		}
	}
	for _, id := range learner.EnrolledLiveSessions {
		if !slices.Contains(onRoster, id) {
			extra = append(extra, id)
		}
	}

	for _, sessionID := range missing {
		if err := s.repair(ctx, learner.ID, sessionID, true, result); err != nil {
			return err
		}
	}
	for _, sessionID := range extra {
		if err := s.repair(ctx, learner.ID, sessionID, false, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *EnrollmentService) repair(ctx context.Context, learnerID, sessionID string, add bool, result *ReconcileResult) error {
	changed := false

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		changed = false

		session, err := tx.LiveSessions().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("find live session: %w", err)
		}
		enrolled := session != nil && session.IsEnrolled(learnerID)

		switch {
		case add && enrolled:
			if err := tx.Learners().AddLiveSession(ctx, learnerID, sessionID); err != nil {
				return fmt.Errorf("add live session to learner: %w", err)
			}
			changed = true
		case !add && !enrolled:
			if err := tx.Learners().RemoveLiveSession(ctx, learnerID, sessionID); err != nil {
				return fmt.Errorf("remove live session from learner: %w", err)
			}
			changed = true
		}
		return nil
	})
	if err != nil || !changed {
		return err
	}

	if add {
		result.Added++
	} else {
		result.Removed++
	}

	log.Info().
		Str("learnerId", learnerID).
		Str("sessionId", sessionID).
		Bool("added", add).
		Msg("learner session list repaired")
	return nil
}
