package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/eduinstitute/liveclass-server/internal/errors"
	"github.com/eduinstitute/liveclass-server/internal/model"
	"github.com/eduinstitute/liveclass-server/internal/repository"
	"github.com/eduinstitute/liveclass-server/internal/validate"
)

type CreateLearnerInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=320"`
}

type LearnerPage struct {
	Learners []model.Learner `json:"learners"`
	Total    int             `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

type LearnerService struct {
	store repository.Store
	views viewBuilder
}

func NewLearnerService(store repository.Store, loc *time.Location) *LearnerService {
	return &LearnerService{
		store: store,
		views: newViewBuilder(loc),
	}
}

func (s *LearnerService) Create(ctx context.Context, in CreateLearnerInput) (*model.Learner, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	learner, err := s.store.Learners().Create(ctx, model.CreateLearnerParams{
		ID:    uuid.NewString(),
		Name:  in.Name,
		Email: in.Email,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, apperrors.AlreadyExists("Learner with this email")
	}
	if err != nil {
		return nil, fmt.Errorf("create learner: %w", err)
	}

	log.Info().Str("learnerId", learner.ID).Msg("learner created")
	return learner, nil
}

func (s *LearnerService) Get(ctx context.Context, id string) (*model.Learner, error) {
	learner, err := s.store.Learners().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find learner: %w", err)
	}
	if learner == nil {
		return nil, apperrors.NotFound(learnerResource)
	}
	return learner, nil
}

func (s *LearnerService) List(ctx context.Context, limit, offset int) (*LearnerPage, error) {
	learners, err := s.store.Learners().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}

	total, err := s.store.Learners().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count learners: %w", err)
	}

	if learners == nil {
		learners = []model.Learner{}
	}
	return &LearnerPage{
		Learners: learners,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// LiveSessions lists the sessions whose roster holds the learner.
func (s *LearnerService) LiveSessions(ctx context.Context, id string) ([]LiveSessionView, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	sessions, err := s.store.LiveSessions().FindByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find sessions for learner: %w", err)
	}
	return s.views.buildAll(sessions), nil
}
