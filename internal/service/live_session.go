package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eduinstitute/liveclass-server/internal/config"
	apperrors "github.com/eduinstitute/liveclass-server/internal/errors"
	"github.com/eduinstitute/liveclass-server/internal/model"
	"github.com/eduinstitute/liveclass-server/internal/repository"
	"github.com/eduinstitute/liveclass-server/internal/validate"
)

const liveSessionResource = "Live session"

// LiveSessionInput is the request body for create and update. On update
// only the fields present are applied.
type LiveSessionInput struct {
	Title           *string             `json:"title"`
	Date            *string             `json:"date"`
	Time            *string             `json:"time"`
	Link            *string             `json:"link"`
	Price           *float64            `json:"price"`
	Status          *model.StoredStatus `json:"status"`
	MaxParticipants *int                `json:"maxParticipants"`
	ImageURL        *string             `json:"imageUrl"`
	Thumbnail       *string             `json:"thumbnail"`
	Instructor      *string             `json:"instructor"`
	Description     *string             `json:"description"`
	Category        *string             `json:"category"`
}

// liveSessionFields is the complete record checked before every write.
type liveSessionFields struct {
	Title           string             `json:"title" validate:"required,max=200"`
	Date            string             `json:"date" validate:"required,isodate"`
	Time            string             `json:"time" validate:"required,timerange"`
	Link            string             `json:"link" validate:"required,url"`
	Price           float64            `json:"price" validate:"gte=0"`
	Status          model.StoredStatus `json:"status" validate:"oneof=active inactive"`
	MaxParticipants int                `json:"maxParticipants" validate:"gte=1"`
	ImageURL        string             `json:"imageUrl" validate:"max=2048"`
	Thumbnail       string             `json:"thumbnail" validate:"max=2048"`
	Instructor      string             `json:"instructor" validate:"max=200"`
	Description     string             `json:"description" validate:"max=5000"`
	Category        string             `json:"category" validate:"max=100"`
}

func defaultFields() liveSessionFields {
	return liveSessionFields{
		Status:          model.StoredStatusActive,
		Price:           0,
		MaxParticipants: config.DefaultMaxParticipants,
	}
}

func fieldsOf(s *model.LiveSession) liveSessionFields {
	return liveSessionFields{
		Title:           s.Title,
		Date:            s.Date.Format(validate.DateLayout),
		Time:            s.Time,
		Link:            s.Link,
		Price:           s.Price,
		Status:          s.Status,
		MaxParticipants: s.MaxParticipants,
		ImageURL:        s.ImageURL,
		Thumbnail:       s.Thumbnail,
		Instructor:      s.Instructor,
		Description:     s.Description,
		Category:        s.Category,
	}
}

func (f *liveSessionFields) apply(in LiveSessionInput) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&f.Title, in.Title)
	setString(&f.Date, in.Date)
	setString(&f.Time, in.Time)
	setString(&f.Link, in.Link)
	setString(&f.ImageURL, in.ImageURL)
	setString(&f.Thumbnail, in.Thumbnail)
	setString(&f.Instructor, in.Instructor)
	setString(&f.Description, in.Description)
	setString(&f.Category, in.Category)

	if in.Price != nil {
		f.Price = *in.Price
	}
	if in.Status != nil {
		f.Status = *in.Status
	}
	if in.MaxParticipants != nil {
		f.MaxParticipants = *in.MaxParticipants
	}
}

func (f liveSessionFields) params() (model.UpdateLiveSessionParams, error) {
	date, err := validate.ParseDate(f.Date)
	if err != nil {
		return model.UpdateLiveSessionParams{}, apperrors.InvalidInput("date", "expected YYYY-MM-DD")
	}
	return model.UpdateLiveSessionParams{
		Title:           f.Title,
		Date:            date,
		Time:            f.Time,
		Link:            f.Link,
		Price:           f.Price,
		Status:          f.Status,
		MaxParticipants: f.MaxParticipants,
		ImageURL:        f.ImageURL,
		Thumbnail:       f.Thumbnail,
		Instructor:      f.Instructor,
		Description:     f.Description,
		Category:        f.Category,
	}, nil
}

type LiveSessionService struct {
	store repository.Store
	views viewBuilder
}

func NewLiveSessionService(store repository.Store, loc *time.Location) *LiveSessionService {
	return &LiveSessionService{
		store: store,
		views: newViewBuilder(loc),
	}
}

func (s *LiveSessionService) Create(ctx context.Context, in LiveSessionInput) (*LiveSessionView, error) {
	fields := defaultFields()
	fields.apply(in)

	if err := validate.Struct(fields); err != nil {
		return nil, err
	}

	p, err := fields.params()
	if err != nil {
		return nil, err
	}

	session, err := s.store.LiveSessions().Create(ctx, model.CreateLiveSessionParams{
		ID:              uuid.NewString(),
		Title:           p.Title,
		Date:            p.Date,
		Time:            p.Time,
		Link:            p.Link,
		Price:           p.Price,
		Status:          p.Status,
		MaxParticipants: p.MaxParticipants,
		ImageURL:        p.ImageURL,
		Thumbnail:       p.Thumbnail,
		Instructor:      p.Instructor,
		Description:     p.Description,
		Category:        p.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("create live session: %w", err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("title", session.Title).
		Msg("live session created")

	view := s.views.build(session)
	return &view, nil
}

func (s *LiveSessionService) List(ctx context.Context) ([]LiveSessionView, error) {
	sessions, err := s.store.LiveSessions().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live sessions: %w", err)
	}
	return s.views.buildAll(sessions), nil
}

func (s *LiveSessionService) Get(ctx context.Context, id string) (*LiveSessionView, error) {
	session, err := s.store.LiveSessions().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find live session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound(liveSessionResource)
	}

	view := s.views.build(session)
	return &view, nil
}

// Update merges in over the stored record and re-validates the result.
// Capacity may not drop below the current roster.
func (s *LiveSessionService) Update(ctx context.Context, id string, in LiveSessionInput) (*LiveSessionView, error) {
	var updated *model.LiveSession

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		existing, err := tx.LiveSessions().FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("find live session: %w", err)
		}
		if existing == nil {
			return apperrors.NotFound(liveSessionResource)
		}

		fields := fieldsOf(existing)
		fields.apply(in)

		if err := validate.Struct(fields); err != nil {
			return err
		}
		if fields.MaxParticipants < existing.EnrolledCount() {
			return apperrors.ValidationError(fmt.Sprintf(
				"maxParticipants cannot be lower than the %d learners already enrolled",
				existing.EnrolledCount(),
			))
		}

		p, err := fields.params()
		if err != nil {
			return err
		}

		updated, err = tx.LiveSessions().Update(ctx, id, p)
		if err != nil {
			return fmt.Errorf("update live session: %w", err)
		}
		if updated == nil {
			return apperrors.NotFound(liveSessionResource)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("sessionId", id).Msg("live session updated")

	view := s.views.build(updated)
	return &view, nil
}

// Delete removes the session and strips it from every learner's list.
func (s *LiveSessionService) Delete(ctx context.Context, id string) error {
	var detached int64

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		deleted, err := tx.LiveSessions().Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete live session: %w", err)
		}
		if !deleted {
			return apperrors.NotFound(liveSessionResource)
		}

		detached, err = tx.Learners().RemoveLiveSessionFromAll(ctx, id)
		if err != nil {
			return fmt.Errorf("detach learners: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("sessionId", id).
		Int64("learnersDetached", detached).
		Msg("live session deleted")

	return nil
}

// ToggleStatus flips the stored status between active and inactive.
func (s *LiveSessionService) ToggleStatus(ctx context.Context, id string) (*LiveSessionView, error) {
	session, err := s.store.LiveSessions().ToggleStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("toggle live session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound(liveSessionResource)
	}

	log.Info().
		Str("sessionId", id).
		Str("status", string(session.Status)).
		Msg("live session status toggled")

	view := s.views.build(session)
	return &view, nil
}
