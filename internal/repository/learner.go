package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eduinstitute/liveclass-server/internal/database"
	"github.com/eduinstitute/liveclass-server/internal/model"
)

// ErrDuplicateEmail is returned by LearnerRepository.Create when the email is taken.
var ErrDuplicateEmail = errors.New("learner email already exists")

const pqUniqueViolation = "23505"

type learnerRepo struct {
	db database.DBTX
}

func NewLearnerRepository(db *sqlx.DB) LearnerRepository {
	return &learnerRepo{db: db}
}

func (r *learnerRepo) FindByID(ctx context.Context, id string) (*model.Learner, error) {
	var learner model.Learner
	err := r.db.GetContext(ctx, &learner, `
		SELECT * FROM learners WHERE id = $1
	`, id)
	return HandleNotFound(&learner, err)
}

func (r *learnerRepo) List(ctx context.Context, limit, offset int) ([]model.Learner, error) {
	var learners []model.Learner
	err := r.db.SelectContext(ctx, &learners, `
		SELECT * FROM learners
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return learners, err
}

func (r *learnerRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM learners`)
	return count, err
}

func (r *learnerRepo) Create(ctx context.Context, params model.CreateLearnerParams) (*model.Learner, error) {
	var learner model.Learner
	err := r.db.GetContext(ctx, &learner, `
		INSERT INTO learners (id, name, email)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.ID, params.Name, params.Email)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &learner, nil
}

func (r *learnerRepo) AddLiveSession(ctx context.Context, id string, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE learners SET
			enrolled_live_sessions = array_append(enrolled_live_sessions, $2::text),
			updated_at = $3
		WHERE id = $1
		AND NOT ($2::text = ANY(enrolled_live_sessions))
	`, id, sessionID, time.Now())
	return err
}

func (r *learnerRepo) RemoveLiveSession(ctx context.Context, id string, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE learners SET
			enrolled_live_sessions = array_remove(enrolled_live_sessions, $2::text),
			updated_at = $3
		WHERE id = $1
	`, id, sessionID, time.Now())
	return err
}

func (r *learnerRepo) RemoveLiveSessionFromAll(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE learners SET
			enrolled_live_sessions = array_remove(enrolled_live_sessions, $1::text),
			updated_at = $2
		WHERE $1::text = ANY(enrolled_live_sessions)
	`, sessionID, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
