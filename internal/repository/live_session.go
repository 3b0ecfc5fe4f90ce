package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eduinstitute/liveclass-server/internal/database"
	"github.com/eduinstitute/liveclass-server/internal/model"
)

// Dates are bound as text so the server's TimeZone cannot shift the day.
const dateLayout = "2006-01-02"

type liveSessionRepo struct {
	db database.DBTX
}

func NewLiveSessionRepository(db *sqlx.DB) LiveSessionRepository {
	return &liveSessionRepo{db: db}
}

func (r *liveSessionRepo) List(ctx context.Context) ([]model.LiveSession, error) {
	var sessions []model.LiveSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM live_sessions
		ORDER BY session_date ASC, time_range ASC, created_at ASC
	`)
	return sessions, err
}

func (r *liveSessionRepo) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM live_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *liveSessionRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM live_sessions WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&session, err)
}

func (r *liveSessionRepo) FindByStudent(ctx context.Context, learnerID string) ([]model.LiveSession, error) {
	var sessions []model.LiveSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM live_sessions
		WHERE $1::text = ANY(enrolled_students)
		ORDER BY session_date ASC, time_range ASC, created_at ASC
	`, learnerID)
	return sessions, err
}

func (r *liveSessionRepo) Create(ctx context.Context, params model.CreateLiveSessionParams) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO live_sessions (
			id, title, session_date, time_range, link, price, status, max_participants,
			image_url, thumbnail, instructor, description, category
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING *
	`, params.ID, params.Title, params.Date.Format(dateLayout), params.Time, params.Link, params.Price, params.Status,
		params.MaxParticipants, params.ImageURL, params.Thumbnail, params.Instructor,
		params.Description, params.Category)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *liveSessionRepo) Update(ctx context.Context, id string, params model.UpdateLiveSessionParams) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE live_sessions SET
			title = $2,
			session_date = $3,
			time_range = $4,
			link = $5,
			price = $6,
			status = $7,
			max_participants = $8,
			image_url = $9,
			thumbnail = $10,
			instructor = $11,
			description = $12,
			category = $13,
			updated_at = $14
		WHERE id = $1
		RETURNING *
	`, id, params.Title, params.Date.Format(dateLayout), params.Time, params.Link, params.Price, params.Status,
		params.MaxParticipants, params.ImageURL, params.Thumbnail, params.Instructor,
		params.Description, params.Category, time.Now())
	return HandleNotFound(&session, err)
}

func (r *liveSessionRepo) ToggleStatus(ctx context.Context, id string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE live_sessions SET
			status = CASE WHEN status = 'active' THEN 'inactive' ELSE 'active' END,
			updated_at = $2
		WHERE id = $1
		RETURNING *
	`, id, time.Now())
	return HandleNotFound(&session, err)
}

func (r *liveSessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM live_sessions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *liveSessionRepo) AddStudent(ctx context.Context, id string, learnerID string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE live_sessions SET
			enrolled_students = array_append(enrolled_students, $2::text),
			updated_at = $3
		WHERE id = $1
		AND NOT ($2::text = ANY(enrolled_students))
		AND cardinality(enrolled_students) < max_participants
		RETURNING *
	`, id, learnerID, time.Now())
	return HandleNotFound(&session, err)
}

func (r *liveSessionRepo) RemoveStudent(ctx context.Context, id string, learnerID string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE live_sessions SET
			enrolled_students = array_remove(enrolled_students, $2::text),
			updated_at = $3
		WHERE id = $1
		AND $2::text = ANY(enrolled_students)
		RETURNING *
	`, id, learnerID, time.Now())
	return HandleNotFound(&session, err)
}
