package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eduinstitute/liveclass-server/internal/database"
)

type PostgresStore struct {
	db       *database.DB
	sessions LiveSessionRepository
	learners LearnerRepository
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		sessions: NewLiveSessionRepository(db.DB),
		learners: NewLearnerRepository(db.DB),
	}
}

func (s *PostgresStore) LiveSessions() LiveSessionRepository { return s.sessions }
func (s *PostgresStore) Learners() LearnerRepository         { return s.learners }

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &postgresTx{
			sessions: &liveSessionRepo{db: tx},
			learners: &learnerRepo{db: tx},
		})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

type postgresTx struct {
	sessions LiveSessionRepository
	learners LearnerRepository
}

func (t *postgresTx) LiveSessions() LiveSessionRepository { return t.sessions }
func (t *postgresTx) Learners() LearnerRepository         { return t.learners }
