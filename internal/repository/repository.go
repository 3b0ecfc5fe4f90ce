package repository

import (
	"context"

	"github.com/eduinstitute/liveclass-server/internal/model"
)

// Find* methods return (nil, nil) when no record matches.

type LiveSessionRepository interface {
	List(ctx context.Context) ([]model.LiveSession, error)
	FindByID(ctx context.Context, id string) (*model.LiveSession, error)
	// FindByIDForUpdate reads a session and, inside a transaction, holds it
	// against concurrent roster changes until commit.
	FindByIDForUpdate(ctx context.Context, id string) (*model.LiveSession, error)
	FindByStudent(ctx context.Context, learnerID string) ([]model.LiveSession, error)
	Create(ctx context.Context, params model.CreateLiveSessionParams) (*model.LiveSession, error)
	Update(ctx context.Context, id string, params model.UpdateLiveSessionParams) (*model.LiveSession, error)
	ToggleStatus(ctx context.Context, id string) (*model.LiveSession, error)
	Delete(ctx context.Context, id string) (bool, error)
	// AddStudent appends learnerID only if it is not already on the roster
	// and the roster is below capacity. Returns nil when the condition fails.
	AddStudent(ctx context.Context, id string, learnerID string) (*model.LiveSession, error)
	// RemoveStudent returns nil when learnerID was not on the roster.
	RemoveStudent(ctx context.Context, id string, learnerID string) (*model.LiveSession, error)
}

type LearnerRepository interface {
	FindByID(ctx context.Context, id string) (*model.Learner, error)
	List(ctx context.Context, limit, offset int) ([]model.Learner, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, params model.CreateLearnerParams) (*model.Learner, error)
	// AddLiveSession is a no-op when sessionID is already listed.
	AddLiveSession(ctx context.Context, id string, sessionID string) error
	RemoveLiveSession(ctx context.Context, id string, sessionID string) error
	RemoveLiveSessionFromAll(ctx context.Context, sessionID string) (int64, error)
}

// Repositories groups the collections that enrollment keeps consistent.
type Repositories interface {
	LiveSessions() LiveSessionRepository
	Learners() LearnerRepository
}

type Store interface {
	Repositories
	// WithTx runs fn against repositories bound to one transaction. If fn
	// returns an error nothing it wrote is kept.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
