package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eduinstitute/liveclass-server/internal/mongodb"
)

// MongoStore needs a replica set (or sharded cluster) for WithTx.
type MongoStore struct {
	client   *mongodb.Client
	sessions LiveSessionRepository
	learners LearnerRepository
}

func NewMongoStore(client *mongodb.Client) *MongoStore {
	return &MongoStore{
		client:   client,
		sessions: NewMongoLiveSessionRepository(client.DB.Collection(mongodb.LiveSessionsCollection)),
		learners: NewMongoLearnerRepository(client.DB.Collection(mongodb.LearnersCollection)),
	}
}

func (s *MongoStore) LiveSessions() LiveSessionRepository { return s.sessions }
func (s *MongoStore) Learners() LearnerRepository         { return s.learners }

// WithTx binds the transaction through the context, so the same
// repositories serve both paths. The driver may re-run fn on transient
// transaction errors.
func (s *MongoStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

// EnsureIndexes creates the roster lookup indexes and the unique learner email.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	sessions := s.client.DB.Collection(mongodb.LiveSessionsCollection)
	if _, err := sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "enrolledStudents", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create live session indexes: %w", err)
	}

	learners := s.client.DB.Collection(mongodb.LearnersCollection)
	if _, err := learners.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "enrolledLiveSessions", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create learner indexes: %w", err)
	}

	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
