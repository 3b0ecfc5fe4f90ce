package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eduinstitute/liveclass-server/internal/model"
)

type mongoLearnerRepo struct {
	coll *mongo.Collection
}

func NewMongoLearnerRepository(coll *mongo.Collection) LearnerRepository {
	return &mongoLearnerRepo{coll: coll}
}

func (r *mongoLearnerRepo) FindByID(ctx context.Context, id string) (*model.Learner, error) {
	var learner model.Learner
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&learner)
	return handleNoDocuments(&learner, err)
}

func (r *mongoLearnerRepo) List(ctx context.Context, limit, offset int) ([]model.Learner, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var learners []model.Learner
	if err := cursor.All(ctx, &learners); err != nil {
		return nil, err
	}
	return learners, nil
}

func (r *mongoLearnerRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (r *mongoLearnerRepo) Create(ctx context.Context, params model.CreateLearnerParams) (*model.Learner, error) {
	now := time.Now().UTC()
	learner := model.Learner{
		ID:                   params.ID,
		Name:                 params.Name,
		Email:                params.Email,
		EnrolledLiveSessions: []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if _, err := r.coll.InsertOne(ctx, learner); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &learner, nil
}

func (r *mongoLearnerRepo) AddLiveSession(ctx context.Context, id string, sessionID string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"enrolledLiveSessions": sessionID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (r *mongoLearnerRepo) RemoveLiveSession(ctx context.Context, id string, sessionID string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"enrolledLiveSessions": sessionID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	return err
}

func (r *mongoLearnerRepo) RemoveLiveSessionFromAll(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.coll.UpdateMany(ctx, bson.M{"enrolledLiveSessions": sessionID}, bson.M{
		"$pull": bson.M{"enrolledLiveSessions": sessionID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
