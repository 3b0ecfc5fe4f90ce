package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eduinstitute/liveclass-server/internal/model"
)

var liveSessionSort = bson.D{
	{Key: "date", Value: 1},
	{Key: "time", Value: 1},
	{Key: "createdAt", Value: 1},
}

type mongoLiveSessionRepo struct {
	coll *mongo.Collection
}

func NewMongoLiveSessionRepository(coll *mongo.Collection) LiveSessionRepository {
	return &mongoLiveSessionRepo{coll: coll}
}

func (r *mongoLiveSessionRepo) List(ctx context.Context) ([]model.LiveSession, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoLiveSessionRepo) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	return handleNoDocuments(&session, err)
}

// FindByIDForUpdate relies on the transaction snapshot; capacity itself is
// enforced by the filter in AddStudent.
func (r *mongoLiveSessionRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.LiveSession, error) {
	return r.FindByID(ctx, id)
}

func (r *mongoLiveSessionRepo) FindByStudent(ctx context.Context, learnerID string) ([]model.LiveSession, error) {
	return r.find(ctx, bson.M{"enrolledStudents": learnerID})
}

func (r *mongoLiveSessionRepo) Create(ctx context.Context, params model.CreateLiveSessionParams) (*model.LiveSession, error) {
	now := time.Now().UTC()
	session := model.LiveSession{
		ID:               params.ID,
		Title:            params.Title,
		Date:             params.Date,
		Time:             params.Time,
		Link:             params.Link,
		Price:            params.Price,
		Status:           params.Status,
		MaxParticipants:  params.MaxParticipants,
		ImageURL:         params.ImageURL,
		Thumbnail:        params.Thumbnail,
		Instructor:       params.Instructor,
		Description:      params.Description,
		Category:         params.Category,
		EnrolledStudents: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if _, err := r.coll.InsertOne(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *mongoLiveSessionRepo) Update(ctx context.Context, id string, params model.UpdateLiveSessionParams) (*model.LiveSession, error) {
	update := bson.M{"$set": bson.M{
		"title":           params.Title,
		"date":            params.Date,
		"time":            params.Time,
		"link":            params.Link,
		"price":           params.Price,
		"status":          params.Status,
		"maxParticipants": params.MaxParticipants,
		"imageUrl":        params.ImageURL,
		"thumbnail":       params.Thumbnail,
		"instructor":      params.Instructor,
		"description":     params.Description,
		"category":        params.Category,
		"updatedAt":       time.Now().UTC(),
	}}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *mongoLiveSessionRepo) ToggleStatus(ctx context.Context, id string) (*model.LiveSession, error) {
	flip := bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$status", string(model.StoredStatusActive)}}},
		string(model.StoredStatusInactive),
		string(model.StoredStatusActive),
	}}}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: flip},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *mongoLiveSessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoLiveSessionRepo) AddStudent(ctx context.Context, id string, learnerID string) (*model.LiveSession, error) {
	filter := bson.M{
		"_id":              id,
		"enrolledStudents": bson.M{"$ne": learnerID},
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$size": bson.M{"$ifNull": bson.A{"$enrolledStudents", bson.A{}}}},
			"$maxParticipants",
		}},
	}
	update := bson.M{
		"$push": bson.M{"enrolledStudents": learnerID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *mongoLiveSessionRepo) RemoveStudent(ctx context.Context, id string, learnerID string) (*model.LiveSession, error) {
	filter := bson.M{"_id": id, "enrolledStudents": learnerID}
	update := bson.M{
		"$pull": bson.M{"enrolledStudents": learnerID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *mongoLiveSessionRepo) find(ctx context.Context, filter bson.M) ([]model.LiveSession, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(liveSessionSort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []model.LiveSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *mongoLiveSessionRepo) findOneAndUpdate(ctx context.Context, filter any, update any) (*model.LiveSession, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var session model.LiveSession
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	return handleNoDocuments(&session, err)
}

// handleNoDocuments is the Mongo counterpart of HandleNotFound.
func handleNoDocuments[T any](result *T, err error) (*T, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
