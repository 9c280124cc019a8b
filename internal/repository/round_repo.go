package repository

import (
	"context"

	"gamepicker/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoundRepo archives finalized rounds in MongoDB
type RoundRepo interface {
	Save(ctx context.Context, round *model.Round) error
	ListByRoom(ctx context.Context, roomCode string, limit int64) ([]model.Round, error)
	DeleteByRoom(ctx context.Context, roomCode string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type roundRepo struct {
	collection *mongo.Collection
}

// NewRoundRepo creates a new round repository
func NewRoundRepo(db *mongo.Database) RoundRepo {
	return &roundRepo{
		collection: db.Collection("rounds"),
	}
}

// Save upserts by session id so a retried finalize does not duplicate the round
func (r *roundRepo) Save(ctx context.Context, round *model.Round) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": round.ID}, round, opts)
	return err
}

// ListByRoom returns the newest rounds of a room first
func (r *roundRepo) ListByRoom(ctx context.Context, roomCode string, limit int64) ([]model.Round, error) {
	opts := options.Find().SetSort(bson.D{{Key: "finalizedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, bson.M{"roomCode": roomCode}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rounds := []model.Round{}
	if err := cursor.All(ctx, &rounds); err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *roundRepo) DeleteByRoom(ctx context.Context, roomCode string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"roomCode": roomCode})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *roundRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomCode", Value: 1}, {Key: "finalizedAt", Value: -1}},
	})
	return err
}
