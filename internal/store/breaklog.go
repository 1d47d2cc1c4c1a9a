package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"timeflow/internal/model"
)

type BreakLogStore struct {
	coll *mongo.Collection
}

func NewBreakLogStore(ctx context.Context, db *MongoDB) (*BreakLogStore, error) {
	coll := db.Collection("breaklogs")

	if _, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timeLogId", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "endTimestamp", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create breaklog indexes: %w", err)
	}

	return &BreakLogStore{coll: coll}, nil
}

// Create inserts a new break record and sets the ID on the struct.
func (s *BreakLogStore) Create(ctx context.Context, b *model.BreakLog) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	res, err := s.coll.InsertOne(ctx, b)
	if err != nil {
		return fmt.Errorf("insert breaklog: %w", err)
	}
	b.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

// Update replaces an existing break record (used once, to close it).
func (s *BreakLogStore) Update(ctx context.Context, b *model.BreakLog) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		return fmt.Errorf("update breaklog: %w", err)
	}
	return nil
}

// GetActive returns the employee's open break, or nil.
func (s *BreakLogStore) GetActive(ctx context.Context, userID string) (*model.BreakLog, error) {
	return s.findOne(ctx, bson.M{"user_id": userID, "endTimestamp": nil})
}

// GetActiveForLog returns the open break referencing a day document, or nil.
func (s *BreakLogStore) GetActiveForLog(ctx context.Context, timeLogID bson.ObjectID) (*model.BreakLog, error) {
	return s.findOne(ctx, bson.M{"timeLogId": timeLogID, "endTimestamp": nil})
}

// ListForLog returns all breaks referencing a day document.
func (s *BreakLogStore) ListForLog(ctx context.Context, timeLogID bson.ObjectID) ([]*model.BreakLog, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	cursor, err := s.coll.Find(ctx, bson.M{"timeLogId": timeLogID})
	if err != nil {
		return nil, fmt.Errorf("find breaklogs: %w", err)
	}
	var results []*model.BreakLog
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode breaklogs: %w", err)
	}
	return results, nil
}

func (s *BreakLogStore) findOne(ctx context.Context, filter bson.M) (*model.BreakLog, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var b model.BreakLog
	err := s.coll.FindOne(ctx, filter).Decode(&b)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find breaklog: %w", err)
	}
	return &b, nil
}
