package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"timeflow/internal/model"
	"timeflow/internal/service"
)

type TimeLogStore struct {
	coll *mongo.Collection
}

func NewTimeLogStore(ctx context.Context, db *MongoDB) (*TimeLogStore, error) {
	coll := db.Collection("timelogs")

	if _, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create timelog indexes: %w", err)
	}

	return &TimeLogStore{coll: coll}, nil
}

// GetByUserDate returns the day document for (employee, date), or nil if it
// does not exist yet.
func (s *TimeLogStore) GetByUserDate(ctx context.Context, userID, date string) (*model.TimeLog, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var log model.TimeLog
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID, "date": date}).Decode(&log)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find timelog: %w", err)
	}
	return &log, nil
}

func (s *TimeLogStore) GetByID(ctx context.Context, id bson.ObjectID) (*model.TimeLog, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var log model.TimeLog
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&log)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find timelog by id: %w", err)
	}
	return &log, nil
}

// Create inserts a new day document and sets the ID on the struct. A
// concurrent create for the same (employee, date) loses the unique-index
// race and gets ErrConflict, so the caller can re-read and retry.
func (s *TimeLogStore) Create(ctx context.Context, log *model.TimeLog) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	now := nowUTC()
	log.CreatedAt = now
	log.UpdatedAt = now
	if log.Version == 0 {
		log.Version = 1
	}
	res, err := s.coll.InsertOne(ctx, log)
	if mongo.IsDuplicateKeyError(err) {
		return service.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert timelog: %w", err)
	}
	log.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

// ReplaceVersioned writes the document back iff nobody else has written it
// since it was read. The version it matched is incremented on the struct on
// success.
func (s *TimeLogStore) ReplaceVersioned(ctx context.Context, log *model.TimeLog) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	read := log.Version
	log.Version = read + 1
	log.UpdatedAt = nowUTC()

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": log.ID, "version": read}, log)
	if err != nil {
		log.Version = read
		return fmt.Errorf("replace timelog: %w", err)
	}
	if res.MatchedCount == 0 {
		log.Version = read
		return service.ErrConflict
	}
	return nil
}

// FindStale returns documents dated strictly before the given date that are
// still in a non-terminal state.
func (s *TimeLogStore) FindStale(ctx context.Context, before string) ([]*model.TimeLog, error) {
	return s.findAll(ctx, bson.M{
		"date":   bson.M{"$lt": before},
		"status": bson.M{"$ne": model.StatusCompleted},
	})
}

// FindStaleForUser is FindStale scoped to one employee, for the lazy
// reconcile on the interactive path.
func (s *TimeLogStore) FindStaleForUser(ctx context.Context, userID, before string) ([]*model.TimeLog, error) {
	return s.findAll(ctx, bson.M{
		"user_id": userID,
		"date":    bson.M{"$lt": before},
		"status":  bson.M{"$ne": model.StatusCompleted},
	})
}

// FindActive returns the documents for the given date whose employee is
// currently working or on break.
func (s *TimeLogStore) FindActive(ctx context.Context, date string) ([]*model.TimeLog, error) {
	return s.findAll(ctx, bson.M{
		"date": date,
		"status": bson.M{"$in": []model.Status{
			model.StatusWorking,
			model.StatusBreakfastBreak,
			model.StatusLunchBreak,
			model.StatusOtherBreak,
		}},
	})
}

func (s *TimeLogStore) findAll(ctx context.Context, filter bson.M) ([]*model.TimeLog, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find timelogs: %w", err)
	}
	var results []*model.TimeLog
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode timelogs: %w", err)
	}
	return results, nil
}
