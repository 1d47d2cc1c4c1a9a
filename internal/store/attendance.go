package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"timeflow/internal/model"
)

type AttendanceStore struct {
	coll *mongo.Collection
}

func NewAttendanceStore(ctx context.Context, db *MongoDB) (*AttendanceStore, error) {
	coll := db.Collection("attendance")

	if _, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create attendance indexes: %w", err)
	}

	return &AttendanceStore{coll: coll}, nil
}

// GetByUserDate returns the attendance record for (employee, date), or nil.
func (s *AttendanceStore) GetByUserDate(ctx context.Context, userID, date string) (*model.Attendance, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var att model.Attendance
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID, "date": date}).Decode(&att)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &att, nil
}

// UpsertWork writes the work-derived fields without touching the leave or
// marked-present overrides, creating the record on first write.
func (s *AttendanceStore) UpsertWork(ctx context.Context, userID, date string, status model.PresentStatus, workMinutes, breakMinutes float64, start, end *time.Time) error {
	return s.upsert(ctx, userID, date, bson.M{
		"presentStatus": status,
		"workMinutes":   workMinutes,
		"breakMinutes":  breakMinutes,
		"startTime":     start,
		"endTime":       end,
	})
}

// SetMarkedPresent records the manual present override.
func (s *AttendanceStore) SetMarkedPresent(ctx context.Context, userID, date string) error {
	return s.upsert(ctx, userID, date, bson.M{
		"markedPresent": true,
		"presentStatus": model.PresentStatusPresent,
	})
}

// SetLeave records a leave request in pending state.
func (s *AttendanceStore) SetLeave(ctx context.Context, userID, date, leaveType, slot, notes string) error {
	return s.upsert(ctx, userID, date, bson.M{
		"leaveType":     leaveType,
		"leaveTimeSlot": slot,
		"leaveStatus":   model.LeaveStatusPending,
		"notes":         notes,
	})
}

// SetLeaveStatus finalizes a leave request.
func (s *AttendanceStore) SetLeaveStatus(ctx context.Context, userID, date, status string) error {
	return s.upsert(ctx, userID, date, bson.M{"leaveStatus": status})
}

func (s *AttendanceStore) upsert(ctx context.Context, userID, date string, set bson.M) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	set["updated_at"] = nowUTC()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"user_id": userID, "date": date},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": nowUTC()},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}
