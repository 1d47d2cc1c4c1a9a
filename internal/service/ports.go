package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"timeflow/internal/model"
)

// TimeLogStore is the durable home of day documents. Implementations must
// make ReplaceVersioned a compare-and-set on the document version so two
// concurrent writers cannot both succeed against the same read.
type TimeLogStore interface {
	GetByUserDate(ctx context.Context, userID, date string) (*model.TimeLog, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*model.TimeLog, error)
	Create(ctx context.Context, log *model.TimeLog) error
	ReplaceVersioned(ctx context.Context, log *model.TimeLog) error
	FindStale(ctx context.Context, before string) ([]*model.TimeLog, error)
	FindStaleForUser(ctx context.Context, userID, before string) ([]*model.TimeLog, error)
	FindActive(ctx context.Context, date string) ([]*model.TimeLog, error)
}

type BreakLogStore interface {
	Create(ctx context.Context, b *model.BreakLog) error
	Update(ctx context.Context, b *model.BreakLog) error
	GetActive(ctx context.Context, userID string) (*model.BreakLog, error)
	GetActiveForLog(ctx context.Context, timeLogID bson.ObjectID) (*model.BreakLog, error)
	ListForLog(ctx context.Context, timeLogID bson.ObjectID) ([]*model.BreakLog, error)
}

type AttendanceStore interface {
	GetByUserDate(ctx context.Context, userID, date string) (*model.Attendance, error)
	UpsertWork(ctx context.Context, userID, date string, status model.PresentStatus, workMinutes, breakMinutes float64, start, end *time.Time) error
	SetMarkedPresent(ctx context.Context, userID, date string) error
	SetLeave(ctx context.Context, userID, date, leaveType, slot, notes string) error
	SetLeaveStatus(ctx context.Context, userID, date, status string) error
}

// IdleSource reports how long an employee's workstation has been idle.
// The production implementation reads systemd-logind over D-Bus.
type IdleSource interface {
	IdleDuration(ctx context.Context, userID string) (time.Duration, error)
}
