package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// BreakLog is one break period. Created on break start, closed exactly once
// on break stop, never mutated afterwards. At most one BreakLog per TimeLog
// may have a nil End (the active break).
type BreakLog struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string        `bson:"user_id" json:"user_id"`
	TimeLogID bson.ObjectID `bson:"timeLogId" json:"timeLogId"`
	Type      BreakType     `bson:"type" json:"type"`
	Start     time.Time     `bson:"startTimestamp" json:"startTimestamp"`
	End       *time.Time    `bson:"endTimestamp,omitempty" json:"endTimestamp"`
	Minutes   float64       `bson:"minutes" json:"minutes"` // computed on close
}

// Active reports whether the break is still open.
func (b *BreakLog) Active() bool { return b.End == nil }
