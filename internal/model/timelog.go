package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Status string

const (
	StatusWorking        Status = "working"
	StatusStopped        Status = "stopped"
	StatusCompleted      Status = "completed"
	StatusBreakfastBreak Status = "breakfast-break"
	StatusLunchBreak     Status = "lunch-break"
	StatusOtherBreak     Status = "other-break"
	StatusNotStarted     Status = "" // no work yet today
)

type BreakType string

const (
	BreakBreakfast BreakType = "breakfast"
	BreakLunch     BreakType = "lunch"
	BreakOther     BreakType = "other"
)

func (t BreakType) Valid() bool {
	switch t {
	case BreakBreakfast, BreakLunch, BreakOther:
		return true
	}
	return false
}

// BreakStatus returns the day status while a break of this type is active,
// e.g. "lunch-break".
func (t BreakType) BreakStatus() Status { return Status(string(t) + "-break") }

// TimeLog is the per-employee-per-day work document. FirstStart is set the
// first time work starts that day and never cleared; ActiveStart is non-nil
// only while a work segment is currently running.
type TimeLog struct {
	ID     bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID string        `bson:"user_id" json:"user_id"`
	Date   string        `bson:"date" json:"date"` // YYYY-MM-DD

	FirstStart  *time.Time `bson:"firstStartTimestamp,omitempty" json:"firstStartTimestamp"`
	ActiveStart *time.Time `bson:"activeStartTimestamp,omitempty" json:"activeStartTimestamp"`
	LastStop    *time.Time `bson:"lastStopTimestamp,omitempty" json:"lastStopTimestamp"`
	End         *time.Time `bson:"endTimestamp,omitempty" json:"endTimestamp"`

	// Completed segments only; the running segment is added at read time.
	WorkMinutes  float64 `bson:"accumulatedWorkMinutes" json:"accumulatedWorkMinutes"`
	BreakMinutes float64 `bson:"accumulatedBreakMinutes" json:"accumulatedBreakMinutes"`

	Paused bool `bson:"paused" json:"paused"`

	LeaveType     string `bson:"leaveType,omitempty" json:"leaveType,omitempty"`
	LeaveTimeSlot string `bson:"leaveTimeSlot,omitempty" json:"leaveTimeSlot,omitempty"`

	Status Status `bson:"status" json:"status"`

	// Version guards the read-modify-write cycle; every replace matches the
	// version it read and increments it.
	Version int64 `bson:"version" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DeriveStatus recomputes the status projection from the fields it depends
// on. The persisted status string is only ever written together with those
// fields; a stored value that disagrees with this function is a bug.
func DeriveStatus(log *TimeLog, activeBreak BreakType) Status {
	switch {
	case log.End != nil:
		return StatusCompleted
	case activeBreak != "":
		return activeBreak.BreakStatus()
	case log.ActiveStart != nil:
		return StatusWorking
	case log.FirstStart != nil:
		return StatusStopped
	default:
		return StatusNotStarted
	}
}

// Running reports whether a work segment is currently open.
func (l *TimeLog) Running() bool { return l.ActiveStart != nil }

// Completed reports whether the day has been finalized.
func (l *TimeLog) Completed() bool { return l.End != nil || l.Status == StatusCompleted }

// OnBreak reports whether the persisted status is one of the break states.
func (l *TimeLog) OnBreak() bool {
	switch l.Status {
	case StatusBreakfastBreak, StatusLunchBreak, StatusOtherBreak:
		return true
	}
	return false
}
