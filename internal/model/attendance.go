package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type PresentStatus string

const (
	PresentStatusPresent PresentStatus = "present"
	PresentStatusLate    PresentStatus = "late"
	PresentStatusAbsent  PresentStatus = "absent"
)

const (
	LeaveTypeHalfDay    = "half-day"
	LeaveTypeShortLeave = "short-leave"

	LeaveStatusPending  = "pending"
	LeaveStatusApproved = "approved"
	LeaveStatusRejected = "rejected"
)

const (
	LeaveSlotMorningHalf  = "morning-half"  // 8:30-12:30
	LeaveSlotEveningHalf  = "evening-half"  // 1:30-5:30
	LeaveSlotMorningShort = "morning-short" // 8:30-10:30
	LeaveSlotEveningShort = "evening-short" // 3:30-5:30
)

func ValidLeaveType(t string) bool {
	return t == LeaveTypeHalfDay || t == LeaveTypeShortLeave
}

func ValidLeaveSlot(s string) bool {
	switch s {
	case LeaveSlotMorningHalf, LeaveSlotEveningHalf, LeaveSlotMorningShort, LeaveSlotEveningShort:
		return true
	}
	return false
}

// Attendance is the derived per-employee-per-day verdict record. Work totals
// are refreshed whenever a work segment closes; leave and the manual
// marked-present override live here too.
type Attendance struct {
	ID     bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID string        `bson:"user_id" json:"user_id"`
	Date   string        `bson:"date" json:"date"` // YYYY-MM-DD

	PresentStatus PresentStatus `bson:"presentStatus" json:"presentStatus"`
	MarkedPresent bool          `bson:"markedPresent" json:"markedPresent"`

	WorkMinutes  float64    `bson:"workMinutes" json:"workMinutes"`
	BreakMinutes float64    `bson:"breakMinutes" json:"breakMinutes"`
	StartTime    *time.Time `bson:"startTime,omitempty" json:"startTime"`
	EndTime      *time.Time `bson:"endTime,omitempty" json:"endTime"`

	LeaveType     string `bson:"leaveType,omitempty" json:"leaveType,omitempty"`
	LeaveTimeSlot string `bson:"leaveTimeSlot,omitempty" json:"leaveTimeSlot,omitempty"`
	LeaveStatus   string `bson:"leaveStatus,omitempty" json:"leaveStatus,omitempty"`
	Notes         string `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ApprovedLeave reports whether an approved leave overrides work expectations
// for the day.
func (a *Attendance) ApprovedLeave() bool {
	return a != nil && a.LeaveType != "" && a.LeaveStatus == LeaveStatusApproved
}

// PendingLeave reports whether a leave request is awaiting approval.
func (a *Attendance) PendingLeave() bool {
	return a != nil && a.LeaveType != "" && a.LeaveStatus == LeaveStatusPending
}
