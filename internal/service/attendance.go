package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"timeflow/internal/clock"
	"timeflow/internal/config"
	"timeflow/internal/model"
)

// Verdict is the classifier output for one employee-day.
type Verdict struct {
	Date          string              `json:"date"`
	PresentStatus model.PresentStatus `json:"presentStatus"`
	MarkedPresent bool                `json:"markedPresent"`
	WorkMinutes   float64             `json:"workMinutes"`
	BreakMinutes  float64             `json:"breakMinutes"`
	StartTime     *time.Time          `json:"startTime,omitempty"`
	EndTime       *time.Time          `json:"endTime,omitempty"`
	LeaveType     string              `json:"leaveType,omitempty"`
	LeaveTimeSlot string              `json:"leaveTimeSlot,omitempty"`
	LeaveStatus   string              `json:"leaveStatus,omitempty"`
	IsComplete    bool                `json:"isComplete"`
	Message       string              `json:"message"`
}

// AttendanceService derives present/late/absent verdicts and owns the
// marked-present and leave overrides.
type AttendanceService struct {
	att    AttendanceStore
	logs   TimeLogStore
	clock  clock.Clock
	policy *config.Policy
}

func NewAttendanceService(att AttendanceStore, logs TimeLogStore, clk clock.Clock, pol *config.Policy) *AttendanceService {
	return &AttendanceService{att: att, logs: logs, clock: clk, policy: pol}
}

// Classify is a pure function of its inputs: same (day document, attendance
// record, policy, timezone) always yields the same verdict. Precedence:
// approved leave, then pending leave, then the manual marked-present
// override, then the work-hours bands. Lateness is judged on the first start
// of the day only, never on a later resume.
func Classify(tl *model.TimeLog, att *model.Attendance, pol *config.Policy, loc *time.Location) Verdict {
	v := Verdict{}
	if att != nil {
		v.Date = att.Date
		v.MarkedPresent = att.MarkedPresent
	}
	if tl != nil {
		v.Date = tl.Date
	}

	if att.ApprovedLeave() {
		v.PresentStatus = att.PresentStatus
		v.LeaveType = att.LeaveType
		v.LeaveTimeSlot = att.LeaveTimeSlot
		v.LeaveStatus = att.LeaveStatus
		v.Message = att.LeaveType + " approved"
		return v
	}
	if att.PendingLeave() {
		v.PresentStatus = att.PresentStatus
		v.LeaveType = att.LeaveType
		v.LeaveTimeSlot = att.LeaveTimeSlot
		v.LeaveStatus = att.LeaveStatus
		v.Message = att.LeaveType + " pending approval"
		return v
	}
	if att != nil && att.MarkedPresent {
		v.PresentStatus = model.PresentStatusPresent
		v.Message = "Marked as present"
		return v
	}

	if tl == nil || tl.FirstStart == nil {
		v.PresentStatus = model.PresentStatusAbsent
		v.Message = "No work log for today"
		return v
	}

	v.WorkMinutes = math.Round(tl.WorkMinutes)
	v.BreakMinutes = math.Round(tl.BreakMinutes)
	v.StartTime = tl.FirstStart
	v.EndTime = tl.End
	v.IsComplete = tl.End != nil
	v.PresentStatus = classifyHours(tl, pol, loc)
	return v
}

func classifyHours(tl *model.TimeLog, pol *config.Policy, loc *time.Location) model.PresentStatus {
	workHours := tl.WorkMinutes / 60
	isLate := pol.Workday.IsLate(tl.FirstStart.In(loc))

	if workHours < pol.Workday.HalfDayHours {
		return model.PresentStatusAbsent
	}
	if isLate {
		return model.PresentStatusLate
	}
	return model.PresentStatusPresent
}

// Today returns the verdict for (employee, today).
func (s *AttendanceService) Today(ctx context.Context, userID string) (Verdict, error) {
	date := s.clock.Today()

	att, err := s.att.GetByUserDate(ctx, userID, date)
	if err != nil {
		return Verdict{}, fmt.Errorf("get attendance: %w", err)
	}
	tl, err := s.logs.GetByUserDate(ctx, userID, date)
	if err != nil {
		return Verdict{}, fmt.Errorf("get timelog: %w", err)
	}

	v := Classify(tl, att, s.policy, s.clock.Now().Location())
	if v.Date == "" {
		v.Date = date
	}
	return v, nil
}

// RefreshFromLog re-derives and persists the attendance record after a work
// segment closes (or after reconciliation force-closes a day).
func (s *AttendanceService) RefreshFromLog(ctx context.Context, tl *model.TimeLog) error {
	status := model.PresentStatusAbsent
	if tl.FirstStart != nil {
		status = classifyHours(tl, s.policy, s.clock.Now().Location())
	}
	return s.att.UpsertWork(ctx, tl.UserID, tl.Date, status, tl.WorkMinutes, tl.BreakMinutes, tl.FirstStart, tl.End)
}

// MarkPresent records the manual present override for today.
func (s *AttendanceService) MarkPresent(ctx context.Context, userID string) error {
	return s.att.SetMarkedPresent(ctx, userID, s.clock.Today())
}

// RequestLeave files a pending half-day or short-leave request for today.
func (s *AttendanceService) RequestLeave(ctx context.Context, userID, leaveType, slot, notes string) error {
	if !model.ValidLeaveType(leaveType) || !model.ValidLeaveSlot(slot) {
		return ErrInvalidLeave
	}
	return s.att.SetLeave(ctx, userID, s.clock.Today(), leaveType, slot, notes)
}

// ResolveLeave finalizes a pending leave request for (employee, date).
func (s *AttendanceService) ResolveLeave(ctx context.Context, userID, date string, approve bool) error {
	att, err := s.att.GetByUserDate(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("get attendance: %w", err)
	}
	if !att.PendingLeave() {
		return ErrLeaveNotPending
	}
	status := model.LeaveStatusRejected
	if approve {
		status = model.LeaveStatusApproved
	}
	return s.att.SetLeaveStatus(ctx, userID, date, status)
}
