package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeflow/internal/config"
	"timeflow/internal/model"
)

func classifierLog(startHour, startMin int, workMinutes float64) *model.TimeLog {
	start := localTime(2026, time.March, 2, startHour, startMin)
	return &model.TimeLog{
		UserID:      "alice",
		Date:        "2026-03-02",
		FirstStart:  &start,
		WorkMinutes: workMinutes,
		Status:      model.StatusStopped,
	}
}

func TestClassifyBands(t *testing.T) {
	pol := config.DefaultPolicy()

	tests := []struct {
		name string
		tl   *model.TimeLog
		att  *model.Attendance
		want model.PresentStatus
	}{
		{
			name: "full day on time",
			tl:   classifierLog(9, 0, 9*60),
			want: model.PresentStatusPresent,
		},
		{
			name: "full day late start",
			tl:   classifierLog(9, 30, 9*60),
			want: model.PresentStatusLate,
		},
		{
			name: "half day on time",
			tl:   classifierLog(9, 0, 8*60),
			want: model.PresentStatusPresent,
		},
		{
			name: "half day late start",
			tl:   classifierLog(9, 30, 8*60),
			want: model.PresentStatusLate,
		},
		{
			name: "on the cutoff is not late",
			tl:   classifierLog(9, 15, 9*60),
			want: model.PresentStatusPresent,
		},
		{
			name: "under half day",
			tl:   classifierLog(9, 0, 4*60),
			want: model.PresentStatusAbsent,
		},
		{
			name: "exactly half day",
			tl:   classifierLog(9, 0, 4.5*60),
			want: model.PresentStatusPresent,
		},
		{
			name: "no log",
			tl:   nil,
			want: model.PresentStatusAbsent,
		},
		{
			name: "never started",
			tl:   &model.TimeLog{UserID: "alice", Date: "2026-03-02"},
			want: model.PresentStatusAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(tt.tl, tt.att, pol, time.Local)
			assert.Equal(t, tt.want, v.PresentStatus)
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	pol := config.DefaultPolicy()
	tl := classifierLog(9, 30, 2*60) // would classify absent on its own

	t.Run("approved leave wins", func(t *testing.T) {
		att := &model.Attendance{
			UserID:        "alice",
			Date:          "2026-03-02",
			LeaveType:     model.LeaveTypeHalfDay,
			LeaveTimeSlot: model.LeaveSlotMorningHalf,
			LeaveStatus:   model.LeaveStatusApproved,
			MarkedPresent: true,
		}
		v := Classify(tl, att, pol, time.Local)
		assert.Equal(t, model.LeaveTypeHalfDay, v.LeaveType)
		assert.Equal(t, model.LeaveStatusApproved, v.LeaveStatus)
		assert.Zero(t, v.WorkMinutes, "leave overrides any work totals")
	})

	t.Run("pending leave before marked present", func(t *testing.T) {
		att := &model.Attendance{
			UserID:        "alice",
			Date:          "2026-03-02",
			LeaveType:     model.LeaveTypeShortLeave,
			LeaveTimeSlot: model.LeaveSlotEveningShort,
			LeaveStatus:   model.LeaveStatusPending,
			MarkedPresent: true,
		}
		v := Classify(tl, att, pol, time.Local)
		assert.Equal(t, model.LeaveStatusPending, v.LeaveStatus)
	})

	t.Run("rejected leave falls through to hours", func(t *testing.T) {
		att := &model.Attendance{
			UserID:      "alice",
			Date:        "2026-03-02",
			LeaveType:   model.LeaveTypeHalfDay,
			LeaveStatus: model.LeaveStatusRejected,
		}
		v := Classify(tl, att, pol, time.Local)
		assert.Equal(t, model.PresentStatusAbsent, v.PresentStatus)
	})

	t.Run("marked present overrides hours", func(t *testing.T) {
		att := &model.Attendance{UserID: "alice", Date: "2026-03-02", MarkedPresent: true}
		v := Classify(tl, att, pol, time.Local)
		assert.Equal(t, model.PresentStatusPresent, v.PresentStatus)
	})
}

func TestClassifyPure(t *testing.T) {
	pol := config.DefaultPolicy()
	tl := classifierLog(9, 5, 7*60)
	att := &model.Attendance{UserID: "alice", Date: "2026-03-02"}

	first := Classify(tl, att, pol, time.Local)
	second := Classify(tl, att, pol, time.Local)
	assert.Equal(t, first, second)
}

func TestMarkPresent(t *testing.T) {
	f := newFixture(localTime(2026, time.March, 2, 10, 0))
	ctx := context.Background()

	require.NoError(t, f.att.MarkPresent(ctx, "alice"))

	v, err := f.att.Today(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.PresentStatusPresent, v.PresentStatus)
	assert.True(t, v.MarkedPresent)
}

func TestLeaveLifecycle(t *testing.T) {
	f := newFixture(localTime(2026, time.March, 2, 10, 0))
	ctx := context.Background()

	err := f.att.RequestLeave(ctx, "alice", model.LeaveTypeHalfDay, model.LeaveSlotMorningHalf, "dentist")
	require.NoError(t, err)

	v, err := f.att.Today(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.LeaveStatusPending, v.LeaveStatus)

	require.NoError(t, f.att.ResolveLeave(ctx, "alice", "2026-03-02", true))
	v, err = f.att.Today(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.LeaveStatusApproved, v.LeaveStatus)
	assert.Equal(t, model.LeaveSlotMorningHalf, v.LeaveTimeSlot)

	// Already resolved; approving again is not allowed.
	err = f.att.ResolveLeave(ctx, "alice", "2026-03-02", true)
	assert.ErrorIs(t, err, ErrLeaveNotPending)
}

func TestRejectLeave(t *testing.T) {
	f := newFixture(localTime(2026, time.March, 2, 10, 0))
	ctx := context.Background()

	require.NoError(t, f.att.RequestLeave(ctx, "alice", model.LeaveTypeShortLeave, model.LeaveSlotEveningShort, ""))
	require.NoError(t, f.att.ResolveLeave(ctx, "alice", "2026-03-02", false))

	att, err := f.atts.GetByUserDate(ctx, "alice", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, model.LeaveStatusRejected, att.LeaveStatus)
}

func TestRequestLeaveValidation(t *testing.T) {
	f := newFixture(localTime(2026, time.March, 2, 10, 0))
	ctx := context.Background()

	err := f.att.RequestLeave(ctx, "alice", "sabbatical", model.LeaveSlotMorningHalf, "")
	assert.ErrorIs(t, err, ErrInvalidLeave)

	err = f.att.RequestLeave(ctx, "alice", model.LeaveTypeHalfDay, "midnight", "")
	assert.ErrorIs(t, err, ErrInvalidLeave)
}

func TestResolveLeaveWithoutRequest(t *testing.T) {
	f := newFixture(localTime(2026, time.March, 2, 10, 0))

	err := f.att.ResolveLeave(context.Background(), "alice", "2026-03-02", true)
	assert.ErrorIs(t, err, ErrLeaveNotPending)
}
