package service

import (
	"time"

	"timeflow/internal/config"
	"timeflow/internal/model"
)

// BreakSummary holds per-type break minutes, active break included.
type BreakSummary struct {
	Breakfast float64 `json:"breakfast"`
	Lunch     float64 `json:"lunch"`
	Other     float64 `json:"other"`
}

// Snapshot is the as-of-now view of one employee-day. It is derived from the
// persisted document plus the clock and never written back.
type Snapshot struct {
	Date   string       `json:"date"`
	Log    *model.TimeLog `json:"log,omitempty"`
	Status model.Status `json:"status"`

	// Accumulated totals plus the running segment / open break.
	WorkMinutes  float64 `json:"workMinutes"`
	BreakMinutes float64 `json:"breakMinutes"`

	ActiveBreak        *model.BreakLog `json:"activeBreak,omitempty"`
	ActiveBreakSeconds float64         `json:"activeBreakSeconds"`
	BreakSummary       BreakSummary    `json:"breakSummary"`

	// BreakWarning is set once the active break passes the warning fraction
	// of its limit; BreakOvertime once it passes the limit itself. Both hold
	// only while that break is active.
	BreakWarning  bool `json:"breakWarning"`
	BreakOvertime bool `json:"breakOvertime"`

	// AutoStopDue is set once continuous work time reaches the auto-stop
	// threshold; the caller is expected to invoke StopWork.
	AutoStopDue bool `json:"autoStopDue"`
}

// ComputeSnapshot derives the live view of a day document. Pure: same
// inputs, same snapshot.
func ComputeSnapshot(tl *model.TimeLog, breaks []*model.BreakLog, now time.Time, pol *config.Policy) Snapshot {
	snap := Snapshot{
		Date:         tl.Date,
		Log:          tl,
		Status:       tl.Status,
		WorkMinutes:  tl.WorkMinutes,
		BreakMinutes: tl.BreakMinutes,
	}

	var activeBreak model.BreakType
	for _, b := range breaks {
		minutes := b.Minutes
		if b.Active() {
			snap.ActiveBreak = b
			snap.ActiveBreakSeconds = now.Sub(b.Start).Seconds()
			minutes = snap.ActiveBreakSeconds / 60
			activeBreak = b.Type
			snap.BreakMinutes += minutes
		}
		switch b.Type {
		case model.BreakBreakfast:
			snap.BreakSummary.Breakfast += minutes
		case model.BreakLunch:
			snap.BreakSummary.Lunch += minutes
		case model.BreakOther:
			snap.BreakSummary.Other += minutes
		}
	}

	snap.Status = model.DeriveStatus(tl, activeBreak)
	if snap.Status == model.StatusWorking {
		snap.WorkMinutes += now.Sub(*tl.ActiveStart).Minutes()
	}

	if snap.ActiveBreak != nil {
		limit := pol.BreakLimit(snap.ActiveBreak.Type).Seconds()
		snap.BreakWarning = snap.ActiveBreakSeconds >= limit*pol.Breaks.WarnFraction
		snap.BreakOvertime = snap.ActiveBreakSeconds > limit
	}

	snap.AutoStopDue = snap.WorkMinutes*60 >= pol.Workday.AutoStopSeconds
	return snap
}
