package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"timeflow/internal/clock"
	"timeflow/internal/config"
	"timeflow/internal/model"
)

// casRetries bounds how often an operation re-reads and reapplies after a
// lost versioned write before giving up.
const casRetries = 3

// SessionService is the work/break state machine for one employee-day.
// Every mutation is a read-modify-write against the (employee, date) key
// through the store's versioned replace, so concurrent calls from multiple
// devices cannot both succeed against the same read.
type SessionService struct {
	logs   TimeLogStore
	breaks BreakLogStore
	att    *AttendanceService
	rec    *Reconciler
	clock  clock.Clock
}

func NewSessionService(logs TimeLogStore, breaks BreakLogStore, att *AttendanceService, rec *Reconciler, clk clock.Clock) *SessionService {
	return &SessionService{logs: logs, breaks: breaks, att: att, rec: rec, clock: clk}
}

// StartWork opens a work segment for today, creating the day document on the
// employee's first start. Any prior-day document left open is reconciled
// first so no document ever stays non-terminal across a day boundary.
func (s *SessionService) StartWork(ctx context.Context, userID string) (*model.TimeLog, error) {
	if err := s.rec.ReconcileUser(ctx, userID); err != nil {
		// Deferred to the next pass; today's start must not depend on it.
		log.Printf("WARN reconcile before start for %s: %v", userID, err)
	}

	now := s.clock.Now()
	date := s.clock.Today()

	for attempt := 0; ; attempt++ {
		tl, err := s.logs.GetByUserDate(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("get today: %w", err)
		}

		if tl == nil {
			tl = &model.TimeLog{
				UserID:      userID,
				Date:        date,
				FirstStart:  &now,
				ActiveStart: &now,
				Paused:      false,
			}
			tl.Status = model.DeriveStatus(tl, "")
			err = s.logs.Create(ctx, tl)
			if errors.Is(err, ErrConflict) && attempt < casRetries {
				continue // lost the create race, re-read the winner
			}
			if err != nil {
				return nil, err
			}
			return tl, nil
		}

		if tl.Completed() {
			return nil, ErrDayCompleted
		}
		if tl.Running() {
			return nil, ErrAlreadyRunning
		}

		active, err := s.breaks.GetActiveForLog(ctx, tl.ID)
		if err != nil {
			return nil, fmt.Errorf("get active break: %w", err)
		}
		if active != nil {
			return nil, ErrBreakInProgress
		}

		if tl.FirstStart == nil {
			tl.FirstStart = &now
		}
		tl.ActiveStart = &now
		tl.Paused = false
		tl.Status = model.DeriveStatus(tl, "")

		err = s.logs.ReplaceVersioned(ctx, tl)
		if errors.Is(err, ErrConflict) && attempt < casRetries {
			continue
		}
		if err != nil {
			return nil, err
		}
		return tl, nil
	}
}

// StopWork closes the running work segment and folds it into the
// accumulated total. The day is paused, not finalized; work may start again.
func (s *SessionService) StopWork(ctx context.Context, userID string) (*model.TimeLog, error) {
	date := s.clock.Today()

	for attempt := 0; ; attempt++ {
		tl, err := s.logs.GetByUserDate(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("get today: %w", err)
		}
		if tl == nil {
			return nil, ErrNotRunning
		}

		active, err := s.breaks.GetActiveForLog(ctx, tl.ID)
		if err != nil {
			return nil, fmt.Errorf("get active break: %w", err)
		}
		if active != nil {
			if tl.Running() {
				// A running segment alongside an open break means the document
				// is corrupt; refuse rather than silently repair lost time.
				log.Printf("ERROR invariant: timelog %s has active segment and open break %s", tl.ID.Hex(), active.ID.Hex())
			}
			return nil, ErrBreakInProgress
		}
		if !tl.Running() {
			return nil, ErrNotRunning
		}

		now := s.clock.Now()
		tl.WorkMinutes += now.Sub(*tl.ActiveStart).Minutes()
		tl.ActiveStart = nil
		tl.LastStop = &now
		tl.Paused = true
		tl.Status = model.DeriveStatus(tl, "")

		err = s.logs.ReplaceVersioned(ctx, tl)
		if errors.Is(err, ErrConflict) && attempt < casRetries {
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := s.att.RefreshFromLog(ctx, tl); err != nil {
			log.Printf("WARN refresh attendance for %s: %v", userID, err)
		}
		return tl, nil
	}
}

// StartBreak pauses the running work segment and opens a break of the given
// type. A break can only be entered from the working state, never from an
// idle pause, so idle gaps are never counted as break time.
func (s *SessionService) StartBreak(ctx context.Context, userID string, breakType model.BreakType) (*model.BreakLog, error) {
	if !breakType.Valid() {
		return nil, ErrInvalidBreakType
	}
	date := s.clock.Today()

	for attempt := 0; ; attempt++ {
		tl, err := s.logs.GetByUserDate(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("get today: %w", err)
		}
		if tl == nil {
			return nil, ErrNotRunning
		}

		active, err := s.breaks.GetActive(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get active break: %w", err)
		}
		if active != nil {
			return nil, ErrBreakAlreadyActive
		}
		if !tl.Running() {
			return nil, ErrNotRunning
		}

		now := s.clock.Now()
		tl.WorkMinutes += now.Sub(*tl.ActiveStart).Minutes()
		tl.ActiveStart = nil
		tl.Paused = true
		tl.Status = model.DeriveStatus(tl, breakType)

		err = s.logs.ReplaceVersioned(ctx, tl)
		if errors.Is(err, ErrConflict) && attempt < casRetries {
			continue
		}
		if err != nil {
			return nil, err
		}

		b := &model.BreakLog{
			UserID:    userID,
			TimeLogID: tl.ID,
			Type:      breakType,
			Start:     now,
		}
		if err := s.breaks.Create(ctx, b); err != nil {
			return nil, fmt.Errorf("create break: %w", err)
		}
		return b, nil
	}
}

// StopBreak closes the open break, adds its minutes to the day's break
// total, and resumes work.
func (s *SessionService) StopBreak(ctx context.Context, userID string) (*model.BreakLog, error) {
	b, err := s.breaks.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active break: %w", err)
	}
	if b == nil {
		return nil, ErrNoActiveBreak
	}

	tl, err := s.logs.GetByID(ctx, b.TimeLogID)
	if err != nil {
		return nil, fmt.Errorf("get timelog: %w", err)
	}
	if tl == nil {
		return nil, fmt.Errorf("break %s references missing timelog", b.ID.Hex())
	}
	if tl.Running() {
		log.Printf("ERROR invariant: timelog %s has active segment and open break %s", tl.ID.Hex(), b.ID.Hex())
		return nil, ErrBreakAlreadyActive
	}

	now := s.clock.Now()
	b.End = &now
	b.Minutes = now.Sub(b.Start).Minutes()
	if err := s.breaks.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("close break: %w", err)
	}

	for attempt := 0; ; attempt++ {
		tl.BreakMinutes += b.Minutes
		tl.ActiveStart = &now
		tl.Paused = false
		tl.Status = model.DeriveStatus(tl, "")

		err = s.logs.ReplaceVersioned(ctx, tl)
		if errors.Is(err, ErrConflict) && attempt < casRetries {
			tl, err = s.logs.GetByID(ctx, b.TimeLogID)
			if err != nil {
				return nil, fmt.Errorf("get timelog: %w", err)
			}
			if tl == nil {
				return nil, fmt.Errorf("break %s references missing timelog", b.ID.Hex())
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// TodaySnapshot returns the live view of today's document: accumulated
// totals plus the running segment and active break as of now. Read-only.
func (s *SessionService) TodaySnapshot(ctx context.Context, userID string, pol *config.Policy) (*Snapshot, error) {
	date := s.clock.Today()

	tl, err := s.logs.GetByUserDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("get today: %w", err)
	}
	if tl == nil {
		return &Snapshot{Date: date}, nil
	}

	breaks, err := s.breaks.ListForLog(ctx, tl.ID)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}

	snap := ComputeSnapshot(tl, breaks, s.clock.Now(), pol)
	return &snap, nil
}
