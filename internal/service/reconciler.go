package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"timeflow/internal/clock"
	"timeflow/internal/model"
)

// Reconciler force-closes day documents left in a non-terminal state past
// their calendar date. The transition is monotonic (non-terminal to terminal
// only) and idempotent, and goes through the same versioned update path as
// interactive operations so it cannot race a late StopWork call.
type Reconciler struct {
	logs     TimeLogStore
	breaks   BreakLogStore
	att      *AttendanceService
	clock    clock.Clock
	interval time.Duration
}

func NewReconciler(logs TimeLogStore, breaks BreakLogStore, att *AttendanceService, clk clock.Clock, interval time.Duration) *Reconciler {
	return &Reconciler{logs: logs, breaks: breaks, att: att, clock: clk, interval: interval}
}

// Run sweeps on start and then on every tick until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Println("Reconciler started")
	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Reconciler shutting down...")
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) {
	today := r.clock.Today()
	stale, err := r.logs.FindStale(ctx, today)
	if err != nil {
		log.Printf("WARN reconcile sweep: %v", err)
		return
	}
	for _, tl := range stale {
		if err := r.Reconcile(ctx, tl); err != nil {
			log.Printf("WARN reconcile %s %s: %v", tl.UserID, tl.Date, err)
		}
	}
}

// ReconcileUser closes any stale documents for one employee; used lazily on
// the interactive path before today's work starts.
func (r *Reconciler) ReconcileUser(ctx context.Context, userID string) error {
	stale, err := r.logs.FindStaleForUser(ctx, userID, r.clock.Today())
	if err != nil {
		return fmt.Errorf("find stale: %w", err)
	}
	for _, tl := range stale {
		if err := r.Reconcile(ctx, tl); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile force-closes one stale document. A document dated today is never
// touched; an already-completed document is a no-op. A lost write race means
// someone else completed or mutated it first, which the next pass observes.
func (r *Reconciler) Reconcile(ctx context.Context, tl *model.TimeLog) error {
	if tl.Date >= r.clock.Today() {
		return nil
	}
	if tl.Completed() {
		return nil
	}

	end := tl.LastStop
	if end == nil {
		fallback := dayEnd(tl.Date, r.clock.Now().Location())
		end = &fallback
	}

	// An open break left across the boundary is closed at the same instant
	// so no break record outlives its day document.
	if open, err := r.breaks.GetActiveForLog(ctx, tl.ID); err != nil {
		return fmt.Errorf("get open break: %w", err)
	} else if open != nil {
		open.End = end
		open.Minutes = end.Sub(open.Start).Minutes()
		if open.Minutes < 0 {
			open.Minutes = 0
		}
		if err := r.breaks.Update(ctx, open); err != nil {
			return fmt.Errorf("close stale break: %w", err)
		}
		tl.BreakMinutes += open.Minutes
	}

	tl.ActiveStart = nil
	tl.Paused = false
	tl.End = end
	tl.Status = model.StatusCompleted

	if err := r.logs.ReplaceVersioned(ctx, tl); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil
		}
		return err
	}

	if err := r.att.RefreshFromLog(ctx, tl); err != nil {
		log.Printf("WARN refresh attendance after reconcile %s %s: %v", tl.UserID, tl.Date, err)
	}
	return nil
}

// dayEnd returns 23:59:59 local time on the given calendar date.
func dayEnd(date string, loc *time.Location) time.Time {
	d, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		// Dates come from the Clock and are always well-formed; fall back to
		// the zero instant rather than inventing one.
		return time.Time{}
	}
	return d.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
}
