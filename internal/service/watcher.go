package service

import (
	"context"
	"log"
	"sync"
	"time"

	"timeflow/internal/clock"
	"timeflow/internal/config"
	"timeflow/internal/i18n"
	"timeflow/internal/model"
	"timeflow/internal/notify"
)

// Watcher samples every active session on a fixed interval and reacts to
// thresholds: idle warnings and forced stops, the 19-hour auto-stop, and
// break overtime. It mutates state only through the SessionService, so its
// writes go through the same atomic path as interactive calls.
type Watcher struct {
	logs     TimeLogStore
	breaks   BreakLogStore
	sessions *SessionService
	idle     IdleSource
	notifier *notify.Throttler
	clock    clock.Clock
	policy   *config.Policy

	mu            sync.Mutex
	criticalSince map[string]time.Time
}

func NewWatcher(logs TimeLogStore, breaks BreakLogStore, sessions *SessionService, idleSrc IdleSource, notifier *notify.Throttler, clk clock.Clock, pol *config.Policy) *Watcher {
	return &Watcher{
		logs:          logs,
		breaks:        breaks,
		sessions:      sessions,
		idle:          idleSrc,
		notifier:      notifier,
		clock:         clk,
		policy:        pol,
		criticalSince: make(map[string]time.Time),
	}
}

// Run samples until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.policy.Idle.SampleInterval)
	defer ticker.Stop()

	log.Println("Session watcher started")
	for {
		select {
		case <-ctx.Done():
			log.Println("Session watcher shutting down...")
			return nil
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	active, err := w.logs.FindActive(ctx, w.clock.Today())
	if err != nil {
		log.Printf("WARN watcher: find active sessions: %v", err)
		return
	}

	seen := make(map[string]bool, len(active))
	for _, tl := range active {
		seen[tl.UserID] = true
		w.checkSession(ctx, tl)
	}

	// Drop idle tracking for anyone no longer working so state never leaks
	// across session boundaries.
	w.mu.Lock()
	for userID := range w.criticalSince {
		if !seen[userID] {
			delete(w.criticalSince, userID)
		}
	}
	w.mu.Unlock()
}

func (w *Watcher) checkSession(ctx context.Context, tl *model.TimeLog) {
	breaks, err := w.breaks.ListForLog(ctx, tl.ID)
	if err != nil {
		log.Printf("WARN watcher: list breaks for %s: %v", tl.UserID, err)
		return
	}

	snap := ComputeSnapshot(tl, breaks, w.clock.Now(), w.policy)

	if snap.AutoStopDue && snap.Status == model.StatusWorking {
		w.autoStop(ctx, tl.UserID)
		return
	}

	if snap.ActiveBreak != nil {
		w.checkBreak(ctx, tl.UserID, &snap)
		return
	}

	if snap.Status == model.StatusWorking {
		w.checkIdle(ctx, tl.UserID)
	}
}

func (w *Watcher) autoStop(ctx context.Context, userID string) {
	if _, err := w.sessions.StopWork(ctx, userID); err != nil {
		log.Printf("WARN watcher: auto-stop for %s: %v", userID, err)
		return
	}
	w.notifier.Notify(ctx, userID, notify.Message{
		Key:   "auto-stop",
		Title: i18n.T(ctx, "notify.auto_stop.title"),
		Body:  i18n.T(ctx, "notify.auto_stop.body"),
		Level: notify.LevelCritical,
	}, 0)
}

func (w *Watcher) checkBreak(ctx context.Context, userID string, snap *Snapshot) {
	breakName := string(snap.ActiveBreak.Type)
	data := map[string]any{"Break": breakName}

	if snap.BreakOvertime {
		w.notifier.Notify(ctx, userID, notify.Message{
			Key:   "break-overtime-" + breakName,
			Title: i18n.T(ctx, "notify.break_overtime.title"),
			Body:  i18n.T(ctx, "notify.break_overtime.body", data),
			Level: notify.LevelCritical,
		}, w.policy.Breaks.WarnCooldown)
		return
	}
	if snap.BreakWarning {
		w.notifier.Notify(ctx, userID, notify.Message{
			Key:   "break-warning-" + breakName,
			Title: i18n.T(ctx, "notify.break_warning.title"),
			Body:  i18n.T(ctx, "notify.break_warning.body", data),
			Level: notify.LevelNormal,
		}, w.policy.Breaks.WarnCooldown)
	}
}

func (w *Watcher) checkIdle(ctx context.Context, userID string) {
	idleFor, err := w.idle.IdleDuration(ctx, userID)
	if err != nil {
		log.Printf("WARN watcher: idle duration for %s: %v", userID, err)
		return
	}

	pol := w.policy.Idle
	now := w.clock.Now()
	data := map[string]any{"Minutes": int(idleFor.Minutes())}

	switch {
	case idleFor >= pol.CriticalAfter:
		w.notifier.Notify(ctx, userID, notify.Message{
			Key:   "idle-critical",
			Title: i18n.T(ctx, "notify.idle_critical.title"),
			Body:  i18n.T(ctx, "notify.idle_critical.body", data),
			Level: notify.LevelCritical,
		}, pol.CriticalCooldown)

		w.mu.Lock()
		since, tracked := w.criticalSince[userID]
		if !tracked {
			w.criticalSince[userID] = now
		}
		w.mu.Unlock()

		if tracked && now.Sub(since) >= pol.Grace {
			w.forceStop(ctx, userID)
		}

	case idleFor >= pol.WarnAfter:
		w.notifier.Notify(ctx, userID, notify.Message{
			Key:   "idle-warning",
			Title: i18n.T(ctx, "notify.idle_warning.title"),
			Body:  i18n.T(ctx, "notify.idle_warning.body", data),
			Level: notify.LevelNormal,
		}, pol.WarnCooldown)
		w.clearCritical(userID)

	default:
		w.clearCritical(userID)
	}
}

func (w *Watcher) forceStop(ctx context.Context, userID string) {
	w.clearCritical(userID)
	if _, err := w.sessions.StopWork(ctx, userID); err != nil {
		log.Printf("WARN watcher: idle forced stop for %s: %v", userID, err)
		return
	}
	w.notifier.Notify(ctx, userID, notify.Message{
		Key:   "idle-forced-stop",
		Title: i18n.T(ctx, "notify.idle_forced_stop.title"),
		Body:  i18n.T(ctx, "notify.idle_forced_stop.body"),
		Level: notify.LevelCritical,
	}, 0)
}

func (w *Watcher) clearCritical(userID string) {
	w.mu.Lock()
	delete(w.criticalSince, userID)
	w.mu.Unlock()
}
