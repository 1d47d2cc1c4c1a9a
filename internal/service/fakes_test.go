package service

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"timeflow/internal/clock"
	"timeflow/internal/config"
	"timeflow/internal/model"
)

func logKey(userID, date string) string { return userID + "|" + date }

func cloneLog(tl *model.TimeLog) *model.TimeLog {
	if tl == nil {
		return nil
	}
	c := *tl
	return &c
}

// memTimeLogs enforces the same uniqueness and versioning rules as the Mongo
// store: one document per (employee, date), and ReplaceVersioned succeeds
// only against the version that was read.
type memTimeLogs struct {
	mu   sync.Mutex
	byID map[bson.ObjectID]*model.TimeLog
}

func newMemTimeLogs() *memTimeLogs {
	return &memTimeLogs{byID: make(map[bson.ObjectID]*model.TimeLog)}
}

func (m *memTimeLogs) GetByUserDate(_ context.Context, userID, date string) (*model.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tl := range m.byID {
		if tl.UserID == userID && tl.Date == date {
			return cloneLog(tl), nil
		}
	}
	return nil, nil
}

func (m *memTimeLogs) GetByID(_ context.Context, id bson.ObjectID) (*model.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneLog(m.byID[id]), nil
}

func (m *memTimeLogs) Create(_ context.Context, tl *model.TimeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.byID {
		if have.UserID == tl.UserID && have.Date == tl.Date {
			return ErrConflict
		}
	}
	tl.ID = bson.NewObjectID()
	tl.Version = 1
	m.byID[tl.ID] = cloneLog(tl)
	return nil
}

func (m *memTimeLogs) ReplaceVersioned(_ context.Context, tl *model.TimeLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[tl.ID]
	if !ok || stored.Version != tl.Version {
		return ErrConflict
	}
	tl.Version++
	m.byID[tl.ID] = cloneLog(tl)
	return nil
}

func (m *memTimeLogs) FindStale(_ context.Context, before string) ([]*model.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.TimeLog
	for _, tl := range m.byID {
		if tl.Date < before && !tl.Completed() {
			out = append(out, cloneLog(tl))
		}
	}
	return out, nil
}

func (m *memTimeLogs) FindStaleForUser(_ context.Context, userID, before string) ([]*model.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.TimeLog
	for _, tl := range m.byID {
		if tl.UserID == userID && tl.Date < before && !tl.Completed() {
			out = append(out, cloneLog(tl))
		}
	}
	return out, nil
}

func (m *memTimeLogs) FindActive(_ context.Context, date string) ([]*model.TimeLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.TimeLog
	for _, tl := range m.byID {
		if tl.Date == date && (tl.Running() || tl.OnBreak()) {
			out = append(out, cloneLog(tl))
		}
	}
	return out, nil
}

// seed installs a document directly, bypassing the state machine.
func (m *memTimeLogs) seed(tl *model.TimeLog) *model.TimeLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tl.ID.IsZero() {
		tl.ID = bson.NewObjectID()
	}
	if tl.Version == 0 {
		tl.Version = 1
	}
	m.byID[tl.ID] = cloneLog(tl)
	return tl
}

type memBreakLogs struct {
	mu     sync.Mutex
	breaks []*model.BreakLog
}

func newMemBreakLogs() *memBreakLogs { return &memBreakLogs{} }

func cloneBreak(b *model.BreakLog) *model.BreakLog {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func (m *memBreakLogs) Create(_ context.Context, b *model.BreakLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = bson.NewObjectID()
	m.breaks = append(m.breaks, cloneBreak(b))
	return nil
}

func (m *memBreakLogs) Update(_ context.Context, b *model.BreakLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, have := range m.breaks {
		if have.ID == b.ID {
			m.breaks[i] = cloneBreak(b)
			break
		}
	}
	return nil
}

func (m *memBreakLogs) GetActive(_ context.Context, userID string) (*model.BreakLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.breaks {
		if b.UserID == userID && b.Active() {
			return cloneBreak(b), nil
		}
	}
	return nil, nil
}

func (m *memBreakLogs) GetActiveForLog(_ context.Context, timeLogID bson.ObjectID) (*model.BreakLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.breaks {
		if b.TimeLogID == timeLogID && b.Active() {
			return cloneBreak(b), nil
		}
	}
	return nil, nil
}

func (m *memBreakLogs) ListForLog(_ context.Context, timeLogID bson.ObjectID) ([]*model.BreakLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BreakLog
	for _, b := range m.breaks {
		if b.TimeLogID == timeLogID {
			out = append(out, cloneBreak(b))
		}
	}
	return out, nil
}

func (m *memBreakLogs) seed(b *model.BreakLog) *model.BreakLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID.IsZero() {
		b.ID = bson.NewObjectID()
	}
	m.breaks = append(m.breaks, cloneBreak(b))
	return b
}

type memAttendance struct {
	mu   sync.Mutex
	atts map[string]*model.Attendance
}

func newMemAttendance() *memAttendance {
	return &memAttendance{atts: make(map[string]*model.Attendance)}
}

func (m *memAttendance) get(userID, date string) *model.Attendance {
	key := logKey(userID, date)
	a, ok := m.atts[key]
	if !ok {
		a = &model.Attendance{ID: bson.NewObjectID(), UserID: userID, Date: date}
		m.atts[key] = a
	}
	return a
}

func (m *memAttendance) GetByUserDate(_ context.Context, userID, date string) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.atts[logKey(userID, date)]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (m *memAttendance) UpsertWork(_ context.Context, userID, date string, status model.PresentStatus, workMinutes, breakMinutes float64, start, end *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.get(userID, date)
	a.PresentStatus = status
	a.WorkMinutes = workMinutes
	a.BreakMinutes = breakMinutes
	a.StartTime = start
	a.EndTime = end
	return nil
}

func (m *memAttendance) SetMarkedPresent(_ context.Context, userID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.get(userID, date)
	a.MarkedPresent = true
	a.PresentStatus = model.PresentStatusPresent
	return nil
}

func (m *memAttendance) SetLeave(_ context.Context, userID, date, leaveType, slot, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.get(userID, date)
	a.LeaveType = leaveType
	a.LeaveTimeSlot = slot
	a.LeaveStatus = model.LeaveStatusPending
	a.Notes = notes
	return nil
}

func (m *memAttendance) SetLeaveStatus(_ context.Context, userID, date, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(userID, date).LeaveStatus = status
	return nil
}

// fakeIdle reports a fixed idle duration per employee.
type fakeIdle struct {
	mu sync.Mutex
	d  map[string]time.Duration
}

func (f *fakeIdle) set(userID string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.d == nil {
		f.d = make(map[string]time.Duration)
	}
	f.d[userID] = d
}

func (f *fakeIdle) IdleDuration(_ context.Context, userID string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.d[userID], nil
}

// fixture wires the full service stack over the in-memory stores.
type fixture struct {
	logs   *memTimeLogs
	breaks *memBreakLogs
	atts   *memAttendance
	clk    *clock.Fake
	pol    *config.Policy
	att    *AttendanceService
	rec    *Reconciler
	svc    *SessionService
}

func newFixture(start time.Time) *fixture {
	f := &fixture{
		logs:   newMemTimeLogs(),
		breaks: newMemBreakLogs(),
		atts:   newMemAttendance(),
		clk:    clock.NewFake(start),
		pol:    config.DefaultPolicy(),
	}
	f.att = NewAttendanceService(f.atts, f.logs, f.clk, f.pol)
	f.rec = NewReconciler(f.logs, f.breaks, f.att, f.clk, f.pol.Reconcile.Interval)
	f.svc = NewSessionService(f.logs, f.breaks, f.att, f.rec, f.clk)
	return f
}

// localTime builds an instant in the fixed test timezone.
func localTime(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.Local)
}
