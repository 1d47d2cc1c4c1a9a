package service

import "errors"

// Precondition violations: user-correctable states, reported synchronously,
// never retried.
var (
	ErrAlreadyRunning     = errors.New("work already running")
	ErrNotRunning         = errors.New("work not running")
	ErrBreakInProgress    = errors.New("end break first")
	ErrBreakAlreadyActive = errors.New("break already active")
	ErrNoActiveBreak      = errors.New("no active break")
	ErrDayCompleted       = errors.New("day already completed")
	ErrInvalidBreakType   = errors.New("invalid break type")
	ErrInvalidLeave       = errors.New("invalid leave type or time slot")
	ErrLeaveNotPending    = errors.New("leave request is not pending")
)

// ErrConflict is returned by a store when a versioned write lost a race.
// Operations retry it a bounded number of times; if it still surfaces, the
// caller should retry the whole request.
var ErrConflict = errors.New("concurrent update conflict")
