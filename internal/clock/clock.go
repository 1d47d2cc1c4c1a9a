package clock

import "time"

// Clock supplies the current instant and the local calendar date. Both the
// live display path and the reconciler take their notion of "today" from
// here, so tests can simulate midnight rollover deterministically.
type Clock interface {
	Now() time.Time
	Today() string // local calendar date, YYYY-MM-DD
}

type systemClock struct{}

// New returns a Clock backed by the system wall clock.
func New() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }
func (systemClock) Today() string  { return time.Now().Format(time.DateOnly) }

// Fake is a manually advanced Clock for tests.
type Fake struct {
	Current time.Time
}

func NewFake(t time.Time) *Fake { return &Fake{Current: t} }

func (f *Fake) Now() time.Time { return f.Current }
func (f *Fake) Today() string  { return f.Current.Format(time.DateOnly) }

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) { f.Current = f.Current.Add(d) }

// Set jumps the fake clock to an absolute instant.
func (f *Fake) Set(t time.Time) { f.Current = t }
