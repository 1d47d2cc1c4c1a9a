package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"timeflow/internal/model"
)

// Policy holds the tunable time-tracking rules. The zero value is not
// usable; start from DefaultPolicy and overlay a yaml file with LoadPolicy.
type Policy struct {
	Breaks    BreakPolicy   `yaml:"breaks"`
	Idle      IdlePolicy    `yaml:"idle"`
	Workday   WorkdayPolicy `yaml:"workday"`
	Reconcile ReconcilePolicy `yaml:"reconcile"`
}

type BreakPolicy struct {
	BreakfastLimitMin float64 `yaml:"breakfast_limit_min"`
	LunchLimitMin     float64 `yaml:"lunch_limit_min"`
	OtherLimitMin     float64 `yaml:"other_limit_min"`
	WarnFraction      float64 `yaml:"warn_fraction"`

	WarnCooldown    time.Duration `yaml:"-"`
	WarnCooldownRaw string        `yaml:"warn_cooldown"`
}

type IdlePolicy struct {
	SampleInterval   time.Duration `yaml:"-"`
	WarnAfter        time.Duration `yaml:"-"`
	CriticalAfter    time.Duration `yaml:"-"`
	WarnCooldown     time.Duration `yaml:"-"`
	CriticalCooldown time.Duration `yaml:"-"`
	Grace            time.Duration `yaml:"-"`

	SampleIntervalRaw   string `yaml:"sample_interval"`
	WarnAfterRaw        string `yaml:"warn_after"`
	CriticalAfterRaw    string `yaml:"critical_after"`
	WarnCooldownRaw     string `yaml:"warn_cooldown"`
	CriticalCooldownRaw string `yaml:"critical_cooldown"`
	GraceRaw            string `yaml:"grace"`
}

type WorkdayPolicy struct {
	LateCutoff      string  `yaml:"late_cutoff"` // local HH:MM
	FullDayHours    float64 `yaml:"full_day_hours"`
	HalfDayHours    float64 `yaml:"half_day_hours"`
	AutoStopSeconds float64 `yaml:"auto_stop_seconds"`

	lateHour, lateMinute int
}

type ReconcilePolicy struct {
	Interval    time.Duration `yaml:"-"`
	IntervalRaw string        `yaml:"interval"`
}

// DefaultPolicy reproduces the reference behavior: breakfast 20 / lunch 60 /
// other 30 minute breaks with a warning at 80%, idle warning at 10 minutes
// (5 minute cooldown), critical at 15 minutes (2 minute cooldown, 60 second
// grace before a forced stop), lateness after 09:15, 9h/4.5h attendance
// bands, auto-stop after 19 hours of work, reconcile sweep every minute.
func DefaultPolicy() *Policy {
	return &Policy{
		Breaks: BreakPolicy{
			BreakfastLimitMin: 20,
			LunchLimitMin:     60,
			OtherLimitMin:     30,
			WarnFraction:      0.8,
			WarnCooldown:      5 * time.Minute,
		},
		Idle: IdlePolicy{
			SampleInterval:   10 * time.Second,
			WarnAfter:        10 * time.Minute,
			CriticalAfter:    15 * time.Minute,
			WarnCooldown:     5 * time.Minute,
			CriticalCooldown: 2 * time.Minute,
			Grace:            60 * time.Second,
		},
		Workday: WorkdayPolicy{
			LateCutoff:      "09:15",
			FullDayHours:    9,
			HalfDayHours:    4.5,
			AutoStopSeconds: 68400, // 19h
			lateHour:        9,
			lateMinute:      15,
		},
		Reconcile: ReconcilePolicy{Interval: 60 * time.Second},
	}
}

// LoadPolicy reads a yaml policy file over the defaults. An empty path
// returns the defaults unchanged.
func LoadPolicy(path string) (*Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("policy: parse yaml: %w", err)
	}
	if err := p.validateAndNormalize(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) validateAndNormalize() error {
	if p.Breaks.BreakfastLimitMin <= 0 || p.Breaks.LunchLimitMin <= 0 || p.Breaks.OtherLimitMin <= 0 {
		return fmt.Errorf("policy: break limits must be positive")
	}
	if p.Breaks.WarnFraction <= 0 || p.Breaks.WarnFraction >= 1 {
		return fmt.Errorf("policy: breaks.warn_fraction must be in (0, 1)")
	}
	if err := overlayDuration(&p.Breaks.WarnCooldown, p.Breaks.WarnCooldownRaw); err != nil {
		return fmt.Errorf("policy: breaks.warn_cooldown: %w", err)
	}

	idle := &p.Idle
	for _, d := range []struct {
		dst *time.Duration
		raw string
		key string
	}{
		{&idle.SampleInterval, idle.SampleIntervalRaw, "sample_interval"},
		{&idle.WarnAfter, idle.WarnAfterRaw, "warn_after"},
		{&idle.CriticalAfter, idle.CriticalAfterRaw, "critical_after"},
		{&idle.WarnCooldown, idle.WarnCooldownRaw, "warn_cooldown"},
		{&idle.CriticalCooldown, idle.CriticalCooldownRaw, "critical_cooldown"},
		{&idle.Grace, idle.GraceRaw, "grace"},
	} {
		if err := overlayDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("policy: idle.%s: %w", d.key, err)
		}
	}
	if idle.WarnAfter >= idle.CriticalAfter {
		return fmt.Errorf("policy: idle.warn_after must be below idle.critical_after")
	}

	w := &p.Workday
	if w.FullDayHours <= w.HalfDayHours || w.HalfDayHours <= 0 {
		return fmt.Errorf("policy: workday hour bands must satisfy 0 < half < full")
	}
	if w.AutoStopSeconds <= 0 {
		return fmt.Errorf("policy: workday.auto_stop_seconds must be positive")
	}
	var h, m int
	if _, err := fmt.Sscanf(w.LateCutoff, "%d:%d", &h, &m); err != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("policy: workday.late_cutoff %q is not a valid HH:MM", w.LateCutoff)
	}
	w.lateHour, w.lateMinute = h, m

	if err := overlayDuration(&p.Reconcile.Interval, p.Reconcile.IntervalRaw); err != nil {
		return fmt.Errorf("policy: reconcile.interval: %w", err)
	}
	return nil
}

func overlayDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	*dst = d
	return nil
}

// BreakLimit returns the allowed duration for a break type.
func (p *Policy) BreakLimit(t model.BreakType) time.Duration {
	var minutes float64
	switch t {
	case model.BreakBreakfast:
		minutes = p.Breaks.BreakfastLimitMin
	case model.BreakLunch:
		minutes = p.Breaks.LunchLimitMin
	default:
		minutes = p.Breaks.OtherLimitMin
	}
	return time.Duration(minutes * float64(time.Minute))
}

// IsLate reports whether a first start at t counts as a late arrival.
// Lateness is about arrival time only: the first start of the day, never a
// later resume.
func (w *WorkdayPolicy) IsLate(t time.Time) bool {
	return t.Hour() > w.lateHour || (t.Hour() == w.lateHour && t.Minute() > w.lateMinute)
}
