package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeflow/internal/model"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadPolicyDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)

	assert.Equal(t, 20*time.Minute, p.BreakLimit(model.BreakBreakfast))
	assert.Equal(t, 60*time.Minute, p.BreakLimit(model.BreakLunch))
	assert.Equal(t, 30*time.Minute, p.BreakLimit(model.BreakOther))
	assert.Equal(t, 10*time.Minute, p.Idle.WarnAfter)
	assert.Equal(t, 15*time.Minute, p.Idle.CriticalAfter)
	assert.Equal(t, 60*time.Second, p.Idle.Grace)
	assert.Equal(t, float64(68400), p.Workday.AutoStopSeconds)
	assert.Equal(t, 60*time.Second, p.Reconcile.Interval)
}

func TestLoadPolicyOverlay(t *testing.T) {
	path := writePolicy(t, `
breaks:
  lunch_limit_min: 45
  warn_cooldown: 3m
idle:
  warn_after: 8m
  grace: 90s
workday:
  late_cutoff: "10:00"
reconcile:
  interval: 5m
`)

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, p.BreakLimit(model.BreakLunch))
	assert.Equal(t, 3*time.Minute, p.Breaks.WarnCooldown)
	assert.Equal(t, 8*time.Minute, p.Idle.WarnAfter)
	assert.Equal(t, 90*time.Second, p.Idle.Grace)
	assert.Equal(t, 5*time.Minute, p.Reconcile.Interval)

	// Untouched keys keep their defaults.
	assert.Equal(t, 20*time.Minute, p.BreakLimit(model.BreakBreakfast))
	assert.Equal(t, 15*time.Minute, p.Idle.CriticalAfter)

	late := time.Date(2026, time.March, 2, 9, 45, 0, 0, time.Local)
	assert.False(t, p.Workday.IsLate(late), "cutoff moved to 10:00")
	assert.True(t, p.Workday.IsLate(late.Add(time.Hour)))
}

func TestLoadPolicyRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative break limit", "breaks:\n  lunch_limit_min: -5\n"},
		{"warn fraction out of range", "breaks:\n  warn_fraction: 1.5\n"},
		{"warn at or above critical", "idle:\n  warn_after: 20m\n"},
		{"bad duration", "idle:\n  grace: soon\n"},
		{"bad cutoff", "workday:\n  late_cutoff: quarter-past\n"},
		{"inverted hour bands", "workday:\n  half_day_hours: 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestIsLateBoundary(t *testing.T) {
	p := DefaultPolicy()

	onCutoff := time.Date(2026, time.March, 2, 9, 15, 59, 0, time.Local)
	assert.False(t, p.Workday.IsLate(onCutoff), "09:15 sharp is still on time")
	assert.True(t, p.Workday.IsLate(time.Date(2026, time.March, 2, 9, 16, 0, 0, time.Local)))
	assert.False(t, p.Workday.IsLate(time.Date(2026, time.March, 2, 8, 59, 0, 0, time.Local)))
}
