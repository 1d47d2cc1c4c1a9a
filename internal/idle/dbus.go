// Package idle reads per-user workstation idle time from systemd-logind.
package idle

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// Source implements the idle monitor input against the system bus. Idle
// duration is derived from a session's IdleHint and IdleSinceHint.
type Source struct {
	conn *dbus.Conn
}

func NewSource() (*Source, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &Source{conn: conn}, nil
}

func (s *Source) Close() error {
	return s.conn.Close()
}

// IdleDuration returns how long the user's active session has been idle, or
// zero if the session is not idle (or no session exists).
func (s *Source) IdleDuration(_ context.Context, userID string) (time.Duration, error) {
	sessionPath, err := s.findSession(userID)
	if err != nil {
		return 0, err
	}
	if sessionPath == "" {
		return 0, nil
	}

	obj := s.conn.Object("org.freedesktop.login1", dbus.ObjectPath(sessionPath))

	idleVariant, err := obj.GetProperty("org.freedesktop.login1.Session.IdleHint")
	if err != nil {
		return 0, fmt.Errorf("get IdleHint: %w", err)
	}
	idle, ok := idleVariant.Value().(bool)
	if !ok || !idle {
		return 0, nil
	}

	sinceVariant, err := obj.GetProperty("org.freedesktop.login1.Session.IdleSinceHint")
	if err != nil {
		return 0, fmt.Errorf("get IdleSinceHint: %w", err)
	}
	sinceUsec, ok := sinceVariant.Value().(uint64)
	if !ok || sinceUsec == 0 {
		return 0, nil
	}

	return time.Since(time.UnixMicro(int64(sinceUsec))), nil
}

// findSession returns the object path of the user's session, or "" if the
// user has none.
func (s *Source) findSession(userID string) (string, error) {
	var sessions []struct {
		ID   string
		UID  uint32
		User string
		Seat string
		Path dbus.ObjectPath
	}

	obj := s.conn.Object("org.freedesktop.login1", "/org/freedesktop/login1")
	if err := obj.Call("org.freedesktop.login1.Manager.ListSessions", 0).Store(&sessions); err != nil {
		return "", fmt.Errorf("list sessions: %w", err)
	}

	for _, sess := range sessions {
		if sess.User == userID {
			return string(sess.Path), nil
		}
	}
	return "", nil
}
