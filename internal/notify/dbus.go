package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// DBusSink delivers desktop notifications via org.freedesktop.Notifications
// on the session bus.
type DBusSink struct {
	conn *dbus.Conn
}

func NewDBusSink() (*DBusSink, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &DBusSink{conn: conn}, nil
}

func (s *DBusSink) Send(_ context.Context, _ string, msg Message) error {
	urgency := byte(1)
	timeout := int32(5000)
	icon := "dialog-information"
	if msg.Level == LevelCritical {
		urgency = 2
		timeout = 10000
		icon = "dialog-warning"
	}

	obj := s.conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		"TimeFlow",  // app_name
		uint32(0),   // replaces_id
		icon,        // app_icon
		msg.Title,   // summary
		msg.Body,    // body
		[]string{},  // actions
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(urgency),
		},
		timeout, // expire_timeout
	)
	if call.Err != nil {
		return fmt.Errorf("send notification: %w", call.Err)
	}
	return nil
}

func (s *DBusSink) Close() error {
	return s.conn.Close()
}
