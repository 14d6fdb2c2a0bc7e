package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/reminder"
	"github.com/rbright/waybar-calendar/internal/schedule"
)

const (
	notificationsService   = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"

	defaultExpireMillis = int32(-1)
)

// busObject is the subset of dbus.BusObject the sink calls.
type busObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Desktop presents reminders through the freedesktop notification service.
// Notifications sharing a tag replace each other.
type Desktop struct {
	conn   *dbus.Conn
	obj    busObject
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	granted bool
	ids     map[string]uint32
}

func NewDesktop(ctx context.Context, logger zerolog.Logger) (*Desktop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	desktop := newDesktop(conn.Object(notificationsService, notificationsPath), logger)
	desktop.conn = conn
	return desktop, nil
}

func newDesktop(obj busObject, logger zerolog.Logger) *Desktop {
	return &Desktop{obj: obj, logger: logger, now: time.Now, ids: make(map[string]uint32)}
}

func (d *Desktop) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// RequestPermission probes the notification server. Desktop notifications
// have no user-facing consent, so a reachable server counts as granted.
func (d *Desktop) RequestPermission(ctx context.Context) error {
	var capabilities []string
	call := d.obj.CallWithContext(ctx, notificationsInterface+".GetCapabilities", 0)
	if call.Err != nil {
		d.setGranted(false)
		return fmt.Errorf("query notification server: %w", call.Err)
	}
	if err := call.Store(&capabilities); err != nil {
		d.setGranted(false)
		return fmt.Errorf("decode notification capabilities: %w", err)
	}

	d.logger.Debug().Strs("capabilities", capabilities).Msg("notification server available")
	d.setGranted(true)
	return nil
}

func (d *Desktop) PermissionGranted(context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.granted
}

func (d *Desktop) Present(ctx context.Context, payload reminder.Payload, tag string) error {
	if tag == "" {
		return errors.New("notification tag is required")
	}

	d.mu.Lock()
	replaces := d.ids[tag]
	d.mu.Unlock()

	hints := map[string]dbus.Variant{
		"x-dunst-stack-tag": dbus.MakeVariant(tag),
		"category":          dbus.MakeVariant("x-calendar.reminder"),
		"urgency":           dbus.MakeVariant(byte(1)),
	}

	call := d.obj.CallWithContext(ctx, notificationsInterface+".Notify", 0,
		AppName,
		replaces,
		"x-office-calendar",
		Title,
		Body(payload),
		[]string{},
		hints,
		defaultExpireMillis,
	)
	if call.Err != nil {
		return fmt.Errorf("send notification %s: %w", tag, call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("decode notification id: %w", err)
	}

	d.mu.Lock()
	d.ids[tag] = id
	d.pruneLocked(schedule.Today(d.now()))
	d.mu.Unlock()
	return nil
}

// pruneLocked forgets notification ids of occurrences before today. Tags
// end in the occurrence date; tags without one are kept.
func (d *Desktop) pruneLocked(today schedule.Date) {
	for tag := range d.ids {
		if date, ok := tagDate(tag); ok && date.Before(today) {
			delete(d.ids, tag)
		}
	}
}

func tagDate(tag string) (schedule.Date, bool) {
	const dateLen = len("2006-01-02")
	if len(tag) < dateLen {
		return schedule.Date{}, false
	}
	date, err := schedule.ParseDate(tag[len(tag)-dateLen:])
	if err != nil {
		return schedule.Date{}, false
	}
	return date, true
}

func (d *Desktop) setGranted(granted bool) {
	d.mu.Lock()
	d.granted = granted
	d.mu.Unlock()
}
