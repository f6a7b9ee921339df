package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/mkrasov/planner/internal/clock"
)

// Urgency is the desktop urgency level of a notification.
type Urgency string

// Urgency levels, matching what the notification daemon understands.
const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

// Notification is a rendered message ready for delivery.
type Notification struct {
	Title       string
	Message     string
	Urgency     Urgency
	SoundFile   string
	SoundRepeat int
}

// Dispatcher delivers a notification. Delivery is best-effort; the worker
// treats a returned error as a contained failure and moves on.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// DaemonDispatcher delivers notifications to the desktop notification
// daemon: it renders the notification into a config file in a spool
// directory and writes the file's path to the daemon over TCP.
type DaemonDispatcher struct {
	addr     string
	spoolDir string
	timeout  time.Duration
	clk      clock.Clock
}

// NewDaemonDispatcher creates a dispatcher for the daemon at addr,
// spooling config files under spoolDir. timeout bounds one delivery
// attempt end to end.
func NewDaemonDispatcher(addr, spoolDir string, timeout time.Duration, clk clock.Clock) (*DaemonDispatcher, error) {
	if err := os.MkdirAll(spoolDir, 0755); err != nil {
		return nil, fmt.Errorf("create notification spool dir: %w", err)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &DaemonDispatcher{addr: addr, spoolDir: spoolDir, timeout: timeout, clk: clk}, nil
}

// Send writes the rendered config file and hands its path to the daemon.
func (d *DaemonDispatcher) Send(ctx context.Context, n Notification) error {
	path, err := d.writeConfig(n)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(d.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	conn, err := net.DialTimeout("tcp", d.addr, time.Until(deadline))
	if err != nil {
		return fmt.Errorf("connect to notification daemon: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Debug("Failed to close daemon connection", "error", closeErr)
		}
	}()

	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set daemon connection deadline: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", path); err != nil {
		return fmt.Errorf("send config path to daemon: %w", err)
	}
	return nil
}

func (d *DaemonDispatcher) writeConfig(n Notification) (string, error) {
	content := fmt.Sprintf("[notification]\ntitle=%s\nmessage=%s\nurgency=%s\ntimeout=5000\n",
		n.Title, n.Message, n.Urgency)
	if n.SoundFile != "" {
		content += fmt.Sprintf("sound=%s\nsound_repeat=%d\n", n.SoundFile, n.SoundRepeat)
	}

	f, err := os.CreateTemp(d.spoolDir, "notify-*.conf")
	if err != nil {
		return "", fmt.Errorf("create notification config: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write notification config: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close notification config: %w", err)
	}
	return f.Name(), nil
}

// CleanupSpool removes config files older than maxAge. The daemon reads
// files immediately after receiving their path, so stale files are junk.
func (d *DaemonDispatcher) CleanupSpool(maxAge time.Duration) {
	entries, err := filepath.Glob(filepath.Join(d.spoolDir, "*.conf"))
	if err != nil {
		slog.Warn("Failed to list notification spool", "error", err)
		return
	}
	cutoff := d.clk.Now().Add(-maxAge)
	for _, path := range entries {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to remove stale notification config", "path", path, "error", err)
		}
	}
}
