package notify

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSendDeliversConfigPath(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		received <- strings.TrimSpace(line)
	}()

	spool := t.TempDir()
	d, err := NewDaemonDispatcher(ln.Addr().String(), spool, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}

	err = d.Send(context.Background(), Notification{
		Title:       "Scheduled Work",
		Message:     "Time to start: Thesis",
		Urgency:     UrgencyCritical,
		SoundFile:   "chime.wav",
		SoundRepeat: 2,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	var path string
	select {
	case path = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("Daemon never received a config path")
	}

	if filepath.Dir(path) != spool {
		t.Errorf("Expected config in spool dir %s, got %s", spool, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	want := "[notification]\ntitle=Scheduled Work\nmessage=Time to start: Thesis\nurgency=critical\ntimeout=5000\nsound=chime.wav\nsound_repeat=2\n"
	if string(content) != want {
		t.Errorf("Unexpected config content:\n%s", content)
	}
}

func TestSendFailsWhenDaemonUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	d, err := NewDaemonDispatcher(addr, t.TempDir(), 500*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}

	if err := d.Send(context.Background(), Notification{Title: "x", Message: "y", Urgency: UrgencyNormal}); err == nil {
		t.Error("Expected an error with no daemon listening")
	}
}

func TestCleanupSpoolRemovesStaleFiles(t *testing.T) {
	spool := t.TempDir()
	clk := &fakeClock{now: time.Now()}
	d, err := NewDaemonDispatcher("127.0.0.1:1", spool, time.Second, clk)
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}

	stale := filepath.Join(spool, "notify-stale.conf")
	fresh := filepath.Join(spool, "notify-fresh.conf")
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("[notification]\n"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	old := clk.now.Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("Failed to backdate file: %v", err)
	}

	d.CleanupSpool(24 * time.Hour)

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("Expected stale config to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("Expected fresh config to survive: %v", err)
	}
}
