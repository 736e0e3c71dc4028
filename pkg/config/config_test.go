package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vectorcomm/pkg/transport"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.QueueCapacity != transport.DefaultQueueCapacity {
		t.Fatalf("queue capacity = %d", cfg.QueueCapacity)
	}
	if cfg.BackpressurePolicy != "reject" {
		t.Fatalf("policy = %q", cfg.BackpressurePolicy)
	}
}

func TestTransportOptionsMapping(t *testing.T) {
	cfg := Default()
	cfg.QueueCapacity = 42
	cfg.BackpressurePolicy = "evict-oldest"
	cfg.SendTimeoutMS = 250
	cfg.DisconnectGraceTimeoutMS = 1500
	cfg.MessageTTLMS = 60000
	cfg.Mailbox = "priority"

	opts, err := cfg.TransportOptions()
	if err != nil {
		t.Fatalf("TransportOptions: %v", err)
	}
	if opts.QueueCapacity != 42 {
		t.Errorf("queue capacity = %d", opts.QueueCapacity)
	}
	if opts.Policy.Name() != "evict-oldest" {
		t.Errorf("policy = %q", opts.Policy.Name())
	}
	if opts.SendTimeout != 250*time.Millisecond {
		t.Errorf("send timeout = %v", opts.SendTimeout)
	}
	if opts.GraceTimeout != 1500*time.Millisecond {
		t.Errorf("grace timeout = %v", opts.GraceTimeout)
	}
	if opts.MessageTTL != time.Minute {
		t.Errorf("message ttl = %v", opts.MessageTTL)
	}
	if opts.Mailbox != transport.MailboxPriority {
		t.Errorf("mailbox = %v", opts.Mailbox)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectorcomm.yaml")
	data := `
app_name: test-app
queue_capacity: 7
backpressure_policy: block
send_timeout_ms: 100
mailbox: fifo
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppName != "test-app" {
		t.Errorf("app_name = %q", cfg.AppName)
	}
	if cfg.QueueCapacity != 7 {
		t.Errorf("queue_capacity = %d", cfg.QueueCapacity)
	}
	if cfg.BackpressurePolicy != "block" {
		t.Errorf("backpressure_policy = %q", cfg.BackpressurePolicy)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	// untouched keys keep their defaults
	if cfg.DisconnectGraceTimeoutMS != 5000 {
		t.Errorf("disconnect_grace_timeout_ms = %d", cfg.DisconnectGraceTimeoutMS)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for explicit missing file, got %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad policy", "backpressure_policy: drop-newest\n"},
		{"bad mailbox", "mailbox: lifo\n"},
		{"zero capacity", "queue_capacity: 0\n"},
		{"bad log level", "log:\n  level: verbose\n"},
		{"negative timeout", "send_timeout_ms: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vectorcomm.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %q", tc.yaml)
			}
		})
	}
}
