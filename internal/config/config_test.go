package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/bolcha/internal/endpoint"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := New("", nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RequestTimeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.RequestTimeout)
	}
	if cfg.QueueDelay != 300*time.Millisecond {
		t.Errorf("expected 300ms delay, got %v", cfg.QueueDelay)
	}
	if cfg.BackfillLimit != 50 {
		t.Errorf("expected backfill limit 50, got %d", cfg.BackfillLimit)
	}
	if cfg.DBPath != DefaultDB {
		t.Errorf("expected db %q, got %q", DefaultDB, cfg.DBPath)
	}
	if len(cfg.Endpoints) != 0 {
		t.Errorf("expected no endpoints, got %v", cfg.Endpoints)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolcha.yaml")
	writeFile(t, path, `
gasEndpoints:
  - url: https://a.example/exec
    enabled: true
  - url: https://b.example/exec
    enabled: false
  - url: https://c.example/exec
request_timeout: 0s
queue_delay: 50ms
backfill_limit: 10
validate_output: true
`)

	cfg, err := New(path, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []endpoint.Endpoint{
		{URL: "https://a.example/exec", Enabled: true},
		{URL: "https://b.example/exec", Enabled: false},
		{URL: "https://c.example/exec", Enabled: true},
	}
	if len(cfg.Endpoints) != len(want) {
		t.Fatalf("expected %d endpoints, got %v", len(want), cfg.Endpoints)
	}
	for i := range want {
		if cfg.Endpoints[i] != want[i] {
			t.Errorf("endpoint %d = %+v, want %+v", i, cfg.Endpoints[i], want[i])
		}
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("expected unbounded timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.QueueDelay != 50*time.Millisecond {
		t.Errorf("expected 50ms delay, got %v", cfg.QueueDelay)
	}
	if cfg.BackfillLimit != 10 {
		t.Errorf("expected backfill limit 10, got %d", cfg.BackfillLimit)
	}
	if !cfg.ValidateOutput {
		t.Error("expected validate_output true")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"), nil).Load()
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoad_SeedFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BOLCHA_SEED_ENDPOINTS", "https://seed1.example, https://seed2.example")
	t.Setenv("BOLCHA_REQUEST_TIMEOUT", "3s")

	cfg, err := New("", nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Endpoints) != 2 {
		t.Fatalf("expected 2 seed endpoints, got %v", cfg.Endpoints)
	}
	if cfg.Endpoints[1].URL != "https://seed2.example" || !cfg.Endpoints[1].Enabled {
		t.Errorf("unexpected seed endpoint: %+v", cfg.Endpoints[1])
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout from env, got %v", cfg.RequestTimeout)
	}
}

func TestParseEndpoints(t *testing.T) {
	seed := []string{"https://seed.example"}

	tests := []struct {
		name string
		raw  any
		want []endpoint.Endpoint
	}{
		{
			name: "nil falls back to seed",
			raw:  nil,
			want: []endpoint.Endpoint{{URL: "https://seed.example", Enabled: true}},
		},
		{
			name: "empty list falls back to seed",
			raw:  []any{},
			want: []endpoint.Endpoint{{URL: "https://seed.example", Enabled: true}},
		},
		{
			name: "legacy strings",
			raw:  []any{"https://a", " https://b "},
			want: []endpoint.Endpoint{{URL: "https://a", Enabled: true}, {URL: "https://b", Enabled: true}},
		},
		{
			name: "objects",
			raw: []any{
				map[string]any{"url": "https://a", "enabled": false},
				map[string]any{"url": "https://b"},
			},
			want: []endpoint.Endpoint{{URL: "https://a", Enabled: false}, {URL: "https://b", Enabled: true}},
		},
		{
			name: "objects with untyped keys",
			raw:  []any{map[any]any{"url": "https://a", "enabled": true}},
			want: []endpoint.Endpoint{{URL: "https://a", Enabled: true}},
		},
		{
			name: "entries without url are skipped",
			raw:  []any{map[string]any{"enabled": true}, "", 42, "https://a"},
			want: []endpoint.Endpoint{{URL: "https://a", Enabled: true}},
		},
		{
			name: "comma separated string",
			raw:  "https://a,https://b",
			want: []endpoint.Endpoint{{URL: "https://a", Enabled: true}, {URL: "https://b", Enabled: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseEndpoints(tt.raw, seed)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseEndpoints() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("endpoint %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSetEndpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolcha.yaml")
	writeFile(t, path, "backfill_limit: 7\n")

	l := New(path, nil)
	if _, err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	written, err := l.SetEndpoints([]endpoint.Endpoint{
		{URL: "https://a", Enabled: true},
		{URL: "https://b", Enabled: false},
	})
	if err != nil {
		t.Fatalf("SetEndpoints failed: %v", err)
	}
	if written != path {
		t.Errorf("expected config written to %q, got %q", path, written)
	}

	cfg, err := New(path, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Endpoints) != 2 || cfg.Endpoints[1].Enabled {
		t.Errorf("unexpected endpoints after reload: %v", cfg.Endpoints)
	}
	if cfg.BackfillLimit != 7 {
		t.Errorf("expected other settings kept, got backfill limit %d", cfg.BackfillLimit)
	}
}

func TestWatch_ReconfiguresRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bolcha.yaml")
	writeFile(t, path, "gasEndpoints:\n  - https://a\n")

	l := New(path, nil)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	reg := endpoint.NewRegistry(nil, nil)
	reg.ConfigureEndpoints(cfg.Endpoints)
	reg.ReportRoundFailure()

	changed := make(chan struct{}, 1)
	l.Watch(func(cfg *Config) {
		reg.ConfigureEndpoints(cfg.Endpoints)
		// a rewrite can surface as several events, the first on a truncated file
		if len(cfg.Endpoints) != 2 {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	writeFile(t, path, "gasEndpoints:\n  - https://b\n  - https://c\n")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}

	active := reg.Active()
	if len(active) != 2 || active[0].URL != "https://b" {
		t.Errorf("unexpected endpoints after change: %v", active)
	}
	if reg.FailStreak() != 0 {
		t.Errorf("expected fail streak reset, got %d", reg.FailStreak())
	}
}

func TestWatch_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	l := New("", nil)
	if _, err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// must not panic or block
	l.Watch(func(*Config) { t.Error("unexpected change callback") })
}
