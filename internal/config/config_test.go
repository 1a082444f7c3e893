package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConnectTimeout != 30*time.Second {
		t.Errorf("ConnectTimeout = %v, want 30s", cfg.ConnectTimeout)
	}
	if cfg.DiscoveryTTL != 5*time.Second {
		t.Errorf("DiscoveryTTL = %v, want 5s", cfg.DiscoveryTTL)
	}
	if len(cfg.ServerDirs) == 0 {
		t.Error("ServerDirs empty")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	want := DefaultConfig()
	want.ServerDirs = []string{"/opt/servers"}
	want.ConnectTimeout = 12 * time.Second
	want.DebugEvents = true
	want.HistoryLimit = 50

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ConnectTimeout != want.ConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", got.ConnectTimeout, want.ConnectTimeout)
	}
	if !got.DebugEvents {
		t.Error("DebugEvents not persisted")
	}
	if got.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want 50", got.HistoryLimit)
	}
	if len(got.ServerDirs) != 1 || got.ServerDirs[0] != "/opt/servers" {
		t.Errorf("ServerDirs = %v", got.ServerDirs)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no server dirs", func(c *Config) { c.ServerDirs = nil }, true},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }, true},
		{"negative disconnect timeout", func(c *Config) { c.DisconnectTimeout = -time.Second }, true},
		{"zero discovery ttl", func(c *Config) { c.DiscoveryTTL = 0 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSaveNilConfig(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "c.yaml"), nil); err == nil {
		t.Fatal("Save(nil) succeeded")
	}
}
