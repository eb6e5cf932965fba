package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("basic loading", func(t *testing.T) {
		yamlDoc := `
venues:
  novx:
    kind: rest
    base_url: https://api.novex.example/v1
    max_workers: 8
`
		path := writeTempFile(t, yamlDoc)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		v, ok := cfg.Venues["novx"]
		if !ok {
			t.Fatalf("expected venue novx to be present")
		}
		if v.BaseURL != "https://api.novex.example/v1" {
			t.Errorf("BaseURL = %q, want match", v.BaseURL)
		}
		if v.MaxWorkers != 8 {
			t.Errorf("MaxWorkers = %d, want 8", v.MaxWorkers)
		}
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := Load("/nonexistent/path/config.yaml")
		if err == nil {
			t.Fatal("expected error for nonexistent file")
		}
		if !strings.Contains(err.Error(), "read config file") {
			t.Errorf("error should mention 'read config file', got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempFile(t, "venues:\n  novx: [\n")
		_, err := Load(path)
		if err == nil {
			t.Fatal("expected error for invalid YAML")
		}
		if !strings.Contains(err.Error(), "parse config yaml") {
			t.Errorf("error should mention 'parse config yaml', got %v", err)
		}
	})
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_NOVX_KEY", "secret123")

	yamlDoc := `
venues:
  novx:
    kind: rest
    base_url: https://api.novex.example/v1
    api_key: ${TEST_NOVX_KEY}
`
	path := writeTempFile(t, yamlDoc)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Venues["novx"].APIKey != "secret123" {
		t.Errorf("APIKey = %q, want secret123", cfg.Venues["novx"].APIKey)
	}
}

func TestLoadWithDefaultsNoFile(t *testing.T) {
	cfg, err := LoadWithDefaults("")
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if len(cfg.Venues) != 2 {
		t.Fatalf("expected 2 default venues, got %d", len(cfg.Venues))
	}
	if cfg.Discovery.Interval != DefaultDiscoveryInterval {
		t.Errorf("Discovery.Interval = %v, want %v", cfg.Discovery.Interval, DefaultDiscoveryInterval)
	}
	if cfg.Scheduler.TickInterval != DefaultTickInterval {
		t.Errorf("Scheduler.TickInterval = %v, want %v", cfg.Scheduler.TickInterval, DefaultTickInterval)
	}
	if cfg.Writer.FsyncRecords != DefaultFsyncRecords {
		t.Errorf("Writer.FsyncRecords = %d, want %d", cfg.Writer.FsyncRecords, DefaultFsyncRecords)
	}
	ksh := cfg.Venues[DefaultWSVenue]
	if ksh.AIMD.Ceiling != 4 {
		t.Errorf("ksh ceiling = %d, want 4 (strict venue)", ksh.AIMD.Ceiling)
	}
	novx := cfg.Venues[DefaultRestVenue]
	if novx.AIMD.Ceiling != 16 {
		t.Errorf("novx ceiling = %d, want 16 (aggressive venue)", novx.AIMD.Ceiling)
	}
}

func TestLoadWithDefaultsPreservesSetValues(t *testing.T) {
	yamlDoc := `
venues:
  novx:
    kind: rest
    base_url: https://custom.example/v1
    max_workers: 32
scheduler:
  tick_interval: 500ms
writer:
  fsync_records: 10
`
	path := writeTempFile(t, yamlDoc)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Venues["novx"].MaxWorkers != 32 {
		t.Errorf("MaxWorkers = %d, want 32", cfg.Venues["novx"].MaxWorkers)
	}
	if cfg.Scheduler.TickInterval != 500*time.Millisecond {
		t.Errorf("TickInterval = %v, want 500ms", cfg.Scheduler.TickInterval)
	}
	if cfg.Writer.FsyncRecords != 10 {
		t.Errorf("FsyncRecords = %d, want 10", cfg.Writer.FsyncRecords)
	}
	// untouched fields still get defaults
	if cfg.Writer.FsyncInterval != DefaultFsyncInterval {
		t.Errorf("FsyncInterval = %v, want default %v", cfg.Writer.FsyncInterval, DefaultFsyncInterval)
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg, err := LoadAndValidate("")
		if err != nil {
			t.Fatalf("LoadAndValidate failed: %v", err)
		}
		if len(cfg.Venues) == 0 {
			t.Fatal("expected default venues")
		}
	})

	t.Run("invalid config returns validation error", func(t *testing.T) {
		yamlDoc := `
venues:
  bogus:
    kind: not-a-kind
`
		path := writeTempFile(t, yamlDoc)
		_, err := LoadAndValidate(path)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !strings.Contains(err.Error(), "validate config") {
			t.Errorf("error should mention 'validate config', got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no venues",
			mutate:  func(c *Config) { c.Venues = nil },
			wantErr: "venues: at least one venue must be configured",
		},
		{
			name: "bad kind",
			mutate: func(c *Config) {
				c.Venues["novx"] = VenueConfig{Kind: "bogus"}
			},
			wantErr: `venues.novx.kind must be "rest" or "ws", got "bogus"`,
		},
		{
			name: "rest missing base url",
			mutate: func(c *Config) {
				v := c.Venues["novx"]
				v.BaseURL = ""
				c.Venues["novx"] = v
			},
			wantErr: "venues.novx.base_url is required for kind=rest",
		},
		{
			name:    "discovery interval zero",
			mutate:  func(c *Config) { c.Discovery.Interval = 0 },
			wantErr: "discovery.interval must be > 0",
		},
		{
			name:    "backoff cap less than base",
			mutate:  func(c *Config) { c.Backoff.Cap = c.Backoff.Base - time.Second },
			wantErr: "backoff.cap must be >= backoff.base",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithDefaults("")
			if err != nil {
				t.Fatalf("LoadWithDefaults failed: %v", err)
			}
			// limit to a single venue for deterministic error ordering
			cfg.Venues = map[string]VenueConfig{"novx": cfg.Venues["novx"]}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}
