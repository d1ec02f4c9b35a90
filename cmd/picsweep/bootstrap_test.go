package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/picsweep/pkg/picsweep/config"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

func TestParseRotationConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    config.RotationConfig
		expected logging.RotationConfig
	}{
		{
			name: "default values",
			input: config.RotationConfig{
				MaxSize:    "10MB",
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
			expected: logging.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
		},
		{
			name: "custom size in gigabytes",
			input: config.RotationConfig{
				MaxSize:    "1G",
				MaxAge:     7,
				MaxBackups: 3,
			},
			expected: logging.RotationConfig{
				MaxSize:    1024 * 1024 * 1024,
				MaxAge:     7,
				MaxBackups: 3,
			},
		},
		{
			name:     "empty max_size uses default",
			input:    config.RotationConfig{MaxAge: 14, MaxBackups: 2, Daily: true},
			expected: logging.RotationConfig{MaxSize: 10 * 1024 * 1024, MaxAge: 14, MaxBackups: 2, Daily: true},
		},
		{
			name:     "invalid max_size uses default",
			input:    config.RotationConfig{MaxSize: "invalid", MaxAge: 21, MaxBackups: 4},
			expected: logging.RotationConfig{MaxSize: 10 * 1024 * 1024, MaxAge: 21, MaxBackups: 4},
		},
		{
			name:     "zero max_size uses default",
			input:    config.RotationConfig{MaxSize: "0"},
			expected: logging.RotationConfig{MaxSize: 10 * 1024 * 1024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseRotationConfig(tt.input)

			if result.MaxSize != tt.expected.MaxSize {
				t.Errorf("MaxSize = %d, want %d", result.MaxSize, tt.expected.MaxSize)
			}
			if result.MaxAge != tt.expected.MaxAge {
				t.Errorf("MaxAge = %d, want %d", result.MaxAge, tt.expected.MaxAge)
			}
			if result.MaxBackups != tt.expected.MaxBackups {
				t.Errorf("MaxBackups = %d, want %d", result.MaxBackups, tt.expected.MaxBackups)
			}
			if result.Daily != tt.expected.Daily {
				t.Errorf("Daily = %v, want %v", result.Daily, tt.expected.Daily)
			}
		})
	}
}

func TestLoggingConfigConsoleLevel(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "info", Path: "/tmp/x.log"}}

	t.Cleanup(func() { verbose, quiet = false, false })

	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    string
	}{
		{"default", false, false, "warn"},
		{"verbose", true, false, "debug"},
		{"quiet wins", true, true, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbose, quiet = tt.verbose, tt.quiet
			lc := loggingConfig(cfg, true)
			if lc.ConsoleLevel != tt.want {
				t.Errorf("ConsoleLevel = %q, want %q", lc.ConsoleLevel, tt.want)
			}
			if !lc.TUIMode {
				t.Error("TUIMode not passed through")
			}
			if lc.Path != "/tmp/x.log" {
				t.Errorf("Path = %q", lc.Path)
			}
		})
	}
}

func TestResolveFolder(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cwd := t.TempDir()
	t.Chdir(cwd)

	tests := []struct {
		name       string
		args       []string
		configured string
		fallback   string
		want       string
	}{
		{"argument wins", []string{"/chat/Image"}, "/configured", ".", "/chat/Image"},
		{"configured default", nil, "/configured", ".", "/configured"},
		{"fallback to cwd", nil, "", ".", cwd},
		{"nothing", nil, "", "", ""},
		{"tilde", []string{"~/Image"}, "", "", filepath.Join(home, "Image")},
		{"relative", []string{"sub"}, "", "", filepath.Join(cwd, "sub")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveFolder(tt.args, tt.configured, tt.fallback)
			if err != nil {
				t.Fatalf("resolveFolder: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveFolder = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out strings.Builder
		got, err := confirm(strings.NewReader(tt.input), &out, "Proceed? ")
		if err != nil {
			t.Fatalf("confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Proceed? " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestOpenAuditCreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.db")
	cfg := &config.Config{}
	cfg.Audit.Backend = "sqlite"
	cfg.Audit.Path = path

	store, err := openAudit(cfg)
	if err != nil {
		t.Fatalf("openAudit: %v", err)
	}
	defer store.Close()

	if err := store.AddOperation("/chat/a_720.jpg", types.ActionDelete); err != nil {
		t.Fatalf("AddOperation: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("audit database not created: %v", err)
	}
}

func TestOpenAuditUnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Audit.Backend = "etcd"

	if _, err := openAudit(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}
