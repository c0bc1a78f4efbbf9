package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     *options
		wantErr  bool
		wantHelp bool
	}{
		{name: "no flags", args: nil, want: &options{}},
		{name: "long config", args: []string{"--config", "/etc/heatingd.yaml"}, want: &options{configPath: "/etc/heatingd.yaml"}},
		{name: "short config", args: []string{"-c", "x.yaml"}, want: &options{configPath: "x.yaml"}},
		{name: "version", args: []string{"--version"}, want: &options{showVersion: true}},
		{name: "help", args: []string{"--help"}, wantHelp: true},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: true},
		{name: "positional argument", args: []string{"serve"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := parseFlags(tt.args, &out)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseFlags(%v) error = nil", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags(%v) error = %v", tt.args, err)
			}
			if tt.wantHelp {
				if got != nil {
					t.Errorf("parseFlags(--help) = %+v, want nil", got)
				}
				if !strings.Contains(out.String(), "--config") {
					t.Errorf("help output missing --config: %s", out.String())
				}
				return
			}
			if *got != *tt.want {
				t.Errorf("parseFlags(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, &out); err != nil {
		t.Fatalf("run(--version) error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "heatingd "+version) {
		t.Errorf("version output = %q", out.String())
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(""); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want default", got)
	}

	t.Setenv("GRAYLOGIC_CONFIG", "/env/config.yaml")
	if got := getConfigPath(""); got != "/env/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env value", got)
	}
	if got := getConfigPath("/flag/config.yaml"); got != "/flag/config.yaml" {
		t.Errorf("getConfigPath(flag) = %q, want flag value", got)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, []string{"--config", "/nonexistent/path/config.yaml"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

func TestRun_InvalidCodec(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
site:
  id: test-site
database:
  path: ":memory:"
heating:
  topic_prefix: graylogic/heating
  codec: protobuf
logging:
  output: discard
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	err := run(context.Background(), []string{"-c", configPath}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "heating.codec") {
		t.Errorf("run() error = %v, want heating.codec validation error", err)
	}
}

func TestRun_MissingDatabasePath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
site:
  id: test-site
database:
  path: ""
logging:
  output: discard
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", configPath)
	t.Setenv("GRAYLOGIC_DATABASE_PATH", "")

	err := run(context.Background(), nil, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "database.path") {
		t.Errorf("run() error = %v, want database.path validation error", err)
	}
}
