package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRootCommandFlags(t *testing.T) {
	t.Setenv("APP_CONFIG", "/etc/jobswipe/api.yaml")

	cmd := newRootCmd()
	if got, _ := cmd.Flags().GetString("config"); got != "/etc/jobswipe/api.yaml" {
		t.Fatalf("default config = %q, want APP_CONFIG value", got)
	}
	if got, _ := cmd.Flags().GetDuration("drain-timeout"); got != 10*time.Second {
		t.Fatalf("default drain timeout = %s, want 10s", got)
	}

	if err := cmd.Flags().Parse([]string{"--addr", ":9090", "--drain-timeout", "3s"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got, _ := cmd.Flags().GetString("addr"); got != ":9090" {
		t.Fatalf("addr = %q, want :9090", got)
	}
	if got, _ := cmd.Flags().GetDuration("drain-timeout"); got != 3*time.Second {
		t.Fatalf("drain timeout = %s, want 3s", got)
	}
}

func TestServeRejectsBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http: [not, a, map"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := serve(context.Background(), serveOptions{configPath: path, drainTimeout: time.Second})
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("serve() error = %v, want config load failure", err)
	}
}
