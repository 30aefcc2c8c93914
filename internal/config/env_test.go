package config

import (
	"os"
	"path/filepath"
	"testing"
)

// These tests modify the process environment and cannot run in parallel.

func TestProxyAddressFromEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("TORBOT_HOST=10.0.0.5\nTORBOT_PORT=9150\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		file string
		host string
		port string
		want string
	}{
		{name: "defaults without file", file: filepath.Join(dir, "missing"), want: "127.0.0.1:9050"},
		{name: "no path", file: "", want: "127.0.0.1:9050"},
		{name: "dotenv file", file: envFile, want: "10.0.0.5:9150"},
		{name: "environment wins", file: envFile, host: "192.168.1.2", want: "192.168.1.2:9150"},
		{name: "port only", file: "", port: "9999", want: "127.0.0.1:9999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvTorHost, tt.host)
			t.Setenv(EnvTorPort, tt.port)

			got, err := ProxyAddressFromEnv(tt.file)
			if err != nil {
				t.Fatalf("ProxyAddressFromEnv() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ProxyAddressFromEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProxyAddressFromEnvUnreadable(t *testing.T) {
	// A directory cannot be read as a dotenv file.
	if _, err := ProxyAddressFromEnv(t.TempDir()); err == nil {
		t.Error("expected error for unreadable dotenv path")
	}
}
