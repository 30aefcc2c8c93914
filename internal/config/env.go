package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that set the default SOCKS5 proxy.
const (
	EnvTorHost = "TORBOT_HOST"
	EnvTorPort = "TORBOT_PORT"
)

// DefaultEnvFile is the dotenv file read from the current directory.
const DefaultEnvFile = ".env"

// ProxyAddressFromEnv returns the proxy address built from TORBOT_HOST
// and TORBOT_PORT. Values in the process environment win over values in
// the dotenv file at path; unset values fall back to 127.0.0.1:9050.
// A missing dotenv file is not an error.
func ProxyAddressFromEnv(path string) (string, error) {
	values := map[string]string{}
	if path != "" {
		read, err := godotenv.Read(path)
		switch {
		case err == nil:
			values = read
		case errors.Is(err, fs.ErrNotExist):
		default:
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}

	lookup := func(key, fallback string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		if v := values[key]; v != "" {
			return v
		}
		return fallback
	}
	return net.JoinHostPort(lookup(EnvTorHost, DefaultTorHost), lookup(EnvTorPort, DefaultTorPort)), nil
}
