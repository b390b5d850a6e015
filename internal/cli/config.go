package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Output    string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("PARTYCTL_SERVER", "http://localhost:8080"),
		Output:    getEnvOrDefault("PARTYCTL_OUTPUT", "text"),
	}
}

// Validate checks the output format and server URL
func (c *Config) Validate() error {
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("invalid output format %q (must be text or json)", c.Output)
	}
	if _, err := c.WebSocketURL(); err != nil {
		return err
	}
	return nil
}

// WebSocketURL derives the /ws endpoint from the server URL,
// mapping http to ws and https to wss
func (c *Config) WebSocketURL() (string, error) {
	u, err := url.Parse(strings.TrimSuffix(c.ServerURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", c.ServerURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server url %q (must be http or https)", c.ServerURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server url %q (missing host)", c.ServerURL)
	}

	u.Path += "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
