package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var ErrEndpointRequired = errors.New("config: bridge endpoint is required")

// Config is the full bridgectl configuration file.
type Config struct {
	App       AppConfig       `toml:"app"`
	Admin     AdminConfig     `toml:"admin"`
	Transport TransportConfig `toml:"transport"`
	Bridges   []BridgeConfig  `toml:"bridges"`
}

type AppConfig struct {
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
}

type AdminConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// TransportConfig holds timing knobs in whole seconds; zero means the
// compiled-in default.
type TransportConfig struct {
	HandshakeTimeoutS  int `toml:"handshake_timeout_s"`
	WriteTimeoutS      int `toml:"write_timeout_s"`
	HeartbeatIntervalS int `toml:"heartbeat_interval_s"`
	PongWaitS          int `toml:"pong_wait_s"`

	Backoff BackoffConfig `toml:"backoff"`
}

type BackoffConfig struct {
	StepS    int `toml:"step_s"`
	FloorS   int `toml:"floor_s"`
	CeilingS int `toml:"ceiling_s"`
}

// BridgeConfig describes one supervised connection to a remote control
// endpoint.
type BridgeConfig struct {
	ID       string `toml:"id"`
	Endpoint string `toml:"endpoint"`
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if cfg.App.Name == "" {
		cfg.App.Name = "mcpbridge"
	}
	if cfg.Admin.Addr == "" {
		cfg.Admin.Addr = ":9320"
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the transport cannot act on. A missing or
// blank endpoint is a configuration error surfaced here, before anything is
// started, not a transport error.
func Validate(cfg Config) error {
	seen := make(map[string]struct{}, len(cfg.Bridges))
	for i, b := range cfg.Bridges {
		id := strings.TrimSpace(b.ID)
		if id == "" {
			return fmt.Errorf("bridges[%d] missing id", i)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("bridges[%d] duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
		if err := ValidateEndpoint(b.Endpoint); err != nil {
			return fmt.Errorf("bridges[%d] (%s): %w", i, id, err)
		}
	}
	return nil
}

// ValidateEndpoint checks a single bridge endpoint address.
func ValidateEndpoint(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ErrEndpointRequired
	}
	if !strings.HasPrefix(addr, "ws://") && !strings.HasPrefix(addr, "wss://") {
		return fmt.Errorf("config: endpoint %q must use ws:// or wss://", addr)
	}
	return nil
}

// DesiredEndpoints returns the bridge-id to endpoint map used by the
// registry reconcile pass.
func (c Config) DesiredEndpoints() map[string]string {
	out := make(map[string]string, len(c.Bridges))
	for _, b := range c.Bridges {
		out[strings.TrimSpace(b.ID)] = strings.TrimSpace(b.Endpoint)
	}
	return out
}
