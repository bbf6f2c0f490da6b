// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Process configuration loaded from a single YAML or TOML file.

package control

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-rtc/api"
	"github.com/momentics/hioload-rtc/pool"
	"github.com/momentics/hioload-rtc/tuple"
)

// EnvConfigPath names the environment variable consulted when no --config flag is given.
const EnvConfigPath = "HIOLOAD_RTC_CONFIG"

// MaxQueueDepth is the kernel's submission queue entry limit.
const MaxQueueDepth = 32768

// Config is the full process configuration.
type Config struct {
	Workers     int               `yaml:"workers" toml:"workers"`
	PinCPUs     bool              `yaml:"pin_cpus" toml:"pin_cpus"`
	Engine      EngineConfig      `yaml:"engine" toml:"engine"`
	Listen      []ListenConfig    `yaml:"listen" toml:"listen"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" toml:"diagnostics"`
}

// EngineConfig controls the accelerated send path.
type EngineConfig struct {
	Enabled      bool `yaml:"enabled" toml:"enabled"`
	QueueDepth   int  `yaml:"queue_depth" toml:"queue_depth"`
	SingleIssuer bool `yaml:"single_issuer" toml:"single_issuer"`
}

// ListenConfig describes one socket to bind and advertise.
type ListenConfig struct {
	Protocol         string `yaml:"protocol" toml:"protocol"`
	IP               string `yaml:"ip" toml:"ip"`
	Port             uint16 `yaml:"port" toml:"port"`
	AnnouncedAddress string `yaml:"announced_address" toml:"announced_address"`
	LocalPreference  uint16 `yaml:"local_preference" toml:"local_preference"`
}

// LogConfig selects the minimum log level: trace, debug, info, warn, error or disabled.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// DiagnosticsConfig controls the periodic CBOR dump.
type DiagnosticsConfig struct {
	DumpInterval string `yaml:"dump_interval" toml:"dump_interval"`
	DumpPath     string `yaml:"dump_path" toml:"dump_path"`
}

// Default returns a single-worker configuration listening on UDP 0.0.0.0:40000.
func Default() *Config {
	return &Config{
		Workers: 1,
		Engine: EngineConfig{
			Enabled:      true,
			QueueDepth:   pool.DefaultCapacity,
			SingleIssuer: true,
		},
		Listen: []ListenConfig{{Protocol: "udp", IP: "0.0.0.0", Port: 40000, LocalPreference: 65535}},
		Log:    LogConfig{Level: "info"},
		Diagnostics: DiagnosticsConfig{
			DumpInterval: "30s",
		},
	}
}

// ResolvePath picks the flag value, then $HIOLOAD_RTC_CONFIG. Empty means defaults only.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

// LoadConfig reads path over the defaults. Files ending in .toml are decoded as
// TOML, everything else as YAML. An empty path yields validated defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		defListen := cfg.Listen
		cfg.Listen = nil
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			err = toml.Unmarshal(data, cfg)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if len(cfg.Listen) == 0 {
			cfg.Listen = defListen
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and addresses.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d: %w", c.Workers, api.ErrInvalidArgument)
	}
	if c.Engine.QueueDepth <= 0 || c.Engine.QueueDepth > MaxQueueDepth {
		return fmt.Errorf("engine.queue_depth must be in 1..%d, got %d: %w", MaxQueueDepth, c.Engine.QueueDepth, api.ErrInvalidArgument)
	}
	if len(c.Listen) == 0 {
		return fmt.Errorf("at least one listen entry is required: %w", api.ErrInvalidArgument)
	}
	for i, l := range c.Listen {
		if _, err := tuple.ParseProtocol(l.Protocol); err != nil {
			return fmt.Errorf("listen[%d]: %w", i, err)
		}
		if _, err := l.AddrPort(); err != nil {
			return fmt.Errorf("listen[%d]: %w", i, err)
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := c.Diagnostics.Interval(); err != nil {
		return err
	}
	return nil
}

// AddrPort returns the bind address.
func (l ListenConfig) AddrPort() (netip.AddrPort, error) {
	ip, err := netip.ParseAddr(l.IP)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("ip %q: %w", l.IP, api.ErrInvalidArgument)
	}
	return netip.AddrPortFrom(ip, l.Port), nil
}

// Interval parses DumpInterval. Zero disables the periodic dump.
func (d DiagnosticsConfig) Interval() (time.Duration, error) {
	if d.DumpInterval == "" {
		return 0, nil
	}
	iv, err := time.ParseDuration(d.DumpInterval)
	if err != nil || iv < 0 {
		return 0, fmt.Errorf("diagnostics.dump_interval %q: %w", d.DumpInterval, api.ErrInvalidArgument)
	}
	return iv, nil
}
