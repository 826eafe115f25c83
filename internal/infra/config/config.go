// Package config provides configuration loading from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/medtimer/internal/domain/meditation"
)

// AppName names the per-user config and runtime directories.
const AppName = "medtimer"

// Config represents the daemon configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Store       StoreConfig       `yaml:"store"`
	Timer       TimerConfig       `yaml:"timer"`
	Audio       AudioConfig       `yaml:"audio"`
	Power       PowerConfig       `yaml:"power"`
	Preferences PreferencesConfig `yaml:"preferences"`
}

// ServerConfig represents the control socket configuration.
// When Addr is set the daemon listens on TCP instead of the unix socket,
// and Token, when set, must accompany every call.
type ServerConfig struct {
	Socket string      `yaml:"socket"`
	Addr   string      `yaml:"addr" validate:"omitempty,hostname_port"`
	Token  string      `yaml:"token"`
	Hooks  HooksConfig `yaml:"hooks"`
}

// HooksConfig represents shell commands run around the daemon lifetime.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// StoreConfig represents session store configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TimerConfig represents timer engine configuration.
type TimerConfig struct {
	PollIntervalMs int                 `yaml:"poll_interval_ms" default:"100" validate:"gte=10,lte=1000"`
	EventBuffer    int                 `yaml:"event_buffer" default:"64" validate:"gte=1,lte=4096"`
	Defaults       meditation.Settings `yaml:"defaults"`
}

// AudioConfig represents cue player configuration.
type AudioConfig struct {
	Backend       string         `yaml:"backend" default:"silent" validate:"oneof=speaker command silent"`
	Settings      map[string]any `yaml:"settings"`
	IntervalCue   string         `yaml:"interval_cue"`
	FinalCue      string         `yaml:"final_cue"`
	Ambience      string         `yaml:"ambience"`
	LoopOverlapMs int            `yaml:"loop_overlap_ms" default:"100" validate:"gte=0,lte=2000"`
}

// PowerConfig represents the sleep inhibitor held while a run is active.
type PowerConfig struct {
	Inhibitor      string   `yaml:"inhibitor" default:"none" validate:"oneof=none command"`
	Command        []string `yaml:"command"`
	MaxHoldMinutes int      `yaml:"max_hold_minutes" default:"240" validate:"gte=1,lte=1440"`
}

// PreferencesConfig represents where user-edited timer settings are kept.
type PreferencesConfig struct {
	Path string `yaml:"path"`
}

// DefaultInhibitCommand keeps the machine awake until the process is killed.
var DefaultInhibitCommand = []string{
	"systemd-inhibit", "--what=idle:sleep", "--who=medtimer",
	"--why=meditation in progress", "--mode=block", "sleep", "infinity",
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, errors.Wrap(err, "failed to parse config file")
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("MEDTIMER_SOCKET"); v != "" {
		c.Server.Socket = v
	}
	if v := os.Getenv("MEDTIMER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MEDTIMER_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("MEDTIMER_DB_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("MEDTIMER_AUDIO_BACKEND"); v != "" {
		c.Audio.Backend = v
	}
	if v := os.Getenv("MEDTIMER_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Timer.Defaults.Debug = b
		}
	}
}

// resolvePaths fills unset paths with per-user locations.
func (c *Config) resolvePaths() error {
	if c.Server.Socket == "" {
		c.Server.Socket = DefaultSocketPath()
	}

	if c.Store.Path != "" && c.Preferences.Path != "" {
		return nil
	}

	dir, err := UserDataDir()
	if err != nil {
		return err
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(dir, "medtimer.db")
	}
	if c.Preferences.Path == "" {
		c.Preferences.Path = filepath.Join(dir, "preferences.yaml")
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Power.Inhibitor == "command" && len(c.InhibitCommand()) == 0 {
		return errors.New("power.command must not be empty")
	}

	if strings.TrimSpace(c.Server.Socket) == "" && c.Server.Addr == "" {
		return errors.New("either server.socket or server.addr is required")
	}

	return nil
}

// PollInterval returns the engine poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timer.PollIntervalMs) * time.Millisecond
}

// LoopOverlap returns how early the next ambience iteration starts.
func (c *Config) LoopOverlap() time.Duration {
	return time.Duration(c.Audio.LoopOverlapMs) * time.Millisecond
}

// MaxHold returns the longest the inhibitor may be held.
func (c *Config) MaxHold() time.Duration {
	return time.Duration(c.Power.MaxHoldMinutes) * time.Minute
}

// InhibitCommand returns the configured inhibitor command or the default.
func (c *Config) InhibitCommand() []string {
	if len(c.Power.Command) > 0 {
		return c.Power.Command
	}
	return DefaultInhibitCommand
}

// DefaultSocketPath returns the control socket location: the user's runtime
// dir, or the shared temp dir with the uid in the name.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, AppName+".sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d.sock", AppName, os.Getuid()))
}

// UserDataDir returns the per-user directory for the database and preferences.
func UserDataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve user config dir")
	}
	return filepath.Join(dir, AppName), nil
}
