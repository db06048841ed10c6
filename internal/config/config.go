// Package config handles configuration file loading, validation and saving.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/soundboard/internal/model"
)

// Default configuration values.
const (
	CurrentVersion      = 1
	DefaultVolume       = 100
	DefaultFileVolume   = 100
	DefaultSampleRate   = 48000
	DefaultChunkSamples = 1600
	DefaultHoldPoll     = 100 * time.Millisecond
	DefaultAutoStop     = time.Second
	DefaultSinkCommand  = "pacat"
	MaxSinkVolume       = 200
	MaxFileVolume       = 100
)

// DefaultSinkArgs are passed to the sink command. {rate} and {channels} are
// substituted at spawn time.
var DefaultSinkArgs = []string{
	"--playback", "--raw",
	"--format=float32le",
	"--rate={rate}",
	"--channels={channels}",
	"--client-name=soundboard",
}

// Trigger strategies for file hotkeys.
const (
	TriggerLevel = "level"
	TriggerEdge  = "edge"
)

// Config is the persisted soundboard configuration.
type Config struct {
	Version    int                   `toml:"version" yaml:"version"`
	Playlist   bool                  `toml:"playlist" yaml:"playlist"`
	Volume     int                   `toml:"volume" yaml:"volume" validate:"gte=0,lte=200"` // Global sink volume, percent
	Tabs       []string              `toml:"tabs" yaml:"tabs"`
	StopHotkey []string              `toml:"stop_hotkey,omitempty" yaml:"stop_hotkey,omitempty"`
	Sink       SinkConfig            `toml:"sink" yaml:"sink"`
	Mixer      MixerConfig           `toml:"mixer" yaml:"mixer"`
	Dialog     DialogConfig          `toml:"dialog" yaml:"dialog"`
	Hotkeys    HotkeyConfig          `toml:"hotkeys" yaml:"hotkeys"`
	Files      map[string]FileConfig `toml:"files,omitempty" yaml:"files,omitempty" validate:"dive"`
	Waveforms  []model.Waveform      `toml:"waveforms,omitempty" yaml:"waveforms,omitempty" validate:"dive"`
	Dialogs    []model.Dialog        `toml:"dialogs,omitempty" yaml:"dialogs,omitempty" validate:"dive"`
}

// SinkConfig describes the external process that renders PCM audio.
type SinkConfig struct {
	Command string   `toml:"command" yaml:"command" validate:"required"`
	Args    []string `toml:"args" yaml:"args"`
}

// MixerConfig holds the waveform mixer timing.
type MixerConfig struct {
	SampleRate   int      `toml:"sample_rate" yaml:"sample_rate" validate:"gte=8000,lte=192000"`
	ChunkSamples int      `toml:"chunk_samples" yaml:"chunk_samples" validate:"gte=64,lte=48000"`
	HoldPoll     Duration `toml:"hold_poll" yaml:"hold_poll" validate:"gt=0"`
}

// DialogConfig holds dialog sequencer settings.
type DialogConfig struct {
	AutoStop Duration `toml:"auto_stop" yaml:"auto_stop" validate:"gt=0"`
}

// HotkeyConfig holds global hotkey listener settings.
type HotkeyConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Devices []string `toml:"devices,omitempty" yaml:"devices,omitempty"` // Empty = autodetect keyboards
	Trigger string   `toml:"trigger" yaml:"trigger" validate:"oneof=level edge"`
}

// FileConfig holds per-file overrides.
type FileConfig struct {
	Volume *int     `toml:"volume,omitempty" yaml:"volume,omitempty" validate:"omitempty,gte=0,lte=100"`
	Hotkey []string `toml:"hotkey,omitempty" yaml:"hotkey,omitempty"`
	ID     *uint32  `toml:"id,omitempty" yaml:"id,omitempty"`
}

// VolumeOrDefault returns the configured volume, or 100 if unset.
func (f FileConfig) VolumeOrDefault() int {
	if f.Volume == nil {
		return DefaultFileVolume
	}
	return *f.Volume
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Volume:  DefaultVolume,
		Sink: SinkConfig{
			Command: DefaultSinkCommand,
			Args:    append([]string(nil), DefaultSinkArgs...),
		},
		Mixer: MixerConfig{
			SampleRate:   DefaultSampleRate,
			ChunkSamples: DefaultChunkSamples,
			HoldPoll:     Duration(DefaultHoldPoll),
		},
		Dialog: DialogConfig{
			AutoStop: Duration(DefaultAutoStop),
		},
		Hotkeys: HotkeyConfig{
			Enabled: true,
			Trigger: TriggerLevel,
		},
		Files: make(map[string]FileConfig),
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "soundboard", "config.toml")
}

// StatePath returns the state directory, used for the log file while the
// TUI owns the terminal.
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state.
func StatePath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "soundboard")
}

// LogPath returns the path to the log file.
func LogPath() string {
	return filepath.Join(StatePath(), "soundboard.log")
}

// SocketPath returns the control socket path.
// Uses XDG_RUNTIME_DIR if set, otherwise a per-user file in the temp dir.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "soundboard.sock")
	}
	return filepath.Join(os.TempDir(), "soundboard-"+strconv.Itoa(os.Getuid())+".sock")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if the file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.InitRuntime()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Files == nil {
		cfg.Files = make(map[string]FileConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.InitRuntime()
	return cfg, nil
}

// InitRuntime attaches fresh play state to every waveform and dialog.
// Entries are initialized in place so pointers into the slices stay valid.
func (c *Config) InitRuntime() {
	for i := range c.Waveforms {
		c.Waveforms[i].Init()
	}
	for i := range c.Dialogs {
		c.Dialogs[i].Init()
	}
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to the specified path.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// WriteFile atomically writes encoded configuration to path via a temp file.
// Creates parent directories if needed.
func WriteFile(path string, data []byte) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// SinkArgs returns the sink arguments with {rate} and {channels} expanded.
func (c *Config) SinkArgs(channels int) []string {
	r := strings.NewReplacer(
		"{rate}", strconv.Itoa(c.Mixer.SampleRate),
		"{channels}", strconv.Itoa(channels),
	)
	args := make([]string, len(c.Sink.Args))
	for i, a := range c.Sink.Args {
		args[i] = r.Replace(a)
	}
	return args
}

// FileVolume returns the configured volume for path, defaulting to 100.
func (c *Config) FileVolume(path string) int {
	return c.Files[path].VolumeOrDefault()
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
