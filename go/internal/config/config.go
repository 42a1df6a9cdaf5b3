// Package config loads the overlay server settings from the environment and
// an optional YAML overlay file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/buffring/go/internal/buff"
	"github.com/mcdev12/buffring/go/internal/dbconfig"
	"github.com/mcdev12/buffring/go/internal/overlay"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Port     string
	LogLevel string
	Console  bool

	NATS    NATSConfig
	Journal JournalConfig
	Overlay OverlayFile
}

// NATSConfig selects the JetStream command intake.
type NATSConfig struct {
	Enabled  bool
	URL      string
	Stream   string
	Consumer string
	Subject  string
}

// JournalConfig selects the Postgres command journal.
type JournalConfig struct {
	Enabled bool
	DB      dbconfig.Config
}

// OverlayFile is the YAML document named by OVERLAY_CONFIG.
type OverlayFile struct {
	Icons    map[string]string `yaml:"icons"`
	Fallback string            `yaml:"fallback"`
	Geometry buff.RingGeometry `yaml:"geometry"`
	Tick     time.Duration     `yaml:"tick"`
	Timing   overlay.Timing    `yaml:"animation"`
}

// DefaultOverlay is the built-in icon table, ring geometry and timing.
func DefaultOverlay() OverlayFile {
	icons := buff.DefaultIcons()
	return OverlayFile{
		Icons:    icons.Glyphs,
		Fallback: icons.Fallback,
		Geometry: buff.DefaultGeometry(),
		Tick:     time.Second,
		Timing:   overlay.DefaultTiming(),
	}
}

// Load reads the environment (callers load .env first) and the overlay file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8090"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Console:  getEnvAsBool("CONSOLE_OVERLAY", false),
		NATS: NATSConfig{
			Enabled:  getEnvAsBool("NATS_ENABLED", true),
			URL:      getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:   getEnv("BUFF_STREAM", "BUFF_COMMANDS"),
			Consumer: getEnv("BUFF_CONSUMER", "buff-overlay"),
			Subject:  getEnv("BUFF_SUBJECT", "buff.commands.>"),
		},
		Journal: JournalConfig{
			Enabled: getEnvAsBool("JOURNAL_ENABLED", false),
			DB:      dbconfig.NewConfigFromEnv(),
		},
		Overlay: DefaultOverlay(),
	}

	if path := os.Getenv("OVERLAY_CONFIG"); path != "" {
		overlayFile, err := LoadOverlay(path)
		if err != nil {
			return nil, err
		}
		cfg.Overlay = *overlayFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOverlay parses an overlay file. Keys left out keep their defaults and
// icons listed in the file are merged over the built-in table.
func LoadOverlay(path string) (*OverlayFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay config: %w", err)
	}
	return ParseOverlay(data)
}

// ParseOverlay is LoadOverlay for in-memory YAML.
func ParseOverlay(data []byte) (*OverlayFile, error) {
	defaults := DefaultOverlay()

	var parsed OverlayFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse overlay config: %w", err)
	}

	out := defaults
	for name, glyph := range parsed.Icons {
		out.Icons[name] = glyph
	}
	if parsed.Fallback != "" {
		out.Fallback = parsed.Fallback
	}
	if parsed.Geometry.Size != 0 {
		out.Geometry.Size = parsed.Geometry.Size
	}
	if parsed.Geometry.Radius != 0 {
		out.Geometry.Radius = parsed.Geometry.Radius
	}
	if parsed.Tick != 0 {
		out.Tick = parsed.Tick
	}
	if parsed.Timing.Fade != 0 {
		out.Timing.Fade = parsed.Timing.Fade
	}
	if parsed.Timing.Pulse != 0 {
		out.Timing.Pulse = parsed.Timing.Pulse
	}
	if parsed.Timing.PulseScale != 0 {
		out.Timing.PulseScale = parsed.Timing.PulseScale
	}
	return &out, nil
}

// Validate rejects settings the renderer cannot draw.
func (c *Config) Validate() error {
	g := c.Overlay.Geometry
	if g.Size <= 0 || g.Radius < 0 {
		return fmt.Errorf("invalid ring geometry: size=%v radius=%v", g.Size, g.Radius)
	}
	if 2*g.Radius > g.Size {
		return fmt.Errorf("ring radius %v too large for size %v", g.Radius, g.Size)
	}
	if c.Overlay.Tick <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.Overlay.Tick)
	}
	if c.Overlay.Timing.Fade < 0 || c.Overlay.Timing.Pulse < 0 {
		return fmt.Errorf("animation durations must not be negative")
	}
	if c.NATS.Enabled && c.NATS.Subject == "" {
		return fmt.Errorf("BUFF_SUBJECT must be set when NATS is enabled")
	}
	return nil
}

// BuffConfig returns the controller inputs.
func (c *Config) BuffConfig() buff.Config {
	return buff.Config{
		Geometry:     c.Overlay.Geometry,
		Icons:        buff.IconTable{Glyphs: c.Overlay.Icons, Fallback: c.Overlay.Fallback},
		TickInterval: c.Overlay.Tick,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
