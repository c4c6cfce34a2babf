package config

import (
	"fmt"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// ServerConfig represents the server configuration
type ServerConfig struct {
	Server       ServerSettings  `yaml:"server"`
	Game         GameConfig      `yaml:"game"`
	AutoStart    AutoStartConfig `yaml:"autostart"`
	Store        StoreConfig     `yaml:"store"`
	Environments []string        `yaml:"environments"`
	Roles        RolesConfig     `yaml:"roles"`
	// RolesFile is an optional YAML role catalog merged into Roles
	RolesFile string `yaml:"rolesFile"`
}

// ServerSettings contains server-wide settings
type ServerSettings struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"` // 0 for SSE support
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"` // Timeout for command requests (middleware)

	// Rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`      // requests per second
	RateLimitBurst int     `yaml:"rateLimitBurst"` // burst size

	MaxRequestSize        int64 `yaml:"maxRequestSize"`
	MaxSSEConnections     int   `yaml:"maxSSEConnections"`
	MaxParticipantsPerEnv int   `yaml:"maxParticipantsPerEnv"`

	LogLevel string `yaml:"logLevel"`
}

// GameConfig contains session timing and allocation defaults
type GameConfig struct {
	TickRate    int    `yaml:"tickRate"`
	FadeTime    int    `yaml:"fadeTime"`
	FadePause   int    `yaml:"fadePause"`
	DefaultMode string `yaml:"defaultMode"`

	KillerRatio    int `yaml:"killerRatio"`
	VigilanteRatio int `yaml:"vigilanteRatio"`
	NeutralRatio   int `yaml:"neutralRatio"`

	StartingBalance int `yaml:"startingBalance"`
	BalanceBonus    int `yaml:"balanceBonus"`

	// Play-area reset
	ResetTicks      int           `yaml:"resetTicks"`
	ResetBackoff    time.Duration `yaml:"resetBackoff"`
	ResetBackoffMax time.Duration `yaml:"resetBackoffMax"`
}

// AutoStartConfig configures the lobby countdown
type AutoStartConfig struct {
	Enabled bool   `yaml:"enabled"`
	Seconds int    `yaml:"seconds"`
	Mode    string `yaml:"mode"`
}

// StoreConfig selects where sessions are persisted. An empty path keeps them in memory.
type StoreConfig struct {
	Path             string        `yaml:"path"`
	AutosaveInterval time.Duration `yaml:"autosaveInterval"`
}

// RolesConfig disables built-in special roles and adds custom ones
type RolesConfig struct {
	Disabled []string         `yaml:"disabled"`
	Custom   []RoleDefinition `yaml:"custom"`
}

// RoleDefinition defines a single custom role
type RoleDefinition struct {
	ID              string `yaml:"id"`
	Color           string `yaml:"color"`
	Innocent        bool   `yaml:"innocent"`
	CanUseKiller    bool   `yaml:"canUseKiller"`
	Mood            string `yaml:"mood"`
	MaxSprintTicks  int    `yaml:"maxSprintTicks"`
	CanSeeTime      bool   `yaml:"canSeeTime"`
	MinParticipants int    `yaml:"minParticipants"`
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// DefaultConfig returns a default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Port:            "", // Must be set via env
			Host:            "", // Must be set via env
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0, // SSE streams stay open
			IdleTimeout:     0,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,

			RateLimit:      10,
			RateLimitBurst: 20,

			MaxRequestSize:        1048576, // 1MB
			MaxSSEConnections:     1000,
			MaxParticipantsPerEnv: 64,

			LogLevel: "info",
		},
		Game: GameConfig{
			TickRate:        20,
			FadeTime:        40,
			FadePause:       20,
			DefaultMode:     "murder",
			KillerRatio:     6,
			VigilanteRatio:  6,
			NeutralRatio:    8,
			StartingBalance: 100,
			BalanceBonus:    10,
			ResetTicks:      20,
			ResetBackoff:    time.Second,
			ResetBackoffMax: 30 * time.Second,
		},
		AutoStart: AutoStartConfig{
			Enabled: false,
			Seconds: 30,
			Mode:    "murder",
		},
		Store: StoreConfig{
			Path:             "",
			AutosaveInterval: 30 * time.Second,
		},
		Environments: []string{"main"},
	}
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	// Required fields
	if c.Server.Port == "" {
		return fmt.Errorf("PORT environment variable must be set")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HOST environment variable must be set")
	}

	if c.Game.TickRate < 1 {
		return fmt.Errorf("game.tickRate must be at least 1")
	}
	if c.Game.FadeTime < 1 || c.Game.FadePause < 0 {
		return fmt.Errorf("game.fadeTime must be positive and game.fadePause not negative")
	}
	if c.Game.KillerRatio < 1 {
		return fmt.Errorf("game.killerRatio must be at least 1")
	}
	if c.Game.VigilanteRatio < 0 || c.Game.NeutralRatio < 0 {
		return fmt.Errorf("game ratios must not be negative")
	}
	if c.AutoStart.Seconds < 0 {
		return fmt.Errorf("autostart.seconds must not be negative")
	}
	if len(c.Environments) == 0 {
		return fmt.Errorf("at least one environment must be configured")
	}
	seen := make(map[string]bool)
	for _, env := range c.Environments {
		if env == "" || seen[env] {
			return fmt.Errorf("environment ids must be unique and non-empty: %q", env)
		}
		seen[env] = true
	}

	for _, role := range c.Roles.Custom {
		if err := role.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks a custom role definition
func (r RoleDefinition) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("custom role: id is required")
	}
	if r.Color != "" && !colorPattern.MatchString(r.Color) {
		return fmt.Errorf("role %s: color must be #rrggbb", r.ID)
	}
	switch r.Mood {
	case "", "real", "fake", "none":
	default:
		return fmt.Errorf("role %s: unknown mood %q", r.ID, r.Mood)
	}
	if r.MinParticipants < 0 {
		return fmt.Errorf("role %s: minParticipants must not be negative", r.ID)
	}
	return nil
}

// MergeRoles appends another catalog's custom and disabled roles
func (r *RolesConfig) MergeRoles(other RolesConfig) {
	r.Custom = append(r.Custom, other.Custom...)
	r.Disabled = append(r.Disabled, other.Disabled...)
}

// ParseRoles decodes a standalone role catalog file
func ParseRoles(data []byte) (RolesConfig, error) {
	var roles RolesConfig
	if err := yaml.Unmarshal(data, &roles); err != nil {
		return RolesConfig{}, fmt.Errorf("parse role catalog: %w", err)
	}
	for _, role := range roles.Custom {
		if err := role.Validate(); err != nil {
			return RolesConfig{}, err
		}
	}
	return roles, nil
}
