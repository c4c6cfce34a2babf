package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper
// Priority order: Environment variables > Config file > Defaults
func LoadConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()

	// Set config file details
	v.SetConfigName("server")
	v.SetConfigType("yaml")

	// Add config paths
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/trainmystery")
	}

	// Enable environment variable binding
	v.SetEnvPrefix("TRAINMYSTERY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables
	// These allow both TRAINMYSTERY_SERVER_PORT and PORT to work
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.loglevel", "LOG_LEVEL")
	v.BindEnv("server.ratelimit", "RATE_LIMIT")
	v.BindEnv("server.ratelimitburst", "RATE_LIMIT_BURST")
	v.BindEnv("server.maxrequestsize", "MAX_REQUEST_SIZE")
	v.BindEnv("server.maxsseconnections", "MAX_SSE_CONNECTIONS")
	v.BindEnv("store.path", "STORE_PATH")
	v.BindEnv("game.tickrate", "TICK_RATE")
	v.BindEnv("autostart.enabled", "AUTOSTART")
	v.BindEnv("rolesfile", "ROLES_FILE")

	setDefaults(v, DefaultConfig())

	// Try to read config file (it's optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			// Config file was found but another error occurred
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; continue with env vars and defaults
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Environment lists arrive as a comma separated string from env vars
	if len(cfg.Environments) == 1 && strings.Contains(cfg.Environments[0], ",") {
		cfg.Environments = splitList(cfg.Environments[0])
	}

	if cfg.RolesFile != "" {
		data, err := os.ReadFile(cfg.RolesFile)
		if err != nil {
			return nil, fmt.Errorf("read role catalog: %w", err)
		}
		roles, err := ParseRoles(data)
		if err != nil {
			return nil, err
		}
		cfg.Roles.MergeRoles(roles)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *ServerConfig) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.readtimeout", d.Server.ReadTimeout.String())
	v.SetDefault("server.writetimeout", d.Server.WriteTimeout.String())
	v.SetDefault("server.idletimeout", d.Server.IdleTimeout.String()) // 0 for SSE support
	v.SetDefault("server.shutdowntimeout", d.Server.ShutdownTimeout.String())
	v.SetDefault("server.requesttimeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.ratelimit", d.Server.RateLimit)
	v.SetDefault("server.ratelimitburst", d.Server.RateLimitBurst)
	v.SetDefault("server.maxrequestsize", d.Server.MaxRequestSize)
	v.SetDefault("server.maxsseconnections", d.Server.MaxSSEConnections)
	v.SetDefault("server.maxparticipantsperenv", d.Server.MaxParticipantsPerEnv)
	v.SetDefault("server.loglevel", d.Server.LogLevel)

	v.SetDefault("game.tickrate", d.Game.TickRate)
	v.SetDefault("game.fadetime", d.Game.FadeTime)
	v.SetDefault("game.fadepause", d.Game.FadePause)
	v.SetDefault("game.defaultmode", d.Game.DefaultMode)
	v.SetDefault("game.killerratio", d.Game.KillerRatio)
	v.SetDefault("game.vigilanteratio", d.Game.VigilanteRatio)
	v.SetDefault("game.neutralratio", d.Game.NeutralRatio)
	v.SetDefault("game.startingbalance", d.Game.StartingBalance)
	v.SetDefault("game.balancebonus", d.Game.BalanceBonus)
	v.SetDefault("game.resetticks", d.Game.ResetTicks)
	v.SetDefault("game.resetbackoff", d.Game.ResetBackoff.String())
	v.SetDefault("game.resetbackoffmax", d.Game.ResetBackoffMax.String())

	v.SetDefault("autostart.enabled", d.AutoStart.Enabled)
	v.SetDefault("autostart.seconds", d.AutoStart.Seconds)
	v.SetDefault("autostart.mode", d.AutoStart.Mode)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.autosaveinterval", d.Store.AutosaveInterval.String())

	v.SetDefault("environments", d.Environments)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
