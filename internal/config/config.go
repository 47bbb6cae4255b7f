package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var DefaultEvents = []string{
	"Paper Presentation",
	"Poster Presentation",
	"Circuit Debugging",
	"Electronic Genius",
	"Quiz",
	"Project Presentation",
}

type Config struct {
	Port                          string        `mapstructure:"PORT"`
	DatabaseDriver                string        `mapstructure:"DATABASE_DRIVER"`
	DatabaseDSN                   string        `mapstructure:"DATABASE_DSN"`
	UploadsDir                    string        `mapstructure:"UPLOADS_DIR"`
	MaxUploadBytes                int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	UploadRetention               time.Duration `mapstructure:"UPLOAD_RETENTION"`
	UploadSweepInterval           time.Duration `mapstructure:"UPLOAD_SWEEP_INTERVAL"`
	PublicBaseURL                 string        `mapstructure:"PUBLIC_BASE_URL"`
	JWTSecret                     string        `mapstructure:"JWT_SECRET"`
	DashboardPassword             string        `mapstructure:"DASHBOARD_PASSWORD"`
	FrontendURL                   string        `mapstructure:"FRONTEND_URL"`
	EnableCORS                    bool          `mapstructure:"ENABLE_CORS"`
	CORSAllowedOrigins            []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel                      string        `mapstructure:"LOG_LEVEL"`
	Events                        []string      `mapstructure:"EVENTS"`
	DiscordClientID               string        `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string        `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string        `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string        `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string        `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	RabbitMQURL                   string        `mapstructure:"RABBITMQ_URL"`
}

// LoadConfig reads the configuration from the environment. Settings that
// carry credentials have no defaults and must be supplied.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "5000")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("UPLOADS_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 50<<20)
	v.SetDefault("UPLOAD_RETENTION", "72h")
	v.SetDefault("UPLOAD_SWEEP_INTERVAL", "1h")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173/dashboard")
	v.SetDefault("ENABLE_CORS", true)
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("EVENTS", DefaultEvents)
	v.SetDefault("DISCORD_REDIRECT_URL", "http://localhost:5000/auth/discord/callback")

	for _, key := range []string{
		"DATABASE_DSN",
		"PUBLIC_BASE_URL",
		"JWT_SECRET",
		"DASHBOARD_PASSWORD",
		"DISCORD_CLIENT_ID",
		"DISCORD_CLIENT_SECRET",
		"DISCORD_GUILD_ID",
		"DISCORD_BOT_TOKEN",
		"DISCORD_NOTIFICATIONS_CHANNEL_ID",
		"RABBITMQ_URL",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every missing mandatory setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.DashboardPassword == "" {
		errs = append(errs, errors.New("DASHBOARD_PASSWORD is required"))
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.UploadRetention <= 0 {
		errs = append(errs, errors.New("UPLOAD_RETENTION must be positive"))
	}
	if c.UploadSweepInterval <= 0 {
		errs = append(errs, errors.New("UPLOAD_SWEEP_INTERVAL must be positive"))
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	return errors.Join(errs...)
}

// DiscordLoginEnabled reports whether organizers can sign in through Discord.
func (c *Config) DiscordLoginEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != "" && c.DiscordGuildID != ""
}
