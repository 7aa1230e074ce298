package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string

	// Channel where resolution and auto-close announcements are posted.
	// When empty, announcements fall back to the prediction's own channel.
	AnnouncementsChannelID string

	// Database configuration
	DatabaseURL string

	// Prediction settings
	AutoCloseInterval time.Duration
	MaxOptions        int

	// Resolver configuration
	ResolverDiscordIDs []int64 // Discord IDs that can resolve and undo predictions

	// Raw JSON map of team name -> emoji, applied to option labels
	TeamEmojisJSON string

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:           os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID:         os.Getenv("DISCORD_GUILD_ID"),
		AnnouncementsChannelID: os.Getenv("ANNOUNCEMENTS_CHANNEL_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Prediction settings with defaults
		AutoCloseInterval: 30 * time.Second,
		MaxOptions:        10,

		TeamEmojisJSON: os.Getenv("TEAM_EMOJIS"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if interval := os.Getenv("AUTO_CLOSE_INTERVAL_SECONDS"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil && seconds > 0 {
			config.AutoCloseInterval = time.Duration(seconds) * time.Second
		}
	}
	if maxOptions := os.Getenv("MAX_PREDICTION_OPTIONS"); maxOptions != "" {
		if parsed, err := strconv.Atoi(maxOptions); err == nil && parsed >= 2 {
			config.MaxOptions = parsed
		}
	}

	// Parse resolver Discord IDs
	if resolverIDs := os.Getenv("RESOLVER_DISCORD_IDS"); resolverIDs != "" {
		idStrings := strings.Split(resolverIDs, ",")
		for _, idStr := range idStrings {
			idStr = strings.TrimSpace(idStr)
			if idStr != "" {
				if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
					config.ResolverDiscordIDs = append(config.ResolverDiscordIDs, id)
				}
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
