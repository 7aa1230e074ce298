package cmd

import (
	"context"
	"fmt"
	"time"

	"predbot/bot"
	"predbot/config"
	"predbot/database"
	"predbot/events"
	"predbot/repository"
	"predbot/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting prediction bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	predictionService := service.NewPredictionService(uowFactory)
	votingService := service.NewVotingService(uowFactory)
	resolutionService := service.NewResolutionService(uowFactory)
	statsService := service.NewStatsService(uowFactory)
	log.Info("Services initialized successfully")

	// Initialize Discord bot
	log.Info("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:                  cfg.DiscordToken,
		GuildID:                cfg.DiscordGuildID,
		AnnouncementsChannelID: cfg.AnnouncementsChannelID,
		ResolverDiscordIDs:     cfg.ResolverDiscordIDs,
		MaxOptions:             cfg.MaxOptions,
		TeamEmojisJSON:         cfg.TeamEmojisJSON,
	}
	discordBot, err := bot.New(botConfig, predictionService, votingService, resolutionService, statsService, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized successfully")

	// Start the auto-close sweep
	worker := service.NewAutoCloseWorker(votingService, cfg.AutoCloseInterval)
	stopWorker := worker.Start(ctx)

	// Wait for context cancellation
	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down bot...")

	stopWorker()

	// Close Discord bot connection
	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Info("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
