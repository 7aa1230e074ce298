package bot

import (
	"fmt"

	"predbot/events"
	"predbot/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token                  string
	GuildID                string
	AnnouncementsChannelID string
	ResolverDiscordIDs     []int64
	MaxOptions             int
	TeamEmojisJSON         string
}

type Bot struct {
	config            Config
	session           *discordgo.Session
	predictionService service.PredictionService
	votingService     service.VotingService
	resolutionService service.ResolutionService
	statsService      service.StatsService
	eventBus          *events.Bus
	teamEmojis        *TeamEmojis
}

func New(config Config, predictionService service.PredictionService, votingService service.VotingService, resolutionService service.ResolutionService, statsService service.StatsService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAllWithoutPrivileged

	teamEmojis, err := ParseTeamEmojis(config.TeamEmojisJSON)
	if err != nil {
		return nil, fmt.Errorf("error parsing team emojis: %w", err)
	}

	bot := &Bot{
		config:            config,
		session:           dg,
		predictionService: predictionService,
		votingService:     votingService,
		resolutionService: resolutionService,
		statsService:      statsService,
		eventBus:          eventBus,
		teamEmojis:        teamEmojis,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Register component interaction handlers
	dg.AddHandler(bot.handleVoteInteraction)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// Expired closes, resolutions and undos announce themselves through the
	// event bus after their transactions commit
	bot.subscribeEvents()

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "prediction":
		b.handlePredictionCommand(s, i)
	}
}
