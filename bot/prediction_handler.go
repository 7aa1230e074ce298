package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"predbot/bot/common"
	"predbot/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handlePredictionCommand dispatches /prediction subcommands
func (b *Bot) handlePredictionCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		common.RespondWithError(s, i, "Invalid command.")
		return
	}

	switch options[0].Name {
	case "create":
		b.handleCreate(s, i, options[0])
	case "stats":
		b.handleStats(s, i, options[0])
	case "resolve":
		b.handleResolve(s, i, options[0])
	case "undo":
		b.handleUndo(s, i, options[0])
	case "leaderboard":
		b.handleLeaderboard(s, i)
	case "myvotes":
		b.handleMyVotes(s, i, options[0])
	}
}

func (b *Bot) handleCreate(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	var title, optionsRaw, game string
	var lockMinutes int64
	for _, opt := range sub.Options {
		switch opt.Name {
		case "title":
			title = opt.StringValue()
		case "options":
			optionsRaw = opt.StringValue()
		case "game":
			game = opt.StringValue()
		case "lock_in_minutes":
			lockMinutes = opt.IntValue()
		}
	}

	var labels []string
	for _, label := range strings.Split(optionsRaw, ",") {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	if len(labels) < 2 {
		common.RespondWithError(s, i, "Provide at least 2 comma-separated options.")
		return
	}
	if len(labels) > b.config.MaxOptions {
		common.RespondWithError(s, i, fmt.Sprintf("A prediction can have at most %d options.", b.config.MaxOptions))
		return
	}

	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", i.GuildID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	channelID, err := parseSnowflake(i.ChannelID)
	if err != nil {
		log.Errorf("Error parsing channel ID %s: %v", i.ChannelID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	creatorID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		log.Errorf("Error parsing user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	params := service.CreatePredictionParams{
		GuildID:   guildID,
		ChannelID: channelID,
		CreatorID: creatorID,
		Title:     title,
		Options:   labels,
	}
	if game != "" {
		params.Game = &game
	}
	if lockMinutes > 0 {
		lockTime := time.Now().Add(time.Duration(lockMinutes) * time.Minute)
		params.LockTime = &lockTime
	}

	detail, err := b.predictionService.CreatePrediction(ctx, params)
	if err != nil {
		log.Errorf("Error creating prediction: %v", err)
		common.RespondWithError(s, i, "Unable to create prediction: "+err.Error())
		return
	}

	stats, err := b.predictionService.GetPredictionStats(ctx, detail.Prediction.ID)
	if err != nil {
		log.Errorf("Error getting stats for new prediction %d: %v", detail.Prediction.ID, err)
		common.RespondWithError(s, i, "Unable to display prediction. Please try again.")
		return
	}

	embed := b.createPredictionEmbed(stats, "")
	components := b.createVoteComponents(detail)
	if err := common.RespondWithEmbed(s, i, embed, components, false); err != nil {
		log.Errorf("Error responding with prediction embed: %v", err)
		return
	}

	// Record the posted message so later events can edit it
	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		log.Errorf("Error fetching prediction message for %d: %v", detail.Prediction.ID, err)
		return
	}
	messageID, err := parseSnowflake(msg.ID)
	if err != nil {
		log.Errorf("Error parsing message ID %s: %v", msg.ID, err)
		return
	}
	if err := b.predictionService.SetMessageID(ctx, detail.Prediction.ID, messageID); err != nil {
		log.Errorf("Error saving message ID for prediction %d: %v", detail.Prediction.ID, err)
	}
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	predictionID := subcommandInt(sub, "id")
	stats, err := b.predictionService.GetPredictionStats(ctx, predictionID)
	if err != nil {
		if errors.Is(err, service.ErrPredictionNotFound) {
			common.RespondWithError(s, i, "Prediction not found.")
			return
		}
		log.Errorf("Error getting stats for prediction %d: %v", predictionID, err)
		common.RespondWithError(s, i, "Unable to retrieve prediction stats. Please try again.")
		return
	}

	embed := b.createPredictionEmbed(stats, "")
	if err := common.RespondWithEmbed(s, i, embed, nil, false); err != nil {
		log.Errorf("Error responding to stats command: %v", err)
	}
}

func (b *Bot) handleResolve(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	resolverID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		log.Errorf("Error parsing user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	if !b.isResolver(resolverID) {
		common.RespondWithError(s, i, "You are not allowed to resolve predictions.")
		return
	}

	predictionID := subcommandInt(sub, "id")
	winningNumber := subcommandInt(sub, "winning_option")

	detail, err := b.predictionService.GetPredictionDetail(ctx, predictionID)
	if err != nil {
		if errors.Is(err, service.ErrPredictionNotFound) {
			common.RespondWithError(s, i, "Prediction not found.")
			return
		}
		log.Errorf("Error getting prediction %d: %v", predictionID, err)
		common.RespondWithError(s, i, "Unable to resolve prediction. Please try again.")
		return
	}

	// Users pick the option by its displayed number, not its database ID
	var winnerOptionID int64
	found := false
	for _, option := range detail.Options {
		if int64(option.OptionOrder)+1 == winningNumber {
			winnerOptionID = option.ID
			found = true
			break
		}
	}
	if !found {
		common.RespondWithError(s, i, fmt.Sprintf("Option %d does not exist on this prediction.", winningNumber))
		return
	}

	outcome, err := b.resolutionService.Resolve(ctx, predictionID, winnerOptionID, resolverID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyResolved):
			common.RespondWithError(s, i, "This prediction has already been resolved.")
		case errors.Is(err, service.ErrInvalidOption):
			common.RespondWithError(s, i, "That option does not belong to this prediction.")
		default:
			log.Errorf("Error resolving prediction %d: %v", predictionID, err)
			common.RespondWithError(s, i, "Unable to resolve prediction. Please try again.")
		}
		return
	}

	message := fmt.Sprintf("Resolved **%s** — winner: **%s**. %d of %d voters earned a point.",
		outcome.Prediction.Title, b.teamEmojis.Decorate(outcome.WinnerOption.Label),
		outcome.CorrectCount, outcome.TotalVotes)
	if err := common.RespondWithSuccess(s, i, message, false); err != nil {
		log.Errorf("Error responding to resolve command: %v", err)
	}
}

func (b *Bot) handleUndo(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	userID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		log.Errorf("Error parsing user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	if !b.isResolver(userID) {
		common.RespondWithError(s, i, "You are not allowed to undo resolutions.")
		return
	}

	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", i.GuildID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	predictionID := subcommandInt(sub, "id")
	outcome, err := b.resolutionService.Undo(ctx, predictionID, guildID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPredictionNotFound):
			common.RespondWithError(s, i, "Prediction not found.")
		case errors.Is(err, service.ErrWrongGuild):
			common.RespondWithError(s, i, "That prediction belongs to another server.")
		case errors.Is(err, service.ErrNotResolved):
			common.RespondWithError(s, i, "This prediction has not been resolved.")
		default:
			log.Errorf("Error undoing resolution of prediction %d: %v", predictionID, err)
			common.RespondWithError(s, i, "Unable to undo resolution. Please try again.")
		}
		return
	}

	message := fmt.Sprintf("Undid resolution of **%s**. Reverted points for %d users.",
		outcome.Prediction.Title, outcome.AffectedUsers)
	if err := common.RespondWithSuccess(s, i, message, false); err != nil {
		log.Errorf("Error responding to undo command: %v", err)
	}
}

func (b *Bot) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", i.GuildID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	entries, err := b.statsService.GetLeaderboard(ctx, guildID, 20)
	if err != nil {
		log.Errorf("Error getting leaderboard for guild %d: %v", guildID, err)
		common.RespondWithError(s, i, "Unable to retrieve leaderboard. Please try again.")
		return
	}

	if len(entries) == 0 {
		common.RespondWithError(s, i, "Nobody has earned prediction points yet.")
		return
	}

	var lines []string
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("**%d.** %s — %s points",
			entry.Rank, GetDisplayNameInt64(s, i.GuildID, entry.UserID), FormatPoints(entry.Total)))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Prediction Leaderboard",
		Description: strings.Join(lines, "\n"),
		Color:       colorOpen,
	}
	if err := common.RespondWithEmbed(s, i, embed, nil, false); err != nil {
		log.Errorf("Error responding to leaderboard command: %v", err)
	}
}

func (b *Bot) handleMyVotes(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	ctx := context.Background()

	guildID, err := parseSnowflake(i.GuildID)
	if err != nil {
		log.Errorf("Error parsing guild ID %s: %v", i.GuildID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	userID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		log.Errorf("Error parsing user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	var predictionID *int64
	for _, opt := range sub.Options {
		if opt.Name == "id" {
			id := opt.IntValue()
			predictionID = &id
		}
	}

	votes, err := b.predictionService.GetUserVotes(ctx, guildID, userID, predictionID)
	if err != nil {
		log.Errorf("Error getting votes for user %d: %v", userID, err)
		common.RespondWithError(s, i, "Unable to retrieve your votes. Please try again.")
		return
	}

	if len(votes) == 0 {
		common.RespondWithError(s, i, "You have no votes on unresolved predictions.")
		return
	}

	var lines []string
	for _, vote := range votes {
		lines = append(lines, fmt.Sprintf("**%s** (ID %d) — you picked **%s**",
			vote.Prediction.Title, vote.Prediction.ID, b.teamEmojis.Decorate(vote.Option.Label)))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Your votes",
		Description: strings.Join(lines, "\n"),
		Color:       colorOpen,
	}
	if err := common.RespondWithEmbed(s, i, embed, nil, true); err != nil {
		log.Errorf("Error responding to myvotes command: %v", err)
	}
}

// handleVoteInteraction handles a press on a prediction vote button
func (b *Bot) handleVoteInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	if !isVoteCustomID(customID) {
		return
	}

	ctx := context.Background()

	predictionID, optionID, err := parseVoteCustomID(customID)
	if err != nil {
		log.Errorf("Error parsing vote custom ID %s: %v", customID, err)
		common.RespondWithError(s, i, "This button is no longer valid.")
		return
	}

	userID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		log.Errorf("Error parsing user ID %s: %v", i.Member.User.ID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	_, err = b.votingService.CastVote(ctx, predictionID, userID, optionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPredictionNotFound):
			common.RespondWithError(s, i, "This prediction no longer exists.")
		case errors.Is(err, service.ErrVotingClosed):
			common.RespondWithError(s, i, "Voting has closed for this prediction.")
		case errors.Is(err, service.ErrInvalidOption):
			common.RespondWithError(s, i, "That option does not belong to this prediction.")
		default:
			log.Errorf("Error casting vote on prediction %d: %v", predictionID, err)
			common.RespondWithError(s, i, "Unable to register your vote. Please try again.")
		}
		return
	}

	detail, err := b.predictionService.GetPredictionDetail(ctx, predictionID)
	if err != nil {
		log.Errorf("Error getting prediction %d after vote: %v", predictionID, err)
		common.RespondWithError(s, i, "Your vote was registered.")
		return
	}
	option := detail.FindOption(optionID)

	label := "your pick"
	if option != nil {
		label = b.teamEmojis.Decorate(option.Label)
	}
	if err := common.RespondWithSuccess(s, i, fmt.Sprintf("You voted for **%s**.", label), true); err != nil {
		log.Errorf("Error confirming vote on prediction %d: %v", predictionID, err)
	}

	// Best-effort tally refresh on the prediction message
	b.refreshPredictionMessage(ctx, predictionID)
}

// refreshPredictionMessage re-renders the prediction's posted message with
// current tallies. Failures are logged, never surfaced.
func (b *Bot) refreshPredictionMessage(ctx context.Context, predictionID int64) {
	stats, err := b.predictionService.GetPredictionStats(ctx, predictionID)
	if err != nil {
		log.Errorf("Error getting stats to refresh prediction %d: %v", predictionID, err)
		return
	}
	if stats.Prediction.MessageID == nil {
		return
	}

	detail, err := b.predictionService.GetPredictionDetail(ctx, predictionID)
	if err != nil {
		log.Errorf("Error getting detail to refresh prediction %d: %v", predictionID, err)
		return
	}

	embed := b.createPredictionEmbed(stats, "")
	components := b.createVoteComponents(detail)
	channelID := formatSnowflake(stats.Prediction.ChannelID)
	messageID := formatSnowflake(*stats.Prediction.MessageID)

	_, err = b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	if err != nil {
		log.Errorf("Error refreshing message for prediction %d: %v", predictionID, err)
	}
}

// subcommandInt extracts an integer option from a subcommand, or 0
func subcommandInt(sub *discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	for _, opt := range sub.Options {
		if opt.Name == name {
			return opt.IntValue()
		}
	}
	return 0
}

// isResolver reports whether a user may resolve and undo predictions. An
// empty resolver list leaves resolution open to everyone.
func (b *Bot) isResolver(userID int64) bool {
	if len(b.config.ResolverDiscordIDs) == 0 {
		return true
	}
	for _, id := range b.config.ResolverDiscordIDs {
		if id == userID {
			return true
		}
	}
	return false
}
