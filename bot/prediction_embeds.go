package bot

import (
	"fmt"
	"sort"

	"predbot/models"

	"github.com/bwmarrin/discordgo"
)

// Embed colors per prediction status
const (
	colorOpen     = 0xFFD700 // gold
	colorClosed   = 0xE67E22 // orange
	colorResolved = 0x9B59B6 // purple
)

// createPredictionEmbed renders a prediction with its per-option vote
// breakdown. winnerLabel is empty unless the prediction has been resolved.
func (b *Bot) createPredictionEmbed(stats *models.PredictionStats, winnerLabel string) *discordgo.MessageEmbed {
	prediction := stats.Prediction

	title := prediction.Title
	if prediction.Game != nil && *prediction.Game != "" {
		title = fmt.Sprintf("[%s] %s", *prediction.Game, prediction.Title)
	}

	description := fmt.Sprintf("**Total votes: %d**", stats.TotalVotes)
	if prediction.HasLockTime() && prediction.IsOpen() {
		description += fmt.Sprintf("\nVoting locks %s", FormatDiscordTimestamp(*prediction.LockTime, "R"))
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorOpen,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Prediction ID: %d", prediction.ID),
		},
		Timestamp: prediction.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	// Options in display order
	options := make([]*models.PredictionOption, len(stats.Options))
	copy(options, stats.Options)
	sort.Slice(options, func(i, j int) bool {
		return options[i].OptionOrder < options[j].OptionOrder
	})

	for _, option := range options {
		count := stats.Counts[option.ID]
		fieldValue := fmt.Sprintf("%d votes (%.1f%%)", count, stats.OptionPercentage(option.ID))

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s %s", getNumberEmoji(option.OptionOrder+1),
				b.teamEmojis.Decorate(option.Label)),
			Value:  fieldValue,
			Inline: true,
		})
	}

	switch prediction.Status {
	case models.PredictionStatusClosed:
		embed.Color = colorClosed
		embed.Description += "\n**VOTING CLOSED**"
	case models.PredictionStatusResolved:
		embed.Color = colorResolved
		embed.Description += "\n**RESOLVED**"
		if winnerLabel != "" {
			embed.Description += fmt.Sprintf("\nWinner: **%s**", b.teamEmojis.Decorate(winnerLabel))
		}
	}

	return embed
}

// createVoteComponents creates the vote buttons for an open prediction.
// Closed and resolved predictions get no components.
func (b *Bot) createVoteComponents(detail *models.PredictionDetail) []discordgo.MessageComponent {
	if !detail.Prediction.IsOpen() {
		return []discordgo.MessageComponent{}
	}

	options := make([]*models.PredictionOption, len(detail.Options))
	copy(options, detail.Options)
	sort.Slice(options, func(i, j int) bool {
		return options[i].OptionOrder < options[j].OptionOrder
	})

	var rows []discordgo.MessageComponent
	var currentRow []discordgo.MessageComponent

	for i, option := range options {
		button := discordgo.Button{
			Label:    truncateButtonLabel(option.Label, 80),
			Style:    discordgo.PrimaryButton,
			CustomID: buildVoteCustomID(detail.Prediction.ID, option.ID),
			Emoji: &discordgo.ComponentEmoji{
				Name: getNumberEmoji(option.OptionOrder + 1),
			},
		}

		currentRow = append(currentRow, button)

		// Max 5 buttons per row
		if len(currentRow) == 5 || i == len(options)-1 {
			rows = append(rows, discordgo.ActionsRow{
				Components: currentRow,
			})
			currentRow = []discordgo.MessageComponent{}
		}
	}

	return rows
}

// truncateButtonLabel safely truncates text to fit Discord's button label limit
func truncateButtonLabel(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}

	// Leave room for ellipsis
	truncateAt := maxLength - 3

	// Try to find a word boundary to truncate at
	for i := truncateAt; i > truncateAt-10 && i > 0; i-- {
		if text[i] == ' ' {
			return text[:i] + "..."
		}
	}

	return text[:truncateAt] + "..."
}

// getNumberEmoji returns the emoji for a number (1-10)
func getNumberEmoji(num int16) string {
	emojis := []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}
	if num >= 1 && num <= 10 {
		return emojis[num-1]
	}
	return "🔢"
}
