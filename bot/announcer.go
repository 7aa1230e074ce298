package bot

import (
	"context"
	"fmt"

	"predbot/bot/common"
	"predbot/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// subscribeEvents wires Discord side effects to engine events. Everything
// here is best-effort: a failed announcement or message edit never affects
// the committed state it describes.
func (b *Bot) subscribeEvents() {
	b.eventBus.Subscribe(events.EventTypePredictionClosed, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.PredictionClosedEvent); ok {
			b.onPredictionClosed(ctx, e)
		}
	})

	b.eventBus.Subscribe(events.EventTypePredictionResolved, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.PredictionResolvedEvent); ok {
			b.onPredictionResolved(ctx, e)
		}
	})

	b.eventBus.Subscribe(events.EventTypePredictionUndone, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.PredictionUndoneEvent); ok {
			b.onPredictionUndone(ctx, e)
		}
	})
}

func (b *Bot) onPredictionClosed(ctx context.Context, e events.PredictionClosedEvent) {
	if e.AutoClosed {
		message := fmt.Sprintf("🔒 Voting has closed on **%s** (ID %d).", e.Title, e.PredictionID)
		b.announce(e.ChannelID, message)
	}

	b.disableVoteButtons(e.ChannelID, e.MessageID)
	b.refreshPredictionMessage(ctx, e.PredictionID)
}

func (b *Bot) onPredictionResolved(ctx context.Context, e events.PredictionResolvedEvent) {
	message := fmt.Sprintf("🎉 **%s** resolved — winner: **%s**. %d of %d voters earned a point.",
		e.Title, b.teamEmojis.Decorate(e.WinnerLabel), e.CorrectCount, e.TotalVotes)
	b.announce(e.ChannelID, message)

	b.markResolved(ctx, e)
}

func (b *Bot) onPredictionUndone(ctx context.Context, e events.PredictionUndoneEvent) {
	message := fmt.Sprintf("↩️ Resolution of **%s** (ID %d) was undone; points for %d users were reverted. Voting remains closed.",
		e.Title, e.PredictionID, e.AffectedUsers)
	b.announce(0, message)
}

// announce posts to the announcements channel, falling back to the
// prediction's own channel when none is configured
func (b *Bot) announce(fallbackChannelID int64, message string) {
	channelID := b.config.AnnouncementsChannelID
	if channelID == "" {
		if fallbackChannelID == 0 {
			return
		}
		channelID = formatSnowflake(fallbackChannelID)
	}

	if _, err := b.session.ChannelMessageSend(channelID, message); err != nil {
		log.Errorf("Error sending announcement to channel %s: %v", channelID, err)

		// The configured channel may be gone; try the prediction's channel
		if b.config.AnnouncementsChannelID != "" && fallbackChannelID != 0 {
			fallback := formatSnowflake(fallbackChannelID)
			if _, err := b.session.ChannelMessageSend(fallback, message); err != nil {
				log.Errorf("Error sending announcement to fallback channel %s: %v", fallback, err)
			}
		}
	}
}

// disableVoteButtons greys out the vote buttons on a prediction message
func (b *Bot) disableVoteButtons(channelID int64, messageID *int64) {
	if messageID == nil {
		return
	}

	channel := formatSnowflake(channelID)
	message := formatSnowflake(*messageID)

	msg, err := b.session.ChannelMessage(channel, message)
	if err != nil {
		log.Errorf("Error fetching prediction message %s: %v", message, err)
		return
	}
	if len(msg.Components) == 0 {
		return
	}

	disabled := common.DisableComponents(msg.Components)
	_, err = b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channel,
		ID:         message,
		Components: &disabled,
	})
	if err != nil {
		log.Errorf("Error disabling vote buttons on message %s: %v", message, err)
	}
}

// markResolved re-renders the prediction message with the winner and no
// vote buttons
func (b *Bot) markResolved(ctx context.Context, e events.PredictionResolvedEvent) {
	if e.MessageID == nil {
		return
	}

	stats, err := b.predictionService.GetPredictionStats(ctx, e.PredictionID)
	if err != nil {
		log.Errorf("Error getting stats to mark prediction %d resolved: %v", e.PredictionID, err)
		return
	}

	embed := b.createPredictionEmbed(stats, e.WinnerLabel)
	components := []discordgo.MessageComponent{}
	_, err = b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    formatSnowflake(e.ChannelID),
		ID:         formatSnowflake(*e.MessageID),
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	if err != nil {
		log.Errorf("Error marking prediction %d resolved on its message: %v", e.PredictionID, err)
	}
}
