package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/ecsnova-registration-api/internal/models"
)

// MessageSender is the part of *discordgo.Session the notifier uses.
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   MessageSender
	channelID string
}

func NewDiscordNotifier(session MessageSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) NotifyRegistration(ctx context.Context, registration models.Registration) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, FormatRegistration(registration), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}

// FormatRegistration renders the organizer channel message. It never
// includes the payment proof URL.
func FormatRegistration(registration models.Registration) string {
	return fmt.Sprintf("🎉 **New Registration**\n**Name:** %s\n**College:** %s\n**Course:** %s\n**Events:** %s\n**Transaction ID:** %s",
		registration.Name,
		registration.CollegeName,
		registration.CourseOfStudy,
		strings.Join(registration.SelectedEvents, ", "),
		registration.TransactionID,
	)
}
