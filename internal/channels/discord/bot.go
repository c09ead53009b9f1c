// Package discord delivers dose reminders over Discord DMs.
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	apperrors "github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/errors"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/notify"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/reminder"
)

// Config holds Discord bot configuration
type Config struct {
	Token   string
	Enabled bool
	UserID  string // User that receives dose reminders as DMs
}

// Bot represents a Discord bot instance
type Bot struct {
	session *discordgo.Session
	engine  *reminder.Engine
	config  Config
	logger  *zap.Logger
	enabled bool
}

// NewBot creates a new Discord bot
func NewBot(cfg Config, engine *reminder.Engine, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return &Bot{enabled: false}, nil
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		engine:  engine,
		config:  cfg,
		logger:  logger,
		enabled: true,
	}

	session.AddHandler(bot.messageCreate)
	session.AddHandler(bot.ready)

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	return bot, nil
}

// Enabled reports whether the bot is configured and active.
func (b *Bot) Enabled() bool {
	return b.enabled
}

// Start starts the Discord bot
func (b *Bot) Start() error {
	if !b.enabled {
		return nil
	}

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}

	b.logger.Info("Discord bot started",
		zap.String("username", b.session.State.User.Username),
	)

	return nil
}

// Stop stops the Discord bot
func (b *Bot) Stop() error {
	if !b.enabled {
		return nil
	}
	return b.session.Close()
}

// Name implements notify.Sender.
func (b *Bot) Name() string {
	return "discord"
}

// Send implements notify.Sender by DMing the configured user.
func (b *Bot) Send(ctx context.Context, n notify.Notification) error {
	if !b.enabled || b.config.UserID == "" {
		return apperrors.ErrChannelNotConfigured
	}

	channel, err := b.session.UserChannelCreate(b.config.UserID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	if _, err := b.session.ChannelMessageSendComplex(channel.ID, dmMessage(n)); err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}
	return nil
}

// dmMessage renders a notification as an outgoing DM. Sound disabled
// in settings maps to Discord's suppressed push alert.
func dmMessage(n notify.Notification) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{
		Content: fmt.Sprintf("**%s**\n%s", n.Title, n.Body),
	}
	if !n.Sound {
		msg.Flags = discordgo.MessageFlagsSuppressNotifications
	}
	return msg
}

// ready is called when the bot is ready
func (b *Bot) ready(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("Discord bot ready",
		zap.String("username", s.State.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)
}

// messageCreate handles incoming messages
func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore bot's own messages
	if m.Author.ID == s.State.User.ID {
		return
	}

	// Only react to the configured user's DMs
	if m.GuildID != "" {
		return
	}
	if b.config.UserID != "" && m.Author.ID != b.config.UserID {
		return
	}

	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	if strings.HasPrefix(content, "/") {
		b.handleCommand(s, m, content)
		return
	}

	s.ChannelMessageSend(m.ChannelID, "❓ Jag förstår bara kommandon. Skriv /help för en lista.")
}

// handleCommand handles bot commands
func (b *Bot) handleCommand(s *discordgo.Session, m *discordgo.MessageCreate, cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "/help", "/start":
		help := `**IVF Påminnare**

Kommandon:
• "/idag" - Dagens doser
• "/tagen <medicin> <HH:MM>" - Markera dos som tagen
• "/status" - Dag och progress
• "/ping" - Testa latens`
		s.ChannelMessageSend(m.ChannelID, help)

	case "/idag":
		view, err := b.engine.Today()
		if err != nil {
			s.ChannelMessageSend(m.ChannelID, "❌ Fel: "+err.Error())
			return
		}
		var sb strings.Builder
		if view.Day > 0 {
			sb.WriteString(fmt.Sprintf("**Dag %d av %d** (%s)\n\n", view.Day, view.TotalDays, view.Date))
		} else {
			sb.WriteString(fmt.Sprintf("**%s**\n\n", view.Date))
		}
		if len(view.Doses) == 0 {
			sb.WriteString("Inga aktiva mediciner idag.")
		}
		for _, d := range view.Doses {
			check := "▫️"
			if d.Taken {
				check = "✅"
			}
			sb.WriteString(fmt.Sprintf("%s %s %s %s kl %s\n", check, d.Icon, d.Name, d.Dose, d.Time))
		}
		s.ChannelMessageSend(m.ChannelID, sb.String())

	case "/tagen":
		if len(parts) != 3 {
			s.ChannelMessageSend(m.ChannelID, "Användning: /tagen <medicin> <HH:MM>")
			return
		}
		message, completed, err := b.engine.MarkTaken(parts[1], parts[2])
		if err != nil {
			s.ChannelMessageSend(m.ChannelID, "❌ "+err.Error())
			return
		}
		if completed {
			s.ChannelMessageSend(m.ChannelID, "✅ Tagen!\n\n**Snyggt! 💪**\n"+message)
			return
		}
		s.ChannelMessageSend(m.ChannelID, "✅ Tagen!")

	case "/status":
		view, err := b.engine.Today()
		if err != nil {
			s.ChannelMessageSend(m.ChannelID, "❌ Fel: "+err.Error())
			return
		}
		status := fmt.Sprintf("🟢 Online | Latens: %dms", s.HeartbeatLatency().Milliseconds())
		if view.Day > 0 {
			status += fmt.Sprintf("\nDag %d av %d", view.Day, view.TotalDays)
		}
		if view.Progress != nil {
			status += fmt.Sprintf("\nMot insättningsdagen: %d%% (%d dagar kvar)", view.Progress.Percent, view.Progress.DaysLeft)
		}
		s.ChannelMessageSend(m.ChannelID, status)

	case "/ping":
		start := time.Now()
		s.ChannelMessageSend(m.ChannelID, "Pong!")
		latency := time.Since(start).Milliseconds()
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Latens: %dms", latency))

	default:
		s.ChannelMessageSend(m.ChannelID, "❓ Okänt kommando. Skriv /help för en lista.")
	}
}
