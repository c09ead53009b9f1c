package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	apperrors "github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/errors"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/notify"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/reminder"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/store"
)

// Bot is the Telegram front for the reminder engine. It answers the
// couple's commands and doubles as a notification delivery channel.
type Bot struct {
	api       *tgbotapi.BotAPI
	engine    *reminder.Engine
	store     *store.Store
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	enabled   bool
	allowList map[int64]bool // Allowed user IDs

	chatMu sync.RWMutex
	chats  map[int64]bool // Chats that get dose notifications
}

// Config holds Telegram bot configuration
type Config struct {
	Token     string
	Enabled   bool
	AllowList []int64 // List of allowed user IDs (empty = allow all)
}

// NewBot creates a new Telegram bot
func NewBot(cfg Config, engine *reminder.Engine, st *store.Store, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return &Bot{enabled: false}, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	api.Debug = false
	log.Printf("Authorized on account %s", api.Self.UserName)

	ctx, cancel := context.WithCancel(context.Background())

	allowList := make(map[int64]bool)
	chats := make(map[int64]bool)
	for _, id := range cfg.AllowList {
		allowList[id] = true
		// Direct chats share the user id, so allowlisted users get
		// notifications without having to message the bot first.
		chats[id] = true
	}

	return &Bot{
		api:       api,
		engine:    engine,
		store:     st,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		allowList: allowList,
		chats:     chats,
	}, nil
}

// Enabled reports whether the bot is configured and active.
func (b *Bot) Enabled() bool {
	return b.enabled
}

// Start starts the bot
func (b *Bot) Start() error {
	if !b.enabled {
		return nil
	}

	b.wg.Add(1)
	go b.run()

	return nil
}

// Stop stops the bot
func (b *Bot) Stop() {
	if !b.enabled {
		return
	}

	b.cancel()
	b.wg.Wait()
}

// Name implements notify.Sender.
func (b *Bot) Name() string {
	return "telegram"
}

// Send implements notify.Sender by messaging every known chat.
func (b *Bot) Send(ctx context.Context, n notify.Notification) error {
	if !b.enabled {
		return apperrors.ErrChannelNotConfigured
	}

	b.chatMu.RLock()
	chats := make([]int64, 0, len(b.chats))
	for id := range b.chats {
		chats = append(chats, id)
	}
	b.chatMu.RUnlock()

	if len(chats) == 0 {
		return apperrors.ErrChannelNotConfigured
	}

	var lastErr error
	for _, chatID := range chats {
		// Sound disabled in settings means the message still arrives,
		// just without the push alert.
		msg := newMessage(chatID, fmt.Sprintf("*%s*\n%s", n.Title, n.Body), !n.Sound)
		if _, err := b.send(msg); err != nil {
			lastErr = err
			b.logger.Warn("Failed to deliver notification", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	return lastErr
}

func (b *Bot) run() {
	defer b.wg.Done()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := b.handleUpdate(update); err != nil {
				b.logger.Error("Failed to handle update", zap.Error(err))
			}
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	userID := msg.From.ID

	// Check allowlist
	if len(b.allowList) > 0 && !b.allowList[userID] {
		b.sendMessage(msg.Chat.ID, "⛔ Du har inte behörighet att använda den här botten.")
		return nil
	}

	b.chatMu.Lock()
	b.chats[msg.Chat.ID] = true
	b.chatMu.Unlock()

	if msg.IsCommand() {
		return b.handleCommand(msg)
	}

	if msg.Text != "" {
		_, err := b.sendMessage(msg.Chat.ID, "❓ Jag förstår bara kommandon. Skriv /help för en lista.")
		return err
	}

	return nil
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		_, err := b.sendMessage(chatID, `💊 *IVF Påminnare*

Hej! Jag hjälper er att komma ihåg rätt mediciner vid rätt tid.

/idag - Dagens doser
/tagen - Markera en dos som tagen
/schemalagg - Schemalägg dagens påminnelser
/rensa - Avboka alla påminnelser
/status - Dag och progress
/help - Visa hjälpen`)
		return err

	case "help":
		_, err := b.sendMessage(chatID, `*Kommandon:*

/idag - Visa dagens doser och vad som är taget
/tagen <medicin> <HH:MM> - Markera dos som tagen, t.ex. `+"`/tagen est 08:00`"+`
/schemalagg - Schemalägg dagens påminnelser
/rensa - Avboka alla schemalagda notiser
/status - Dag X av Y och progress mot insättningsdagen`)
		return err

	case "idag":
		return b.handleToday(chatID)

	case "tagen":
		return b.handleTaken(chatID, msg.CommandArguments())

	case "schemalagg":
		count, err := b.engine.ScheduleToday(b.ctx)
		if err != nil {
			b.logger.Warn("Scheduling finished with errors", zap.Error(err))
		}
		_, sendErr := b.sendMessage(chatID, fmt.Sprintf("✅ Klart! %d påminnelser schemalagda.", count))
		return sendErr

	case "rensa":
		count, err := b.engine.CancelAllToday()
		if err != nil {
			_, sendErr := b.sendMessage(chatID, fmt.Sprintf("❌ Fel: %v", err))
			return sendErr
		}
		_, sendErr := b.sendMessage(chatID, fmt.Sprintf("🧹 Rensat! %d notiser avbokade.", count))
		return sendErr

	case "status":
		return b.handleStatus(chatID)

	default:
		_, err := b.sendMessage(chatID, "❓ Okänt kommando. Skriv /help för en lista.")
		return err
	}
}

func (b *Bot) handleToday(chatID int64) error {
	view, err := b.engine.Today()
	if err != nil {
		_, sendErr := b.sendMessage(chatID, fmt.Sprintf("❌ Fel: %v", err))
		return sendErr
	}

	var sb strings.Builder
	if view.Day > 0 {
		sb.WriteString(fmt.Sprintf("*Dag %d av %d* (%s)\n\n", view.Day, view.TotalDays, view.Date))
	} else {
		sb.WriteString(fmt.Sprintf("*%s*\n\n", view.Date))
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

	if view.AllTaken && len(view.Doses) > 0 {
		sb.WriteString("\nAllt taget idag! 💪")
	}

	_, err = b.sendMessage(chatID, sb.String())
	return err
}

func (b *Bot) handleTaken(chatID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		_, err := b.sendMessage(chatID, "Användning: `/tagen <medicin> <HH:MM>`, t.ex. `/tagen est 08:00`")
		return err
	}

	message, completed, err := b.engine.MarkTaken(fields[0], fields[1])
	if err != nil {
		_, sendErr := b.sendMessage(chatID, fmt.Sprintf("❌ %v", err))
		return sendErr
	}

	if completed {
		_, err = b.sendMessage(chatID, fmt.Sprintf("✅ Tagen!\n\n*Snyggt! 💪*\n%s", message))
		return err
	}
	_, err = b.sendMessage(chatID, "✅ Tagen!")
	return err
}

func (b *Bot) handleStatus(chatID int64) error {
	view, err := b.engine.Today()
	if err != nil {
		_, sendErr := b.sendMessage(chatID, fmt.Sprintf("❌ Fel: %v", err))
		return sendErr
	}

	var sb strings.Builder
	sb.WriteString("✅ Påminnaren är igång!\n")
	if view.Day > 0 {
		sb.WriteString(fmt.Sprintf("Dag %d av %d\n", view.Day, view.TotalDays))
	}
	if view.Progress != nil {
		sb.WriteString(fmt.Sprintf("Mot insättningsdagen: %d%% (%d dagar kvar)\n", view.Progress.Percent, view.Progress.DaysLeft))
	}

	taken := 0
	for _, d := range view.Doses {
		if d.Taken {
			taken++
		}
	}
	sb.WriteString(fmt.Sprintf("Doser idag: %d av %d tagna", taken, len(view.Doses)))

	if armed, err := b.store.SchedulesForDate(view.Date); err == nil {
		sb.WriteString(fmt.Sprintf("\nSchemalagda påminnelser idag: %d", len(armed)))
	}

	_, err = b.sendMessage(chatID, sb.String())
	return err
}

// newMessage builds an outgoing message. Silent suppresses the client
// side push alert while still delivering the text.
func newMessage(chatID int64, text string, silent bool) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableNotification = silent
	return msg
}

func (b *Bot) sendMessage(chatID int64, text string) (int, error) {
	return b.send(newMessage(chatID, text, false))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) (int, error) {
	sent, err := b.api.Send(msg)
	if err != nil {
		// Try without markdown if it fails
		msg.ParseMode = ""
		sent, err = b.api.Send(msg)
		if err != nil {
			return 0, err
		}
	}

	return sent.MessageID, nil
}

// GetBotInfo returns bot information
func (b *Bot) GetBotInfo() map[string]interface{} {
	if !b.enabled {
		return map[string]interface{}{
			"enabled": false,
		}
	}

	return map[string]interface{}{
		"enabled":   true,
		"username":  b.api.Self.UserName,
		"firstName": b.api.Self.FirstName,
	}
}
