// Package app wires the daemon together: storage, reminder engine,
// delivery channels, cron regeneration and the HTTP API.
package app

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/api"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/channels/discord"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/channels/telegram"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/cron"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/history"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/notify"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/reminder"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/store"
)

type App struct {
	Config      *config.Config
	Store       *store.Store
	History     *history.History
	Notifier    *notify.Notifier
	Engine      *reminder.Engine
	TelegramBot *telegram.Bot
	DiscordBot  *discord.Bot
	CronRunner  *cron.Runner
	Logger      *zap.Logger
	Version     string
}

// New builds the full application from configuration. The returned app
// owns the store and history handles; call Close when done.
func New(cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	st, err := store.New(cfg)
	if err != nil {
		return nil, err
	}

	hist, err := history.New(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	notifier := notify.New(logger, cfg.Notify)
	engine := reminder.NewEngine(st, notifier, logger)
	engine.AddObserver(hist.Observer())

	app := &App{
		Config:   cfg,
		Store:    st,
		History:  hist,
		Notifier: notifier,
		Engine:   engine,
		Logger:   logger,
		Version:  version,
	}

	if err := app.seedOnFirstRun(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// seedOnFirstRun persists the default settings and medicine list the
// first time the daemon starts on a machine.
func (app *App) seedOnFirstRun() error {
	onboarded, err := app.Store.HasOnboarded()
	if err != nil {
		return err
	}
	if onboarded {
		return nil
	}

	if err := app.Store.SaveSettings(store.DefaultSettings()); err != nil {
		return err
	}
	if err := app.Store.SaveMedicines(store.DefaultMedicines()); err != nil {
		return err
	}
	if err := app.Store.SetOnboarded(); err != nil {
		return err
	}

	app.Logger.Info("First run, seeded default settings and medicines")
	return nil
}

// Close releases the storage handles.
func (app *App) Close() {
	app.Notifier.CancelAll()
	if err := app.History.Close(); err != nil {
		app.Logger.Warn("Failed to close history", zap.Error(err))
	}
	if err := app.Store.Close(); err != nil {
		app.Logger.Warn("Failed to close store", zap.Error(err))
	}
}

// RunServer starts the delivery channels, the cron regenerator and the
// HTTP API, then blocks until SIGINT or SIGTERM.
func (app *App) RunServer() {
	if app.Config.Channels.Telegram.Enabled {
		telegramCfg := telegram.Config{
			Token:     app.Config.Channels.Telegram.BotToken,
			Enabled:   true,
			AllowList: app.Config.Channels.Telegram.AllowList,
		}

		bot, err := telegram.NewBot(telegramCfg, app.Engine, app.Store, app.Logger)
		if err != nil {
			app.Logger.Error("Failed to create Telegram bot", zap.Error(err))
		} else if err := bot.Start(); err != nil {
			app.Logger.Error("Failed to start Telegram bot", zap.Error(err))
		} else {
			app.TelegramBot = bot
			app.Notifier.AddSender(bot)
			app.Logger.Info("Telegram bot started")
		}
	}

	if app.Config.Channels.Discord.Enabled && app.Config.Channels.Discord.Token != "" {
		discordCfg := discord.Config{
			Token:   app.Config.Channels.Discord.Token,
			Enabled: true,
			UserID:  app.Config.Channels.Discord.UserID,
		}

		bot, err := discord.NewBot(discordCfg, app.Engine, app.Logger)
		if err != nil {
			app.Logger.Error("Failed to create Discord bot", zap.Error(err))
		} else if err := bot.Start(); err != nil {
			app.Logger.Error("Failed to start Discord bot", zap.Error(err))
		} else {
			app.DiscordBot = bot
			app.Notifier.AddSender(bot)
			app.Logger.Info("Discord bot started")
		}
	}

	spec, err := cron.SpecFor(app.Config.Cron.DailyAt)
	if err != nil {
		app.Logger.Warn("Invalid cron.daily_at, using default", zap.Error(err))
		spec = cron.DefaultSpec
	}
	app.CronRunner = cron.NewRunner(app.Engine, app.Logger).WithSpec(spec)
	if err := app.CronRunner.Start(); err != nil {
		app.Logger.Error("Failed to start cron runner", zap.Error(err))
	} else {
		app.Logger.Info("Cron runner started")
	}

	server := api.New(app.Config, app.Store, app.Engine, app.History, app.Notifier, app.Logger)

	go func() {
		if err := server.Start(); err != nil {
			app.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.Logger.Info("Server started",
		zap.String("address", app.Config.Server.Address),
		zap.Int("port", app.Config.Server.Port),
	)

	server.ScheduleOnStartup()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("Shutting down...")

	if app.TelegramBot != nil {
		app.TelegramBot.Stop()
	}

	if app.DiscordBot != nil {
		app.DiscordBot.Stop()
	}

	if app.CronRunner != nil {
		app.CronRunner.Stop()
	}

	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}
}
