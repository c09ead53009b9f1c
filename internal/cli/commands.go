// Package cli implements the one-shot terminal commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/app"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
)

var Version = "dev"

// openApp loads config and the full application for a one-shot command.
func openApp() *app.App {
	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, zap.NewNop(), Version)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Is the daemon running? Stop it first or use the HTTP API.")
		os.Exit(1)
	}

	return application
}

func HandleTodayCommand() {
	application := openApp()
	defer application.Close()

	view, err := application.Engine.Today()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(RenderToday(view))
}

func HandleTakenCommand(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: ivfmed taken <medicin> <HH:MM>")
		fmt.Println("Example: ivfmed taken est 08:00")
		os.Exit(1)
	}

	application := openApp()
	defer application.Close()

	message, completed, err := application.Engine.MarkTaken(args[0], args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(successStyle.Render("✓ Tagen!"))
	if completed {
		fmt.Println()
		fmt.Println(celebrationStyle.Render("Snyggt! 💪"))
		fmt.Println(message)
	}
}

func HandleScheduleCommand() {
	application := openApp()
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := application.Engine.ScheduleToday(ctx)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	fmt.Printf("%s %d reminders scheduled\n", successStyle.Render("✓"), count)
	fmt.Println("Note: timers live in the daemon process. Run 'ivfmed serve' to keep them armed.")
}

func HandleCancelCommand() {
	application := openApp()
	defer application.Close()

	count, err := application.Engine.CancelAllToday()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s %d reminders cancelled\n", successStyle.Render("✓"), count)
}

func HandleHistoryCommand(args []string) {
	application := openApp()
	defer application.Close()

	limit := 20
	events, err := application.History.Recent(limit)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if len(events) == 0 {
		fmt.Println("No doses recorded yet.")
		return
	}

	fmt.Println(headerStyle.Render("Recent doses"))
	for _, ev := range events {
		fmt.Printf("  %s  %s %s kl %s\n", ev.Date, ev.Name, ev.DoseText, ev.Time)
	}
}

func HandleStatusCommand() {
	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(headerStyle.Render("IVF Påminnare"))
	fmt.Println()
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Data:    %s\n", cfg.Storage.DataDir)
	fmt.Println()
	fmt.Println("Server Configuration:")
	fmt.Printf("  Address: %s:%d\n", cfg.Server.Address, cfg.Server.Port)
	fmt.Printf("  URL: http://localhost:%d\n", cfg.Server.Port)
	fmt.Println()
	fmt.Println("Channels:")
	fmt.Printf("  Telegram: %s\n", channelStatus(cfg.Channels.Telegram.Enabled))
	fmt.Printf("  Discord:  %s\n", channelStatus(cfg.Channels.Discord.Enabled))
	fmt.Println()
	fmt.Println("Run 'ivfmed doctor' for diagnostics")
}

func HandleConfigCommand(args []string) {
	if len(args) == 0 {
		PrintConfigHelp()
		return
	}

	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	configPath := cfg.Storage.DataDir + "/ivfmed.yaml"

	switch args[0] {
	case "get":
		if len(args) < 2 {
			fmt.Println("Usage: ivfmed config get <key>")
			fmt.Println("Example: ivfmed config get server.port")
			os.Exit(1)
		}
		printConfigValue(cfg, args[1])

	case "edit":
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "nano"
		}
		fmt.Printf("Opening %s in %s...\n", configPath, editor)
		syscall.Exec(editor, []string{editor, configPath}, os.Environ())

	case "path":
		fmt.Println(configPath)

	case "show", "view":
		data, err := os.ReadFile(configPath)
		if err != nil {
			fmt.Printf("Error reading config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))

	default:
		PrintConfigHelp()
	}
}

func printConfigValue(cfg *config.Config, key string) {
	switch key {
	case "server.port":
		fmt.Println(cfg.Server.Port)
	case "server.address":
		fmt.Println(cfg.Server.Address)
	case "storage.data_dir":
		fmt.Println(cfg.Storage.DataDir)
	case "channels.telegram.enabled":
		fmt.Println(cfg.Channels.Telegram.Enabled)
	case "channels.discord.enabled":
		fmt.Println(cfg.Channels.Discord.Enabled)
	case "notify.rate_per_minute":
		fmt.Println(cfg.Notify.RatePerMinute)
	default:
		fmt.Printf("Unknown key: %s\n", key)
		fmt.Println("Available keys: server.port, server.address, storage.data_dir, channels.telegram.enabled, channels.discord.enabled, notify.rate_per_minute")
	}
}

func channelStatus(enabled bool) string {
	if enabled {
		return "✅ enabled"
	}
	return "❌ disabled"
}

func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func HandleChannelsCommand(args []string) {
	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Channel Status:")
	fmt.Println("===============")
	fmt.Printf("Telegram: %s\n", channelStatus(cfg.Channels.Telegram.Enabled))
	if cfg.Channels.Telegram.Enabled {
		fmt.Printf("  Bot Token: %s\n", maskToken(cfg.Channels.Telegram.BotToken))
		fmt.Printf("  Allow List: %d users\n", len(cfg.Channels.Telegram.AllowList))
	}
	fmt.Printf("Discord: %s\n", channelStatus(cfg.Channels.Discord.Enabled))
	if cfg.Channels.Discord.Enabled {
		fmt.Printf("  Token: %s\n", maskToken(cfg.Channels.Discord.Token))
	}
}

func HandleDoctorCommand() {
	fmt.Println("IVF Påminnare Diagnostics")
	fmt.Println("=========================")
	fmt.Println()

	issues := 0

	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Println("❌ Config: Error loading configuration")
		fmt.Printf("   %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Config: Loaded successfully")

	if _, err := os.Stat(cfg.Storage.DataDir); os.IsNotExist(err) {
		fmt.Println("❌ Data Directory: Does not exist")
		issues++
	} else {
		fmt.Println("✅ Data Directory: Exists")
	}

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.BotToken == "" {
		fmt.Println("❌ Telegram: Enabled but no bot token set")
		fmt.Println("   Set IVF_CHANNELS_TELEGRAM_BOT_TOKEN or edit the config")
		issues++
	} else if cfg.Channels.Telegram.Enabled {
		fmt.Println("✅ Telegram: Configured")
	}

	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token == "" {
		fmt.Println("❌ Discord: Enabled but no token set")
		issues++
	} else if cfg.Channels.Discord.Enabled {
		fmt.Println("✅ Discord: Configured")
	}

	if !cfg.Channels.Telegram.Enabled && !cfg.Channels.Discord.Enabled {
		fmt.Println("⚠️  Channels: None enabled, reminders will only reach WebSocket clients")
	}

	if _, err := exec.LookPath("curl"); err != nil {
		fmt.Println("⚠️  curl: Not found (handy for testing the API)")
	} else {
		fmt.Println("✅ curl: Found")
	}

	fmt.Println()
	if issues == 0 {
		fmt.Println("✅ All checks passed!")
	} else {
		fmt.Printf("⚠️  Found %d issue(s).\n", issues)
	}
}
