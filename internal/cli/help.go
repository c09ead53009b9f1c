package cli

import "fmt"

func PrintExtendedHelp() {
	fmt.Println("IVF Påminnare - medication reminder daemon")
	fmt.Println()
	fmt.Println("Usage: ivfmed <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve               Run the daemon (API, bots, reminders)")
	fmt.Println("  onboard             Run the interactive setup wizard")
	fmt.Println("  today               Show today's doses and progress")
	fmt.Println("  taken <med> <HH:MM> Mark a dose as taken")
	fmt.Println("  schedule            Schedule today's reminders")
	fmt.Println("  cancel              Cancel all pending reminders")
	fmt.Println("  history             Show recently taken doses")
	fmt.Println("  status              Show configuration summary")
	fmt.Println("  channels            Show delivery channel status")
	fmt.Println("  config              Get or edit configuration")
	fmt.Println("  doctor              Run diagnostics")
	fmt.Println("  version             Print version")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  IVF_CHANNELS_TELEGRAM_BOT_TOKEN  Telegram bot token")
	fmt.Println("  IVF_CHANNELS_DISCORD_TOKEN       Discord bot token")
	fmt.Println("  IVF_STORAGE_DATA_DIR             Data directory override")
}

func PrintConfigHelp() {
	fmt.Println("Usage: ivfmed config <get|edit|path|show>")
	fmt.Println()
	fmt.Println("  get <key>   Print a config value")
	fmt.Println("  edit        Open the config file in $EDITOR")
	fmt.Println("  path        Print the config file path")
	fmt.Println("  show        Print the config file contents")
}
