// Package onboarding implements the interactive first-run setup.
package onboarding

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/store"
)

// Wizard handles the interactive setup process
type Wizard struct {
	reader    *bufio.Reader
	logger    *zap.Logger
	workspace string
	config    *WizardConfig
}

// WizardConfig holds the configuration collected during setup
type WizardConfig struct {
	StartDate      string
	TransferDate   string
	TotalDays      int
	Times          []string
	NagMinutes     int
	EnableTelegram bool
	TelegramToken  string
	AllowList      []int64
}

// NewWizard creates a new setup wizard
func NewWizard(logger *zap.Logger) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
		logger: logger,
		config: &WizardConfig{},
	}
}

// Run runs the interactive setup wizard
func (w *Wizard) Run() error {
	w.clearScreen()
	fmt.Print(SetupWizardWelcome)
	w.waitForEnter()

	if err := w.setupWorkspace(); err != nil {
		return fmt.Errorf("workspace setup failed: %w", err)
	}

	if err := w.setupTreatment(); err != nil {
		return fmt.Errorf("treatment setup failed: %w", err)
	}

	if err := w.setupReminders(); err != nil {
		return fmt.Errorf("reminder setup failed: %w", err)
	}

	if err := w.setupIntegrations(); err != nil {
		return fmt.Errorf("integrations setup failed: %w", err)
	}

	if err := w.createConfiguration(); err != nil {
		return fmt.Errorf("configuration creation failed: %w", err)
	}

	if err := w.seedStore(); err != nil {
		return fmt.Errorf("storage setup failed: %w", err)
	}

	w.showCompletion()

	return nil
}

func (w *Wizard) setupWorkspace() error {
	w.clearScreen()
	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║  Step 1: Workspace Setup                                       ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	defaultWorkspace := GetWorkspacePath()

	fmt.Printf("Where should ivfmed store its data? [default: %s]: ", defaultWorkspace)
	workspace, _ := w.reader.ReadString('\n')
	workspace = strings.TrimSpace(workspace)

	if workspace == "" {
		workspace = defaultWorkspace
	}

	w.workspace = workspace

	if err := os.MkdirAll(workspace, 0755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	fmt.Println("✓ Workspace created")
	time.Sleep(500 * time.Millisecond)

	return nil
}

func (w *Wizard) setupTreatment() error {
	w.clearScreen()
	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║  Step 2: Treatment Dates                                       ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	w.config.StartDate = w.askDate("When did the treatment start? (YYYY-MM-DD, blank to skip): ")
	w.config.TransferDate = w.askDate("When is the transfer day? (YYYY-MM-DD, blank to skip): ")

	fmt.Print("How many treatment days in total? [default: 26]: ")
	daysInput, _ := w.reader.ReadString('\n')
	daysInput = strings.TrimSpace(daysInput)
	w.config.TotalDays = 26
	if n, err := strconv.Atoi(daysInput); err == nil && n > 0 {
		w.config.TotalDays = n
	}

	fmt.Println("\n✓ Treatment configured")
	time.Sleep(500 * time.Millisecond)

	return nil
}

func (w *Wizard) askDate(prompt string) string {
	for {
		fmt.Print(prompt)
		input, _ := w.reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" || store.ValidDate(input) {
			return input
		}
		fmt.Println("❌ Invalid date, expected YYYY-MM-DD.")
	}
}

func (w *Wizard) setupReminders() error {
	w.clearScreen()
	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║  Step 3: Reminder Times                                        ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	defaults := store.DefaultSettings()

	fmt.Printf("Reminder times, comma-separated (HH:MM) [default: %s]: ", strings.Join(defaults.Times, ", "))
	timesInput, _ := w.reader.ReadString('\n')
	timesInput = strings.TrimSpace(timesInput)

	w.config.Times = defaults.Times
	if timesInput != "" {
		times := splitAndTrim(timesInput, ",")
		valid := len(times) > 0
		for _, tm := range times {
			if !store.ValidTime(tm) {
				fmt.Printf("❌ Skipping invalid time %q\n", tm)
				valid = false
			}
		}
		if valid {
			w.config.Times = times
		} else {
			fmt.Printf("Using defaults: %s\n", strings.Join(defaults.Times, ", "))
		}
	}

	fmt.Print("Minutes until the nag reminder? [default: 15]: ")
	nagInput, _ := w.reader.ReadString('\n')
	nagInput = strings.TrimSpace(nagInput)
	w.config.NagMinutes = defaults.NagMinutes
	if n, err := strconv.Atoi(nagInput); err == nil && n > 0 {
		w.config.NagMinutes = n
	}

	fmt.Println("\n✓ Reminders configured")
	time.Sleep(500 * time.Millisecond)

	return nil
}

func (w *Wizard) setupIntegrations() error {
	w.clearScreen()
	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║  Step 4: Optional Integrations                                 ║")
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("Would you like reminders delivered over Telegram?")
	fmt.Print("Enable Telegram? (y/n) [default: n]: ")
	enableTelegram, _ := w.reader.ReadString('\n')
	enableTelegram = strings.ToLower(strings.TrimSpace(enableTelegram))

	if enableTelegram == "y" || enableTelegram == "yes" {
		w.config.EnableTelegram = true
		fmt.Println()
		fmt.Println("To set up Telegram:")
		fmt.Println("1. Message @BotFather on Telegram")
		fmt.Println("2. Create a new bot with /newbot")
		fmt.Println("3. Copy the bot token")
		fmt.Println()
		fmt.Print("Enter your Telegram Bot Token: ")
		token, _ := w.reader.ReadString('\n')
		w.config.TelegramToken = strings.TrimSpace(token)

		fmt.Print("Allowed Telegram user IDs, comma-separated (blank = allow all): ")
		idsInput, _ := w.reader.ReadString('\n')
		for _, part := range splitAndTrim(strings.TrimSpace(idsInput), ",") {
			if id, err := strconv.ParseInt(part, 10, 64); err == nil {
				w.config.AllowList = append(w.config.AllowList, id)
			}
		}
	}

	fmt.Println("\n✓ Integrations configured")
	time.Sleep(500 * time.Millisecond)

	return nil
}

func (w *Wizard) createConfiguration() error {
	configPath := filepath.Join(w.workspace, "ivfmed.yaml")

	var allowList strings.Builder
	for _, id := range w.config.AllowList {
		allowList.WriteString(fmt.Sprintf("\n      - %d", id))
	}
	if allowList.Len() == 0 {
		allowList.WriteString(" []")
	}

	configContent := fmt.Sprintf(`# ivfmed configuration
# Generated on %s

server:
  address: 0.0.0.0
  port: 8080

storage:
  data_dir: "%s"

channels:
  telegram:
    enabled: %v
    bot_token: "%s"
    allow_list:%s
  discord:
    enabled: false

notify:
  rate_per_minute: 20
  burst: 5
  breaker_trips: 5

security:
  allow_origins:
    - "*"
`, time.Now().Format("2006-01-02"), w.workspace, w.config.EnableTelegram, w.config.TelegramToken, allowList.String())

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	envPath := filepath.Join(w.workspace, ".env")
	envContent := fmt.Sprintf(`# ivfmed environment variables
# Generated on %s

IVF_STORAGE_DATA_DIR=%s
`, time.Now().Format("2006-01-02"), w.workspace)

	if w.config.EnableTelegram && w.config.TelegramToken != "" {
		envContent += fmt.Sprintf("TELEGRAM_BOT_TOKEN=%s\n", w.config.TelegramToken)
	}

	if err := os.WriteFile(envPath, []byte(envContent), 0600); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}

	return nil
}

// seedStore persists the collected settings and the default medicine
// list, then marks onboarding done.
func (w *Wizard) seedStore() error {
	cfg := &config.Config{}
	cfg.Storage.DataDir = w.workspace
	cfg.Storage.BadgerPath = filepath.Join(w.workspace, "badger")
	cfg.Storage.SQLitePath = filepath.Join(w.workspace, "history.db")

	st, err := store.New(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	settings := store.DefaultSettings()
	settings.StartDate = w.config.StartDate
	settings.TransferDate = w.config.TransferDate
	settings.TotalDays = w.config.TotalDays
	settings.Times = w.config.Times
	settings.NagMinutes = w.config.NagMinutes

	if err := st.SaveSettings(settings); err != nil {
		return err
	}
	if err := st.SaveMedicines(store.DefaultMedicines()); err != nil {
		return err
	}
	return st.SetOnboarded()
}

func (w *Wizard) showCompletion() {
	w.clearScreen()

	message := SetupCompleteMessage
	message = strings.ReplaceAll(message, "{{.WorkspacePath}}", w.workspace)
	message = strings.ReplaceAll(message, "{{.ConfigPath}}", filepath.Join(w.workspace, "ivfmed.yaml"))

	fmt.Print(message)
}

func (w *Wizard) clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func (w *Wizard) waitForEnter() {
	w.reader.ReadString('\n')
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// CheckFirstRun checks if this is the first run (no config exists)
func CheckFirstRun() bool {
	configPath := filepath.Join(GetWorkspacePath(), "ivfmed.yaml")
	_, err := os.Stat(configPath)
	return os.IsNotExist(err)
}

// GetWorkspacePath returns the default workspace path
func GetWorkspacePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".ivfmed")
}
