package config

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the reminder daemon
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Cron     CronConfig     `mapstructure:"cron"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	BadgerPath string `mapstructure:"badger_path"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ChannelsConfig holds delivery channel settings
type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig holds Telegram bot settings
type TelegramConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	BotToken  string  `mapstructure:"bot_token"`
	AllowList []int64 `mapstructure:"allow_list"`
}

// DiscordConfig holds Discord bot settings
type DiscordConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	UserID  string `mapstructure:"user_id"`
}

// NotifyConfig holds delivery pacing settings
type NotifyConfig struct {
	RatePerMinute int `mapstructure:"rate_per_minute"`
	Burst         int `mapstructure:"burst"`
	BreakerTrips  int `mapstructure:"breaker_trips"`
}

// CronConfig holds daily regeneration settings
type CronConfig struct {
	DailyAt string `mapstructure:"daily_at"` // local wall clock time HH:MM
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	// Pull in .env files before anything reads the environment
	if err := LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	// Set defaults
	setDefaults(v)

	// Determine data directory
	if dataDir == "" {
		dataDir = os.Getenv("IVF_STORAGE_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.badger_path", filepath.Join(dataDir, "badger"))
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "history.db"))

	// Config file path
	if configPath == "" {
		configPath = filepath.Join(dataDir, "ivfmed.yaml")
	}

	// If config file exists, load it
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (IVF_SERVER_PORT, IVF_CHANNELS_TELEGRAM_BOT_TOKEN, etc.)
	v.SetEnvPrefix("IVF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal to struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Viper's AutomaticEnv does not reach nested struct fields reliably
	loadEnvOverrides(&cfg)

	// Validate
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	// Notify defaults
	v.SetDefault("notify.rate_per_minute", 20)
	v.SetDefault("notify.burst", 5)
	v.SetDefault("notify.breaker_trips", 5)

	// Cron defaults
	v.SetDefault("cron.daily_at", "00:05")

	// Security defaults
	v.SetDefault("security.allow_origins", []string{"*"})
}

func getDefaultDataDir() string {
	// Try XDG_DATA_HOME first
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ivfmed")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "ivfmed")
}

// loadEnvOverrides loads specific env vars that Viper misses on nested structs
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	// Server settings
	cfg.Server.Address = getEnv("IVF_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("IVF_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	// Telegram channel
	if token := ResolveEnvWithAliases("IVF_CHANNELS_TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Channels.Telegram.BotToken = token
		cfg.Channels.Telegram.Enabled = true
	}
	if ids := os.Getenv("IVF_CHANNELS_TELEGRAM_ALLOW_LIST"); ids != "" {
		var list []int64
		for _, part := range strings.Split(ids, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				list = append(list, id)
			}
		}
		if len(list) > 0 {
			cfg.Channels.Telegram.AllowList = list
		}
	}

	// Discord channel
	if token := ResolveEnvWithAliases("IVF_CHANNELS_DISCORD_TOKEN"); token != "" {
		cfg.Channels.Discord.Token = token
		cfg.Channels.Discord.Enabled = true
	}
	cfg.Channels.Discord.UserID = getEnv("IVF_CHANNELS_DISCORD_USER_ID", cfg.Channels.Discord.UserID)

	// Cron settings
	cfg.Cron.DailyAt = getEnv("IVF_CRON_DAILY_AT", cfg.Cron.DailyAt)

	// Security settings
	if secret := ResolveEnvWithAliases("IVF_SECURITY_JWT_SECRET"); secret != "" {
		cfg.Security.JWTSecret = secret
	}
	if pw := ResolveEnvWithAliases("IVF_SECURITY_ADMIN_PASSWORD"); pw != "" {
		cfg.Security.AdminPassword = pw
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.BotToken == "" {
		return fmt.Errorf("channels.telegram.bot_token is required when telegram is enabled")
	}

	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token == "" {
		return fmt.Errorf("channels.discord.token is required when discord is enabled")
	}

	if cfg.Notify.RatePerMinute <= 0 {
		cfg.Notify.RatePerMinute = 20
	}
	if cfg.Notify.Burst <= 0 {
		cfg.Notify.Burst = 5
	}

	if cfg.Cron.DailyAt == "" {
		cfg.Cron.DailyAt = "00:05"
	}
	if _, err := time.Parse("15:04", cfg.Cron.DailyAt); err != nil {
		return fmt.Errorf("cron.daily_at must be HH:MM, got %q", cfg.Cron.DailyAt)
	}

	// Generate JWT secret if not provided
	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func generateRandomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
