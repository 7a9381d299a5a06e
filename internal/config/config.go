// Package config loads, defaults and validates the application configuration.
// Values come from a YAML file and can be overridden with CHATBOTS_* environment
// variables (for example CHATBOTS_TELEGRAM_TOKEN).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "CHATBOTS"

// Config holds the configuration of every component.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Bots      BotsConfig      `mapstructure:"bots"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig selects the log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the Telegram credentials. BotInfo is filled at runtime.
// The credentials are only checked by ValidateServe, so offline commands run
// without them.
type TelegramConfig struct {
	Token       string      `mapstructure:"token"         serve:"required"`
	AdminUserID int64       `mapstructure:"admin_user_id" serve:"required,gt=0"`
	BotInfo     models.User `mapstructure:"-"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path               string `mapstructure:"path"                 validate:"required"`
	MaxHistoryMessages int    `mapstructure:"max_history_messages" validate:"min=1,max=1000"`
}

// GeminiConfig configures the store description generator. An empty APIKey
// disables it.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	ModelName         string  `mapstructure:"model_name"          validate:"required_with=APIKey"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	SystemInstruction string  `mapstructure:"system_instruction"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
}

// Enabled reports whether an API key is configured.
func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

// BotsConfig locates bundled and installed bots.
type BotsConfig struct {
	BundleDir     string        `mapstructure:"bundle_dir"     validate:"required"`
	InstallDir    string        `mapstructure:"install_dir"    validate:"required"`
	Watch         bool          `mapstructure:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce" validate:"min=0"`
}

// ProcessorConfig tunes message processing. Workers 0 means GOMAXPROCS and
// Timeout 0 means no timeout.
type ProcessorConfig struct {
	Workers int           `mapstructure:"workers" validate:"min=0,max=1024"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
	Locale  string        `mapstructure:"locale"  validate:"omitempty,bcp47_language_tag"`
}

// StoreConfig describes the bot catalog.
type StoreConfig struct {
	ProductPrefix string          `mapstructure:"product_prefix" validate:"required"`
	GetLabel      string          `mapstructure:"get_label"      validate:"required"`
	Locale        string          `mapstructure:"locale"         validate:"omitempty,bcp47_language_tag"`
	Products      []ProductConfig `mapstructure:"products"       validate:"dive"`
}

// ProductConfig is a priced catalog entry for one bot.
type ProductConfig struct {
	Bot      string  `mapstructure:"bot"      validate:"required"`
	Price    float64 `mapstructure:"price"    validate:"gt=0"`
	Currency string  `mapstructure:"currency" validate:"required,iso4217"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig schedules one task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds the user-facing texts.
type MessagesConfig struct {
	WelcomeMsg           string `mapstructure:"welcome_msg"            validate:"required"`
	HelpMsg              string `mapstructure:"help_msg"               validate:"required"`
	ErrorGeneralMsg      string `mapstructure:"error_general_msg"      validate:"required"`
	ErrorUnauthorizedMsg string `mapstructure:"error_unauthorized_msg" validate:"required"`
	CatalogHeaderMsg     string `mapstructure:"catalog_header_msg"     validate:"required"`
	NoBotsMsg            string `mapstructure:"no_bots_msg"            validate:"required"`
	NoOwnedBotsMsg       string `mapstructure:"no_owned_bots_msg"      validate:"required"`
	NoSuggestionsMsg     string `mapstructure:"no_suggestions_msg"     validate:"required"`
	UnknownBotMsg        string `mapstructure:"unknown_bot_msg"        validate:"required"`
	BuyUsageMsg          string `mapstructure:"buy_usage_msg"          validate:"required"`
	BoughtMsg            string `mapstructure:"bought_msg"             validate:"required"`
	AlreadyBoughtMsg     string `mapstructure:"already_bought_msg"     validate:"required"`
	ReloadedMsg          string `mapstructure:"reloaded_msg"           validate:"required"`
	ResetDoneMsg         string `mapstructure:"reset_done_msg"         validate:"required"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)

	v.SetDefault("database.path", "chatbots.db")
	v.SetDefault("database.max_history_messages", 50)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.system_instruction", "")
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 2)

	v.SetDefault("bots.bundle_dir", "./bundle")
	v.SetDefault("bots.install_dir", "./chatbots")
	v.SetDefault("bots.watch", true)
	v.SetDefault("bots.watch_debounce", 2*time.Second)

	v.SetDefault("processor.workers", 0)
	v.SetDefault("processor.timeout", 0)
	v.SetDefault("processor.locale", "")

	v.SetDefault("store.product_prefix", "bot.")
	v.SetDefault("store.get_label", "GET")
	v.SetDefault("store.locale", "en")

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance":  map[string]any{"enabled": true, "schedule": "0 0 3 * * *"},
		"bot_descriptions": map[string]any{"enabled": true, "schedule": "0 30 * * * *"},
		"bundle_rescan":    map[string]any{"enabled": false, "schedule": "0 */10 * * * *"},
	})

	v.SetDefault("messages.welcome_msg", "Hi! I suggest replies from local chat bots. Send a few messages, then use /suggest or mention @botname.")
	v.SetDefault("messages.help_msg", "/bots - list available bots\n/buy <bot> - get a bot\n/suggest - suggest replies for recent messages")
	v.SetDefault("messages.error_general_msg", "An error occurred. Please try again later.")
	v.SetDefault("messages.error_unauthorized_msg", "You are not authorized to use this command.")
	v.SetDefault("messages.catalog_header_msg", "Available bots:")
	v.SetDefault("messages.no_bots_msg", "No bots are available right now.")
	v.SetDefault("messages.no_owned_bots_msg", "You don't have any bots yet. Use /bots to pick one.")
	v.SetDefault("messages.no_suggestions_msg", "Nothing to suggest for the recent messages.")
	v.SetDefault("messages.unknown_bot_msg", "Unknown bot. Use /bots to see the list.")
	v.SetDefault("messages.buy_usage_msg", "Usage: /buy <bot>")
	v.SetDefault("messages.bought_msg", "Done! %s is yours.")
	v.SetDefault("messages.already_bought_msg", "You already have %s.")
	v.SetDefault("messages.reloaded_msg", "Reloaded %d bots.")
	v.SetDefault("messages.reset_done_msg", "Chat history has been cleared.")
}

// ValidateServe checks the settings only the Telegram service needs, declared
// with `serve` struct tags.
func (c *Config) ValidateServe() error {
	v := validator.New()
	v.SetTagName("serve")
	if err := v.Struct(c.Telegram); err != nil {
		return fmt.Errorf("invalid configuration for serve: %w", err)
	}
	return nil
}

// LoadConfig reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Debug("Configuration loaded", "path", path, "bundle_dir", cfg.Bots.BundleDir, "db_path", cfg.Database.Path)
	return cfg, nil
}
