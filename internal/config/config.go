// Package config loads the server configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Port    string `mapstructure:"port" validate:"required,numeric"`
	GinMode string `mapstructure:"gin_mode" validate:"oneof=debug release test"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json console"`
	LogFile   string `mapstructure:"log_file"`

	// DatabaseURL empty selects the in-memory store.
	DatabaseURL string `mapstructure:"database_url"`

	JWTSecret      string  `mapstructure:"jwt_secret" validate:"required,min=16"`
	AdminUsername  string  `mapstructure:"admin_username" validate:"required,min=3,max=50"`
	AdminPassword  string  `mapstructure:"admin_password" validate:"required,min=4"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"gte=1"`

	WhatsAppToken         string `mapstructure:"whatsapp_token"`
	WhatsAppPhoneNumberID string `mapstructure:"whatsapp_phone_number_id"`
	WhatsAppVerifyToken   string `mapstructure:"whatsapp_verify_token"`
	WhatsAppAppSecret     string `mapstructure:"whatsapp_app_secret"`
	WhatsAppAPIBase       string `mapstructure:"whatsapp_api_base" validate:"required,url"`
	WhatsAppAPIVersion    string `mapstructure:"whatsapp_api_version" validate:"required"`

	WhatsAppDeviceDir      string `mapstructure:"whatsapp_device_dir"`
	WhatsAppDevicesEnabled bool   `mapstructure:"whatsapp_devices_enabled"`

	AIProvider string        `mapstructure:"ai_provider" validate:"oneof=openai gemini none"`
	AIAPIKey   string        `mapstructure:"ai_api_key" validate:"required_unless=AIProvider none"`
	AIBaseURL  string        `mapstructure:"ai_base_url" validate:"omitempty,url"`
	AIModel    string        `mapstructure:"ai_model"`
	AITimeout  time.Duration `mapstructure:"ai_timeout" validate:"min=1s,max=5m"`

	TelegramBotToken    string `mapstructure:"telegram_bot_token"`
	TelegramAlertChatID int64  `mapstructure:"telegram_alert_chat_id" validate:"required_with=TelegramBotToken"`

	BroadcastDelay          time.Duration `mapstructure:"broadcast_delay" validate:"min=0"`
	ConversationIdleTimeout time.Duration `mapstructure:"conversation_idle_timeout" validate:"min=1m"`
	IdleSweepInterval       time.Duration `mapstructure:"idle_sweep_interval" validate:"min=1s"`
}

// Default values
const (
	DefaultPort               = "8080"
	DefaultGinMode            = "release"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultAdminUsername      = "admin"
	DefaultRateLimitRPS       = 10.0
	DefaultRateLimitBurst     = 20
	DefaultWhatsAppAPIBase    = "https://graph.facebook.com"
	DefaultWhatsAppAPIVersion = "v18.0"
	DefaultDeviceDir          = "devices"
	DefaultAIProvider         = "none"
	DefaultOpenAIModel        = "gpt-4o-mini"
	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultAITimeout          = 30 * time.Second
	DefaultBroadcastDelay     = time.Second
	DefaultIdleTimeout        = 24 * time.Hour
	DefaultIdleSweepInterval  = 15 * time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("gin_mode", DefaultGinMode)

	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
	v.SetDefault("log_file", "")

	v.SetDefault("database_url", "")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("admin_username", DefaultAdminUsername)
	v.SetDefault("admin_password", "")
	v.SetDefault("rate_limit_rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit_burst", DefaultRateLimitBurst)

	v.SetDefault("whatsapp_token", "")
	v.SetDefault("whatsapp_phone_number_id", "")
	v.SetDefault("whatsapp_verify_token", "")
	v.SetDefault("whatsapp_app_secret", "")
	v.SetDefault("whatsapp_api_base", DefaultWhatsAppAPIBase)
	v.SetDefault("whatsapp_api_version", DefaultWhatsAppAPIVersion)
	v.SetDefault("whatsapp_device_dir", DefaultDeviceDir)
	v.SetDefault("whatsapp_devices_enabled", false)

	v.SetDefault("ai_provider", DefaultAIProvider)
	v.SetDefault("ai_api_key", "")
	v.SetDefault("ai_base_url", "")
	v.SetDefault("ai_model", "")
	v.SetDefault("ai_timeout", DefaultAITimeout)

	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_alert_chat_id", 0)

	v.SetDefault("broadcast_delay", DefaultBroadcastDelay)
	v.SetDefault("conversation_idle_timeout", DefaultIdleTimeout)
	v.SetDefault("idle_sweep_interval", DefaultIdleSweepInterval)
}

// Load reads .env (when present) and the process environment, applies
// defaults and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: read .env: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrConfiguration, err)
	}
	if cfg.AIModel == "" {
		switch cfg.AIProvider {
		case "openai":
			cfg.AIModel = DefaultOpenAIModel
		case "gemini":
			cfg.AIModel = DefaultGeminiModel
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// CloudAPIEnabled reports whether Cloud API credentials are present.
func (c *Config) CloudAPIEnabled() bool {
	return c.WhatsAppToken != "" && c.WhatsAppPhoneNumberID != ""
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAlertChatID != 0
}
