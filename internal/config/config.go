package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"imageconverter/internal/adapters/apiverve"
	"imageconverter/internal/core/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "IMAGECONVERTER"

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	APIVerve APIVerveConfig `mapstructure:"apiverve"`
	Convert  ConvertConfig  `mapstructure:"convert"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Handler  HandlerConfig  `mapstructure:"handler"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type APIVerveConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Endpoint        string        `mapstructure:"endpoint"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxPayloadBytes int64         `mapstructure:"max_payload_bytes"`
}

type ConvertConfig struct {
	Workers   int    `mapstructure:"workers"`
	OutputDir string `mapstructure:"output_dir"`
}

type TelegramConfig struct {
	BotToken       string  `mapstructure:"bot_token"`
	AllowedChatIDs []int64 `mapstructure:"allowed_chat_ids"`
	AdminUsername  string  `mapstructure:"admin_username"`
	DailyByteLimit int64   `mapstructure:"daily_byte_limit"`
}

type HandlerConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers defaults and environment overrides on the global viper instance.
func SetDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.pretty", false)
	viper.SetDefault("apiverve.api_key", "")
	viper.SetDefault("apiverve.endpoint", apiverve.DefaultEndpoint)
	viper.SetDefault("apiverve.timeout", apiverve.DefaultTimeout)
	viper.SetDefault("apiverve.max_payload_bytes", apiverve.DefaultMaxPayload)
	viper.SetDefault("convert.workers", service.DefaultWorkers)
	viper.SetDefault("convert.output_dir", "")
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.admin_username", "")
	viper.SetDefault("telegram.allowed_chat_ids", []int64{})
	viper.SetDefault("telegram.daily_byte_limit", 0)
	viper.SetDefault("handler.timeout", 2*time.Minute)

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads configFile, or config.toml from the working directory when it is empty. A missing default config
// file is not an error since every key has a default or an environment override.
func Load(configFile string) (*Config, error) {
	SetDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		log.Debug().Msg("no config file found, using defaults and environment")
	} else {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("read config file")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	return &cfg, nil
}

// SetupLogging applies the configured level and output format to the global zerolog logger.
func SetupLogging(cfg LogConfig) {
	var logLevel zerolog.Level

	switch strings.ToLower(cfg.Level) {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
