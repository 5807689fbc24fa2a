package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Telegram   TelegramConfig `mapstructure:"telegram"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Server     ServerConfig   `mapstructure:"server"`
	Workers    WorkersConfig  `mapstructure:"workers"`
	ScriptFile string         `mapstructure:"script-file"`
	ResultsDir string         `mapstructure:"results-dir"`
}

type TelegramConfig struct {
	Token       string        `mapstructure:"token" validate:"required"`
	BaseURL     string        `mapstructure:"base-url" validate:"required,url"`
	AdminIDs    string        `mapstructure:"admin-ids"`
	GroupChatID string        `mapstructure:"group-chat-id"`
	PollTimeout time.Duration `mapstructure:"poll-timeout"`
	RateLimit   int           `mapstructure:"rate-limit" validate:"min=1"`
}

type StorageConfig struct {
	Driver  string        `mapstructure:"driver" validate:"oneof=memory redis postgres sqlite"`
	DSN     string        `mapstructure:"dsn" validate:"required_if=Driver postgres,required_if=Driver sqlite"`
	Timeout time.Duration `mapstructure:"timeout"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"min=1,max=65535"`
}

type WorkersConfig struct {
	Shards    int `mapstructure:"shards" validate:"min=1"`
	PoolSize  int `mapstructure:"pool-size" validate:"min=1"`
	QueueSize int `mapstructure:"queue-size" validate:"min=1"`
}

// envBindings связывает ключи конфигурации с переменными окружения
var envBindings = map[string]string{
	"telegram.token":         "BOT_TOKEN",
	"telegram.admin-ids":     "ADMIN_IDS",
	"telegram.group-chat-id": "GROUP_CHAT_ID",
	"storage.driver":         "STORAGE_DRIVER",
	"storage.dsn":            "DATABASE_URL",
	"storage.redis.addr":     "REDIS_ADDR",
	"storage.redis.password": "REDIS_PASSWORD",
	"storage.redis.db":       "REDIS_DB",
	"server.port":            "PORT",
	"script-file":            "SCRIPT_FILE",
	"results-dir":            "RESULTS_DIR",
}

// SetDefaults задает значения по умолчанию и привязку к окружению
func SetDefaults(v *viper.Viper) error {
	v.SetDefault("telegram.base-url", "https://api.telegram.org")
	v.SetDefault("telegram.poll-timeout", 30*time.Second)
	v.SetDefault("telegram.rate-limit", 20)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.timeout", 5*time.Second)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.prefix", "qualifier")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 10000)
	v.SetDefault("workers.shards", 16)
	v.SetDefault("workers.pool-size", 4)
	v.SetDefault("workers.queue-size", 256)
	v.SetDefault("results-dir", "results")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s environment variable: %w", env, err)
		}
	}

	return nil
}

// LoadAppConfig собирает конфигурацию приложения из viper
func LoadAppConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return &cfg, nil
}

// ParseAdminIDs разбирает список ID администраторов через запятую.
// Некорректные элементы пропускаются и возвращаются отдельно для логирования.
func ParseAdminIDs(raw string) (ids []int64, invalid []string) {
	seen := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			invalid = append(invalid, part)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, invalid
}
