package config

import (
	"errors"
	"io/fs"

	"github.com/spf13/viper"
)

// Config корневая конфигурация приложения. Собирается один раз при
// старте процесса и передаётся вниз явно — никаких чтений env внутри
// обработки запросов.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cards     CardsConfig
}

type AppConfig struct {
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host         string
	Port         string
	PoolSize     int
	MinIdleConns int
}

type AuthConfig struct {
	JWTSecret string // Секрет для проверки bearer-токенов (HS256, sub = владелец)
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type CardsConfig struct {
	MaxPerOwner int // Лимит карточек на одного владельца
}

// ErrMissingJWTSecret секрет обязателен: без него невозможно
// проверить владельца ни одной защищённой операции
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// .env опционален: в контейнере конфигурация приходит через окружение
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")
	cfg.Redis.PoolSize = viper.GetInt("REDIS_POOL_SIZE")
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 100
	}
	cfg.Redis.MinIdleConns = viper.GetInt("REDIS_MIN_IDLE_CONNS")
	if cfg.Redis.MinIdleConns == 0 {
		cfg.Redis.MinIdleConns = 10
	}

	cfg.Auth.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Cards.MaxPerOwner = viper.GetInt("MAX_CARDS_PER_OWNER")
	if cfg.Cards.MaxPerOwner == 0 {
		cfg.Cards.MaxPerOwner = 2
	}

	return &cfg, nil
}
