package config

import (
	"flag"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// База данных и сервер
	DatabaseDSN string `env:"DATABASE_URI"`
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Токены
	AuthSecret          string `env:"AUTH_SECRET"`
	TokenPepper         string `env:"TOKEN_PEPPER"`
	AccessTokenTTLMin   int    `env:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTokenTTLDays int    `env:"REFRESH_TOKEN_TTL_DAYS"`
	RefreshCookieName   string `env:"REFRESH_COOKIE_NAME"`

	// Хранилище блобов
	StorageType      string `env:"STORAGE_TYPE"` // "local" | "s3"
	LocalStoragePath string `env:"LOCAL_STORAGE_PATH"`
	MaxUploadSizeMB  int64  `env:"MAX_UPLOAD_SIZE_MB"`

	// S3
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// NewConfig собирает конфигурацию один раз при старте: .env -> env -> флаги.
// Значение неизменяемо после возврата.
func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "включить HTTPS (secure cookie)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.TokenPepper, "token-pepper", cfg.TokenPepper, "pepper для хеширования refresh-токенов")
	flag.StringVar(&cfg.StorageType, "storage", cfg.StorageType, "тип хранилища блобов: local|s3")
	flag.StringVar(&cfg.LocalStoragePath, "storage-path", cfg.LocalStoragePath, "каталог локального хранилища блобов")
	flag.Int64Var(&cfg.MaxUploadSizeMB, "max-upload-mb", cfg.MaxUploadSizeMB, "максимальный размер загрузки, МБ")

	flag.Parse()

	// Defaults
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.TokenPepper == "" {
		cfg.TokenPepper = "dev-token-pepper"
	}
	if cfg.AccessTokenTTLMin <= 0 {
		cfg.AccessTokenTTLMin = 15
	}
	if cfg.RefreshTokenTTLDays <= 0 {
		cfg.RefreshTokenTTLDays = 30
	}
	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = "refresh_token"
	}
	if cfg.StorageType != "s3" {
		cfg.StorageType = "local"
	}
	if cfg.LocalStoragePath == "" {
		cfg.LocalStoragePath = "./local_storage_data"
	}
	if cfg.MaxUploadSizeMB <= 0 {
		cfg.MaxUploadSizeMB = 500
	}

	// BaseURL должен быть в виде "address:port" (без схемы и пути)
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	return cfg
}

// MaxUploadSizeBytes — лимит загрузки в байтах.
func (c *Config) MaxUploadSizeBytes() int64 {
	return c.MaxUploadSizeMB * 1024 * 1024
}
