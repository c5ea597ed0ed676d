package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"task-tracker/internal/avatar"
)

const (
	AvatarBackendFS = "fs"
	AvatarBackendS3 = "s3"
)

// Config настройки процесса. Загружается один раз при старте и передаётся
// компонентам явно.
type Config struct {
	HTTPAddr       string
	DatabasePath   string
	JWTSecret      string
	TokenTTL       time.Duration
	BcryptCost     int
	UploadDir      string
	UploadMaxBytes int64
	AvatarBackend  string
	S3             avatar.S3Config
	TelegramToken  string
	LogLevel       string
	CORSOrigins    string // через запятую, "*" разрешает всех
}

func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		DatabasePath:   "./data/tasks.db",
		TokenTTL:       30 * time.Minute,
		BcryptCost:     bcrypt.DefaultCost,
		UploadDir:      "./uploads",
		UploadMaxBytes: 5 << 20,
		AvatarBackend:  AvatarBackendFS,
		LogLevel:       "info",
		CORSOrigins:    "*",
	}
}

// Load читает переменные окружения поверх значений по умолчанию.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("DATABASE_PATH", &cfg.DatabasePath)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("UPLOAD_DIR", &cfg.UploadDir)
	str("AVATAR_BACKEND", &cfg.AvatarBackend)
	str("S3_BUCKET", &cfg.S3.Bucket)
	str("S3_REGION", &cfg.S3.Region)
	str("S3_ENDPOINT", &cfg.S3.Endpoint)
	str("S3_PUBLIC_URL", &cfg.S3.PublicURL)
	str("S3_ACCESS_KEY", &cfg.S3.AccessKey)
	str("S3_SECRET_KEY", &cfg.S3.SecretKey)
	str("TELEGRAM_TOKEN", &cfg.TelegramToken)
	str("LOG_LEVEL", &cfg.LogLevel)
	// пустое значение отключает CORS, поэтому str не подходит
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok {
		cfg.CORSOrigins = v
	}

	if v, ok := lookup("TOKEN_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "TOKEN_TTL")
		}
		cfg.TokenTTL = d
	}
	if v, ok := lookup("BCRYPT_COST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrap(err, "BCRYPT_COST")
		}
		cfg.BcryptCost = n
	}
	if v, ok := lookup("UPLOAD_MAX_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, errors.Wrap(err, "UPLOAD_MAX_BYTES")
		}
		cfg.UploadMaxBytes = n
	}

	return cfg, nil
}

// AllowedOrigins разбирает CORSOrigins. Пустой список отключает CORS.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c Config) Validate() error {
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return errors.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}
	switch c.AvatarBackend {
	case AvatarBackendFS:
	case AvatarBackendS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 avatar backend")
		}
	default:
		return errors.Errorf("unknown avatar backend %q", c.AvatarBackend)
	}
	return nil
}
