package config

import (
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Без переменных ожидались значения по умолчанию: %+v", cfg)
	}
	if cfg.TokenTTL != 30*time.Minute || cfg.UploadMaxBytes != 5<<20 {
		t.Errorf("Неверные умолчания: %+v", cfg)
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("AllowedOrigins по умолчанию = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Умолчания должны быть валидны: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"HTTP_ADDR":            ":9000",
		"JWT_SECRET":           " s3cret ",
		"TOKEN_TTL":            "1h",
		"BCRYPT_COST":          "12",
		"AVATAR_BACKEND":       "s3",
		"S3_BUCKET":            "avatars",
		"CORS_ALLOWED_ORIGINS": "https://app.example.com, http://localhost:5173,",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.JWTSecret != "s3cret" || cfg.TokenTTL != time.Hour || cfg.BcryptCost != 12 {
		t.Errorf("Переменные не применены: %+v", cfg)
	}
	if got := cfg.AllowedOrigins(); len(got) != 2 || got[0] != "https://app.example.com" || got[1] != "http://localhost:5173" {
		t.Errorf("AllowedOrigins = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEmptyCORSOriginsDisablesCORS(t *testing.T) {
	cfg, err := load(env(map[string]string{"CORS_ALLOWED_ORIGINS": ""}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.AllowedOrigins(); len(got) != 0 {
		t.Errorf("AllowedOrigins = %q, ожидался пустой список", got)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	for key, value := range map[string]string{
		"TOKEN_TTL":        "полчаса",
		"BCRYPT_COST":      "many",
		"UPLOAD_MAX_BYTES": "5MB",
	} {
		if _, err := load(env(map[string]string{key: value})); err == nil {
			t.Errorf("%s=%q: ожидалась ошибка", key, value)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"ttl":          func(c *Config) { c.TokenTTL = 0 },
		"cost":         func(c *Config) { c.BcryptCost = 1 },
		"upload size":  func(c *Config) { c.UploadMaxBytes = 0 },
		"backend":      func(c *Config) { c.AvatarBackend = "ftp" },
		"s3 no bucket": func(c *Config) { c.AvatarBackend = AvatarBackendS3 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: ожидалась ошибка", name)
		}
	}
}
