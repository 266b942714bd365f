package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port           int
	JWTSecret      string
	JWTAccessTTL   time.Duration
	AllowOrigins   []string
	UploadMaxBytes int64
	RateLimit      RateLimitConfig
	Storage        StorageConfig
}

// RateLimitConfig representa limites simples para throttling por IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// StorageConfig seleciona e parametriza o backend de publicação.
type StorageConfig struct {
	Provider string
	GitHub   GitHubConfig
	S3       S3Config
}

// GitHubConfig agrupa as variáveis do backend GitHub.
type GitHubConfig struct {
	Token   string
	Repo    string
	Branch  string
	APIBase string
}

// S3Config agrupa as variáveis do backend S3/R2.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	KeyPrefix string
	PublicURL string
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	maxBytes, err := parseInt64Env("UPLOAD_MAX_BYTES", 10<<20)
	if err != nil || maxBytes <= 0 {
		return nil, errors.New("UPLOAD_MAX_BYTES inválido")
	}
	cfg.UploadMaxBytes = maxBytes

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimit = RateLimitConfig{RequestsPerSecond: 5, Burst: 10}

	storageCfg, err := loadStorage()
	if err != nil {
		return nil, err
	}
	cfg.Storage = storageCfg

	return cfg, nil
}

func loadStorage() (StorageConfig, error) {
	cfg := StorageConfig{
		Provider: strings.ToLower(strings.TrimSpace(getEnv("STORAGE_PROVIDER", "github"))),
	}

	switch cfg.Provider {
	case "github":
		cfg.GitHub = GitHubConfig{
			Token:   strings.TrimSpace(getEnv("GITHUB_TOKEN", "")),
			Repo:    strings.TrimSpace(getEnv("GITHUB_REPO", "")),
			Branch:  strings.TrimSpace(getEnv("GITHUB_BRANCH", "main")),
			APIBase: strings.TrimSpace(getEnv("GITHUB_API_BASE", "")),
		}
		if cfg.GitHub.Token == "" {
			return cfg, errors.New("GITHUB_TOKEN obrigatório")
		}
		if cfg.GitHub.Repo == "" {
			return cfg, errors.New("GITHUB_REPO obrigatório")
		}
	case "s3", "r2":
		cfg.S3 = S3Config{
			Endpoint:  strings.TrimSpace(getEnv("S3_ENDPOINT", "")),
			Region:    strings.TrimSpace(getEnv("S3_REGION", "")),
			Bucket:    strings.TrimSpace(getEnv("S3_BUCKET", "")),
			AccessKey: strings.TrimSpace(getEnv("S3_ACCESS_KEY", "")),
			SecretKey: strings.TrimSpace(getEnv("S3_SECRET_KEY", "")),
			KeyPrefix: strings.TrimSpace(getEnv("S3_KEY_PREFIX", "")),
			PublicURL: strings.TrimSpace(getEnv("S3_PUBLIC_URL", "")),
		}
		if cfg.S3.Endpoint == "" || cfg.S3.Bucket == "" {
			return cfg, errors.New("S3_ENDPOINT e S3_BUCKET obrigatórios")
		}
	case "noop":
		// sem backend; uploads devolvem erro
	default:
		return cfg, errors.New("STORAGE_PROVIDER não suportado: " + cfg.Provider)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseInt64Env(key string, def int64) (int64, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return parsed, nil
}
