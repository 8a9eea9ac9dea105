package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the auth service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int

	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	BcryptCost int

	FailedThreshold int
	LockoutDuration time.Duration

	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration

	DefaultRole string

	ChallengeTTL           time.Duration
	ChallengeSweepInterval time.Duration
	CardanoNetwork         string
	AllowMockSignatures    bool

	RegisterRateLimitIPThreshold         int
	RegisterRateLimitIdentifierThreshold int
	RegisterRateLimitWindow              time.Duration

	EmailTransport string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	EmailFrom      string
	EmailFromName  string
	PublicBaseURL  string

	MaxDBConns         int32
	CleanupInterval    time.Duration
	SessionInactiveAge time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Wallet struct {
		Network             string `yaml:"network"`
		AllowMockSignatures bool   `yaml:"allow_mock_signatures"`
	} `yaml:"wallet"`
	Email struct {
		Transport string `yaml:"transport"`
		SMTPHost  string `yaml:"smtp_host"`
		SMTPPort  int    `yaml:"smtp_port"`
		From      string `yaml:"from"`
		FromName  string `yaml:"from_name"`
	} `yaml:"email"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                            "registry-auth",
		HTTPPort:                             8080,
		AccessTokenTTL:                       15 * time.Minute,
		RefreshTokenTTL:                      7 * 24 * time.Hour,
		BcryptCost:                           12,
		FailedThreshold:                      5,
		LockoutDuration:                      30 * time.Minute,
		VerificationTokenTTL:                 24 * time.Hour,
		ResetTokenTTL:                        time.Hour,
		DefaultRole:                          "developer",
		ChallengeTTL:                         10 * time.Minute,
		ChallengeSweepInterval:               5 * time.Minute,
		CardanoNetwork:                       "testnet",
		AllowMockSignatures:                  false,
		RegisterRateLimitIPThreshold:         20,
		RegisterRateLimitIdentifierThreshold: 6,
		RegisterRateLimitWindow:              time.Minute,
		EmailTransport:                       "noop",
		SMTPPort:                             587,
		EmailFromName:                        "Terra Registry",
		PublicBaseURL:                        "http://localhost:8080",
		MaxDBConns:                           20,
		CleanupInterval:                      time.Hour,
		SessionInactiveAge:                   30 * 24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.BaseURL != "" {
			cfg.PublicBaseURL = f.Service.BaseURL
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Wallet.Network != "" {
			cfg.CardanoNetwork = f.Wallet.Network
		}
		cfg.AllowMockSignatures = f.Wallet.AllowMockSignatures
		if f.Email.Transport != "" {
			cfg.EmailTransport = f.Email.Transport
		}
		if f.Email.SMTPHost != "" {
			cfg.SMTPHost = f.Email.SMTPHost
		}
		if f.Email.SMTPPort > 0 {
			cfg.SMTPPort = f.Email.SMTPPort
		}
		if f.Email.From != "" {
			cfg.EmailFrom = f.Email.From
		}
		if f.Email.FromName != "" {
			cfg.EmailFromName = f.Email.FromName
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.DefaultRole = strings.ToLower(strings.TrimSpace(envOrDefault("DEFAULT_ROLE", cfg.DefaultRole)))
	cfg.CardanoNetwork = strings.ToLower(strings.TrimSpace(envOrDefault("CARDANO_NETWORK", cfg.CardanoNetwork)))
	cfg.AllowMockSignatures = envBool("ALLOW_MOCK_SIGNATURES", cfg.AllowMockSignatures)
	cfg.EmailTransport = strings.ToLower(strings.TrimSpace(envOrDefault("EMAIL_TRANSPORT", cfg.EmailTransport)))
	cfg.SMTPHost = envOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPUser = envOrDefault("SMTP_USER", cfg.SMTPUser)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.EmailFrom = envOrDefault("EMAIL_FROM", cfg.EmailFrom)
	cfg.EmailFromName = envOrDefault("EMAIL_FROM_NAME", cfg.EmailFromName)
	cfg.PublicBaseURL = envOrDefault("PUBLIC_BASE_URL", cfg.PublicBaseURL)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.RegisterRateLimitIPThreshold = envInt("REGISTER_RATE_LIMIT_IP_THRESHOLD", cfg.RegisterRateLimitIPThreshold)
	cfg.RegisterRateLimitIdentifierThreshold = envInt("REGISTER_RATE_LIMIT_IDENTIFIER_THRESHOLD", cfg.RegisterRateLimitIdentifierThreshold)

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", int(cfg.AccessTokenTTL.Minutes()))) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_HOURS", int(cfg.RefreshTokenTTL.Hours()))) * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.VerificationTokenTTL = time.Duration(envInt("VERIFICATION_TOKEN_TTL_HOURS", int(cfg.VerificationTokenTTL.Hours()))) * time.Hour
	cfg.ResetTokenTTL = time.Duration(envInt("RESET_TOKEN_TTL_MINUTES", int(cfg.ResetTokenTTL.Minutes()))) * time.Minute
	cfg.ChallengeTTL = time.Duration(envInt("CHALLENGE_TTL_MINUTES", int(cfg.ChallengeTTL.Minutes()))) * time.Minute
	cfg.ChallengeSweepInterval = time.Duration(envInt("CHALLENGE_SWEEP_MINUTES", int(cfg.ChallengeSweepInterval.Minutes()))) * time.Minute
	cfg.RegisterRateLimitWindow = time.Duration(envInt("REGISTER_RATE_LIMIT_WINDOW_SECONDS", int(cfg.RegisterRateLimitWindow.Seconds()))) * time.Second
	cfg.CleanupInterval = time.Duration(envInt("CLEANUP_INTERVAL_MINUTES", int(cfg.CleanupInterval.Minutes()))) * time.Minute
	cfg.SessionInactiveAge = time.Duration(envInt("SESSION_INACTIVE_DAYS", int(cfg.SessionInactiveAge.Hours()/24))) * 24 * time.Hour

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
