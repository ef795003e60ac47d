package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	College  CollegeConfig
	Voyages  VoyagesConfig
	Forms    FormsConfig
	Cashflow CashflowConfig
	Exports  ExportsConfig
	Authz    AuthzConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
	// ExchangeKey authenticates the OAuth callback shell posting verified
	// identities to the exchange endpoint.
	ExchangeKey string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CollegeConfig tunes the training module.
type CollegeConfig struct {
	// DefaultDueDays is the number of days a newly accepted applicant has to
	// complete required training before the due timestamp lapses.
	DefaultDueDays int
	// TraineeRoleName is the role revoked when a trainee withdraws or passes.
	TraineeRoleName string
}

// VoyagesConfig gates the voyage tracking endpoints.
type VoyagesConfig struct {
	Enabled bool
	// CompanyShareFloor is the minimum percentage retained by the company in
	// settlement when crew shares do not sum to 100.
	CompanyShareFloor int
}

// FormsConfig gates the forms endpoints.
type FormsConfig struct {
	Enabled bool
}

// CashflowConfig gates the finance ledger endpoints.
type CashflowConfig struct {
	Enabled bool
}

// ExportsConfig controls document generation and async export jobs.
type ExportsConfig struct {
	Enabled     bool
	CompanyName string
	Dir         string
	URLTTL      time.Duration
	Workers     int
}

// AuthzConfig tunes permission resolution caching.
type AuthzConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
		ExchangeKey:       v.GetString("AUTH_EXCHANGE_KEY"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.College = CollegeConfig{
		DefaultDueDays:  v.GetInt("COLLEGE_DEFAULT_DUE_DAYS"),
		TraineeRoleName: v.GetString("COLLEGE_TRAINEE_ROLE"),
	}

	cfg.Voyages = VoyagesConfig{
		Enabled:           v.GetBool("ENABLE_VOYAGES"),
		CompanyShareFloor: v.GetInt("VOYAGE_COMPANY_SHARE_FLOOR"),
	}

	cfg.Forms = FormsConfig{Enabled: v.GetBool("ENABLE_FORMS")}
	cfg.Cashflow = CashflowConfig{Enabled: v.GetBool("ENABLE_CASHFLOW")}

	cfg.Exports = ExportsConfig{
		Enabled:     v.GetBool("ENABLE_EXPORTS"),
		CompanyName: v.GetString("EXPORTS_COMPANY_NAME"),
		Dir:         v.GetString("EXPORTS_DIR"),
		URLTTL:      parseDuration(v.GetString("EXPORTS_URL_TTL"), 24*time.Hour),
		Workers:     v.GetInt("EXPORT_WORKERS"),
	}

	cfg.Authz = AuthzConfig{
		CacheTTL: parseDuration(v.GetString("AUTHZ_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "crew_intranet")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "crew-intranet")
	v.SetDefault("AUTH_EXCHANGE_KEY", "dev_exchange_key")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("COLLEGE_DEFAULT_DUE_DAYS", 14)
	v.SetDefault("COLLEGE_TRAINEE_ROLE", "Trainee")

	v.SetDefault("ENABLE_VOYAGES", true)
	v.SetDefault("VOYAGE_COMPANY_SHARE_FLOOR", 0)
	v.SetDefault("ENABLE_FORMS", true)
	v.SetDefault("ENABLE_CASHFLOW", true)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_COMPANY_NAME", "Frontier Maritime Co.")
	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORTS_URL_TTL", "24h")
	v.SetDefault("EXPORT_WORKERS", 2)

	v.SetDefault("AUTHZ_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
