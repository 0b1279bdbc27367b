package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	AuthModeJWT       = "jwt"
	AuthModeDevBypass = "dev-bypass"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Fees     FeesConfig
	School   SchoolConfig
	Warmer   WarmerConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig describes how bearer tokens issued by the auth service are verified.
type AuthConfig struct {
	Mode    string
	Secret  string
	Issuer  string
	DevRole string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FeesConfig tunes the fee computation engine.
type FeesConfig struct {
	TimezoneOffsetHours          int
	AssumePromotionIfMissingPrev bool
	SummaryBatchSize             int
	SummaryCacheTTL              time.Duration
	Currency                     string
}

// SchoolConfig is the header block echoed on receipts and summaries.
type SchoolConfig struct {
	Name    string
	Address string
	Phone   string
	Logo    string
}

// WarmerConfig sizes the background term summary refresher.
type WarmerConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// Location returns the fixed institution timezone used for day keys.
func (f FeesConfig) Location() *time.Location {
	return time.FixedZone("school", f.TimezoneOffsetHours*60*60)
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		Mode:    strings.ToLower(v.GetString("AUTH_MODE")),
		Secret:  v.GetString("JWT_SECRET"),
		Issuer:  v.GetString("JWT_ISSUER"),
		DevRole: strings.ToUpper(v.GetString("AUTH_DEV_ROLE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	batch := v.GetInt("FEES_SUMMARY_BATCH_SIZE")
	if batch <= 0 {
		batch = 50
	}
	cfg.Fees = FeesConfig{
		TimezoneOffsetHours:          v.GetInt("FEES_TZ_OFFSET_HOURS"),
		AssumePromotionIfMissingPrev: v.GetBool("FEES_ASSUME_PROMOTION_IF_MISSING_PREV"),
		SummaryBatchSize:             batch,
		SummaryCacheTTL:              parseDuration(v.GetString("FEES_SUMMARY_CACHE_TTL"), 10*time.Minute),
		Currency:                     v.GetString("FEES_CURRENCY"),
	}

	cfg.School = SchoolConfig{
		Name:    v.GetString("SCHOOL_NAME"),
		Address: v.GetString("SCHOOL_ADDRESS"),
		Phone:   v.GetString("SCHOOL_PHONE"),
		Logo:    v.GetString("SCHOOL_LOGO"),
	}

	cfg.Warmer = WarmerConfig{
		Enabled:    v.GetBool("ENABLE_SUMMARY_WARMER"),
		Workers:    v.GetInt("SUMMARY_WARMER_WORKERS"),
		MaxRetries: v.GetInt("SUMMARY_WARMER_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SUMMARY_WARMER_RETRY_DELAY"), 5*time.Second),
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
	v.SetDefault("DB_NAME", "school_fees")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_MODE", AuthModeJWT)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("AUTH_DEV_ROLE", "DIRECTOR")

	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FEES_TZ_OFFSET_HOURS", 3)
	v.SetDefault("FEES_ASSUME_PROMOTION_IF_MISSING_PREV", true)
	v.SetDefault("FEES_SUMMARY_BATCH_SIZE", 50)
	v.SetDefault("FEES_SUMMARY_CACHE_TTL", "10m")
	v.SetDefault("FEES_CURRENCY", "KES")

	v.SetDefault("SCHOOL_NAME", "")
	v.SetDefault("SCHOOL_ADDRESS", "")
	v.SetDefault("SCHOOL_PHONE", "")
	v.SetDefault("SCHOOL_LOGO", "")

	v.SetDefault("ENABLE_SUMMARY_WARMER", false)
	v.SetDefault("SUMMARY_WARMER_WORKERS", 1)
	v.SetDefault("SUMMARY_WARMER_RETRIES", 3)
	v.SetDefault("SUMMARY_WARMER_RETRY_DELAY", "5s")
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
