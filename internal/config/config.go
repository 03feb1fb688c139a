package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	CORSOrigins []string
	AccessLog   bool

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration

	IdentifierInitialWidth int
	IdentifierMaxAttempts  int

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int

	SMTP SMTPConfig
}

// SMTPConfig configures outgoing email. Delivery is skipped when Host is empty.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
	Timeout   time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
// Variables use the ECC_ prefix, e.g. ECC_JWT_SECRET or ECC_DATABASE_URL.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ECC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Coaching Center API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("access_log", false)
	v.SetDefault("jwt.issuer", "coaching-center-api")
	v.SetDefault("jwt.ttl", "7h")
	v.SetDefault("login.rate_limit", 5)
	v.SetDefault("login.rate_window", "1m")
	v.SetDefault("identifier.initial_width", 8)
	v.SetDefault("identifier.max_attempts", 100)
	v.SetDefault("cloudinary.folder", "coaching-center/profiles")
	v.SetDefault("upload.max_size_mb", 5)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "Coaching Center")
	v.SetDefault("smtp.timeout", "10s")

	tokenTTL, err := parseDuration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	loginWindow, err := parseDuration(v, "login.rate_window")
	if err != nil {
		return Config{}, err
	}
	smtpTimeout, err := parseDuration(v, "smtp.timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		CORSOrigins: splitList(v.GetString("cors.origins")),
		AccessLog:   v.GetBool("access_log"),

		JWTSecret: v.GetString("jwt.secret"),
		JWTIssuer: v.GetString("jwt.issuer"),
		TokenTTL:  tokenTTL,

		LoginRateLimit:  v.GetInt("login.rate_limit"),
		LoginRateWindow: loginWindow,

		IdentifierInitialWidth: v.GetInt("identifier.initial_width"),
		IdentifierMaxAttempts:  v.GetInt("identifier.max_attempts"),

		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),

		SMTP: SMTPConfig{
			Host:      v.GetString("smtp.host"),
			Port:      v.GetInt("smtp.port"),
			Username:  v.GetString("smtp.username"),
			Password:  v.GetString("smtp.password"),
			FromName:  v.GetString("smtp.from_name"),
			FromEmail: v.GetString("smtp.from_email"),
			UseTLS:    v.GetBool("smtp.tls"),
			Timeout:   smtpTimeout,
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.IsProduction() && len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("jwt secret must be at least 32 characters in production")
	}
	if cfg.IdentifierInitialWidth < 1 || cfg.IdentifierInitialWidth > 18 {
		return Config{}, fmt.Errorf("identifier initial width must be between 1 and 18, got %d", cfg.IdentifierInitialWidth)
	}
	if cfg.IdentifierMaxAttempts <= 0 {
		cfg.IdentifierMaxAttempts = 100
	}
	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
