package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPAddr      string
	StorageDriver string
	AutoMigrate   bool
	Postgres      Postgres

	JWTSecret      string
	GoogleClientID string
	RedirectURL    string
	CookieDomain   string
	CookieSameSite http.SameSite
	AllowedOrigins []string

	GracePeriodDays   int
	AppealWindowHours int
	SupportEmail      string

	EmailFrom       string
	EmailFromName   string
	SendGridAPIKey  string
	SendGridSandbox bool

	ExpirySweepSchedule string

	LogLevel  string
	LogFormat string
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

// URL is the connection string understood by both lib/pq and golang-migrate.
func (p Postgres) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.DB,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

func (c *Config) Policy() domain.Policy {
	return domain.NewPolicy(c.GracePeriodDays, c.AppealWindowHours)
}

// Load reads the server configuration from the environment. Callers load .env first.
func Load() (*Config, error) {
	return load(true)
}

// LoadJob reads the configuration of the one-shot binaries. They work on the
// database directly, so the HTTP and auth settings are not checked.
func LoadJob() (*Config, error) {
	return load(false)
}

func load(server bool) (*Config, error) {
	var errs []error
	p := &parser{errs: &errs}

	cfg := &Config{
		HTTPAddr:      getenv("HTTP_ADDR", "0.0.0.0:8080"),
		StorageDriver: getenv("STORAGE_DRIVER", StoragePostgres),
		AutoMigrate:   p.bool("AUTO_MIGRATE", false),
		Postgres: Postgres{
			Host:     getenv("POSTGRES_HOST", "localhost"),
			Port:     getenv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		},

		JWTSecret:      os.Getenv("JWT_SECRET"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		RedirectURL:    getenv("OAUTH_REDIRECT_URL", "/"),
		CookieDomain:   os.Getenv("COOKIE_DOMAIN"),
		CookieSameSite: p.sameSite("COOKIE_SAMESITE", http.SameSiteLaxMode),
		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		GracePeriodDays:   p.positiveInt("GRACE_PERIOD_DAYS", domain.DefaultGracePeriodDays),
		AppealWindowHours: p.positiveInt("APPEAL_WINDOW_HOURS", domain.DefaultAppealWindowHours),
		SupportEmail:      os.Getenv("SUPPORT_EMAIL"),

		EmailFrom:       getenv("EMAIL_FROM", "no-reply@grantdesk.io"),
		EmailFromName:   getenv("EMAIL_FROM_NAME", "GrantDesk"),
		SendGridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		SendGridSandbox: p.bool("SENDGRID_SANDBOX", false),

		ExpirySweepSchedule: os.Getenv("EXPIRY_SWEEP_SCHEDULE"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.Postgres.User == "" || cfg.Postgres.DB == "" {
			errs = append(errs, errors.New("POSTGRES_USER and POSTGRES_DB are required for the postgres storage driver"))
		}
	case StorageMemory:
		if !server {
			errs = append(errs, errors.New("STORAGE_DRIVER: jobs need the postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", cfg.StorageDriver))
	}

	if server && cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	if server && cfg.ExpirySweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ExpirySweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("EXPIRY_SWEEP_SCHEDULE: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type parser struct {
	errs *[]error
}

func (p parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (p parser) positiveInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: must be a positive integer, got %q", key, v))
		return fallback
	}
	return n
}

func (p parser) sameSite(key string, fallback http.SameSite) http.SameSite {
	switch strings.ToLower(os.Getenv(key)) {
	case "":
		return fallback
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		*p.errs = append(*p.errs, fmt.Errorf("%s: expected lax, strict or none", key))
		return fallback
	}
}
