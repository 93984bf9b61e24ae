package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Inquiry      InquiryConfig
	Captcha      CaptchaConfig
	Email        EmailConfig
	SMTP         SMTPConfig
	AWS          AWSConfig
	Photos       PhotosConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Captcha.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"VOLTLOT_APP_ENV" required:"true"`
	Port          string `envconfig:"VOLTLOT_APP_PORT" default:"8080"`
	PublicBaseURL string `envconfig:"VOLTLOT_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	LogLevel      string `envconfig:"VOLTLOT_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"VOLTLOT_LOG_WARN_STACK" default:"false"`
	LogFormat     string `envconfig:"VOLTLOT_LOG_FORMAT" default:"json"`
	// CORSOrigins is a comma separated allow-list for the dashboard frontend.
	CORSOrigins []string `envconfig:"VOLTLOT_CORS_ORIGINS"`
	// IgnoreForwardedFor resolves client addresses from the connection only.
	// Set it when the API is reachable without a proxy in front.
	IgnoreForwardedFor bool `envconfig:"VOLTLOT_IGNORE_FORWARDED_FOR" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ConsoleLogs reports whether logs should use the human readable writer.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

type DBConfig struct {
	DSN    string `envconfig:"VOLTLOT_DB_DSN"`
	Driver string `envconfig:"VOLTLOT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VOLTLOT_DB_HOST"`
	LegacyPort     int    `envconfig:"VOLTLOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VOLTLOT_DB_USER"`
	LegacyPassword string `envconfig:"VOLTLOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"VOLTLOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"VOLTLOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VOLTLOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VOLTLOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VOLTLOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VOLTLOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"VOLTLOT_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"VOLTLOT_REDIS_URL"`
	Address      string        `envconfig:"VOLTLOT_REDIS_ADDR"`
	Password     string        `envconfig:"VOLTLOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"VOLTLOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VOLTLOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VOLTLOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VOLTLOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VOLTLOT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"VOLTLOT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"VOLTLOT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VOLTLOT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VOLTLOT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VOLTLOT_AUTO_MIGRATE" default:"false"`
}

// InquiryConfig holds the public inquiry intake knobs.
type InquiryConfig struct {
	RateLimitPerMinute int           `envconfig:"VOLTLOT_INQUIRY_RATE_LIMIT_PER_MINUTE" default:"5"`
	StaleAfter         time.Duration `envconfig:"VOLTLOT_INQUIRY_STALE_AFTER" default:"15m"`
}

type CaptchaConfig struct {
	Provider  string        `envconfig:"VOLTLOT_CAPTCHA_PROVIDER" default:"none"`
	SiteKey   string        `envconfig:"VOLTLOT_CAPTCHA_SITE_KEY"`
	SecretKey string        `envconfig:"VOLTLOT_CAPTCHA_SECRET_KEY"`
	VerifyURL string        `envconfig:"VOLTLOT_CAPTCHA_VERIFY_URL"`
	Timeout   time.Duration `envconfig:"VOLTLOT_CAPTCHA_TIMEOUT" default:"5s"`
}

// NormalizedProvider returns the lowercased provider name, "none" when empty.
func (c CaptchaConfig) NormalizedProvider() string {
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == "" {
		return CaptchaProviderNone
	}
	return provider
}

func (c CaptchaConfig) validate() error {
	switch c.NormalizedProvider() {
	case CaptchaProviderNone, CaptchaProviderTurnstile, CaptchaProviderHCaptcha:
		return nil
	}
	return fmt.Errorf("%s must be one of none, turnstile, hcaptcha (got %q)", EnvCaptchaProvider, c.Provider)
}

type EmailConfig struct {
	UseSES              bool          `envconfig:"VOLTLOT_EMAIL_USE_SES" default:"false"`
	DefaultFrom         string        `envconfig:"VOLTLOT_EMAIL_DEFAULT_FROM" default:"VoltLot <no-reply@voltlot.local>"`
	SESVerifiedFrom     string        `envconfig:"VOLTLOT_SES_VERIFIED_FROM_EMAIL"`
	SESConfigurationSet string        `envconfig:"VOLTLOT_SES_CONFIGURATION_SET"`
	SendTimeout         time.Duration `envconfig:"VOLTLOT_EMAIL_SEND_TIMEOUT" default:"5s"`
}

type SMTPConfig struct {
	Host     string `envconfig:"VOLTLOT_SMTP_HOST" default:"localhost"`
	Port     int    `envconfig:"VOLTLOT_SMTP_PORT" default:"587"`
	Username string `envconfig:"VOLTLOT_SMTP_USERNAME"`
	Password string `envconfig:"VOLTLOT_SMTP_PASSWORD"`
}

// Addr returns host:port for net/smtp.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type AWSConfig struct {
	Region          string `envconfig:"VOLTLOT_AWS_REGION" default:"ca-central-1"`
	AccessKeyID     string `envconfig:"VOLTLOT_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"VOLTLOT_AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `envconfig:"VOLTLOT_AWS_SESSION_TOKEN"`
}

type PhotosConfig struct {
	Bucket          string        `envconfig:"VOLTLOT_PHOTOS_BUCKET"`
	PublicBaseURL   string        `envconfig:"VOLTLOT_PHOTOS_PUBLIC_BASE_URL"`
	Endpoint        string        `envconfig:"VOLTLOT_PHOTOS_S3_ENDPOINT"`
	ForcePathStyle  bool          `envconfig:"VOLTLOT_PHOTOS_S3_FORCE_PATH_STYLE" default:"false"`
	MaxPerListing   int           `envconfig:"VOLTLOT_PHOTOS_MAX_PER_LISTING" default:"10"`
	MaxUploadBytes  int64         `envconfig:"VOLTLOT_PHOTOS_MAX_UPLOAD_BYTES" default:"10485760"`
	UploadURLExpiry time.Duration `envconfig:"VOLTLOT_PHOTOS_UPLOAD_URL_EXPIRY" default:"300s"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"VOLTLOT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"VOLTLOT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	PhotoTopic        string `envconfig:"VOLTLOT_PUBSUB_PHOTO_TOPIC" default:"vl-photo-processing"`
	PhotoSubscription string `envconfig:"VOLTLOT_PUBSUB_PHOTO_SUBSCRIPTION" default:"vl-photo-processing-worker"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"VOLTLOT_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"VOLTLOT_CRON_LOCK_TTL" default:"4m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:voltlot.db?_foreign_keys=on"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
