package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "VOLTLOT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CaptchaProviderNone      = "none"
	CaptchaProviderTurnstile = "turnstile"
	CaptchaProviderHCaptcha  = "hcaptcha"
)

const (
	EnvAppEnv             = "VOLTLOT_APP_ENV"
	EnvPort               = "VOLTLOT_APP_PORT"
	EnvDBDSN              = "VOLTLOT_DB_DSN"
	EnvDBDriver           = "VOLTLOT_DB_DRIVER"
	EnvDBHost             = "VOLTLOT_DB_HOST"
	EnvDBUser             = "VOLTLOT_DB_USER"
	EnvDBName             = "VOLTLOT_DB_NAME"
	EnvRedisURL           = "VOLTLOT_REDIS_URL"
	EnvJWTSecret          = "VOLTLOT_JWT_SECRET"
	EnvJWTIssuer          = "VOLTLOT_JWT_ISSUER"
	EnvInquiryRateLimit   = "VOLTLOT_INQUIRY_RATE_LIMIT_PER_MINUTE"
	EnvCaptchaProvider    = "VOLTLOT_CAPTCHA_PROVIDER"
	EnvCaptchaSecretKey   = "VOLTLOT_CAPTCHA_SECRET_KEY"
	EnvEmailUseSES        = "VOLTLOT_EMAIL_USE_SES"
	EnvSESVerifiedFrom    = "VOLTLOT_SES_VERIFIED_FROM_EMAIL"
	EnvPhotosUploadExpiry = "VOLTLOT_PHOTOS_UPLOAD_URL_EXPIRY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
