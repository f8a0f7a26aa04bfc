package config

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "CARTAVIVA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names, kept as constants so tests and docs stay in sync.
const (
	EnvAppEnv   = "CARTAVIVA_APP_ENV"
	EnvPort     = "CARTAVIVA_APP_PORT"
	EnvLogLevel = "CARTAVIVA_LOG_LEVEL"

	EnvDBDSN      = "CARTAVIVA_DB_DSN"
	EnvDBHost     = "CARTAVIVA_DB_HOST"
	EnvDBPort     = "CARTAVIVA_DB_PORT"
	EnvDBUser     = "CARTAVIVA_DB_USER"
	EnvDBPassword = "CARTAVIVA_DB_PASSWORD"
	EnvDBName     = "CARTAVIVA_DB_NAME"

	EnvRedisURL = "CARTAVIVA_REDIS_URL"

	EnvJWTSecret              = "CARTAVIVA_JWT_SECRET"
	EnvJWTIssuer              = "CARTAVIVA_JWT_ISSUER"
	EnvJWTExpMins             = "CARTAVIVA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CARTAVIVA_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "CARTAVIVA_GCP_PROJECT_ID"

	EnvPubSubDomainTopic     = "CARTAVIVA_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub       = "CARTAVIVA_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvPubSubNotificationSub = "CARTAVIVA_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
