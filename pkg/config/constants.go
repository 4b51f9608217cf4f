package config

const (
	EnvPrefix = "KIRANAKART"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "KIRANAKART_APP_ENV"
	EnvPort       = "KIRANAKART_APP_PORT"
	EnvDBDSN      = "KIRANAKART_DB_DSN"
	EnvDBHost     = "KIRANAKART_DB_HOST"
	EnvDBUser     = "KIRANAKART_DB_USER"
	EnvDBName     = "KIRANAKART_DB_NAME"
	EnvRedisURL   = "KIRANAKART_REDIS_URL"
	EnvJWTSecret  = "KIRANAKART_JWT_SECRET"
	EnvJWTIssuer  = "KIRANAKART_JWT_ISSUER"
	EnvJWTExpMins = "KIRANAKART_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
