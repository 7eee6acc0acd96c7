package config

// EnvPrefix namespaces every environment variable consumed by the module.
const EnvPrefix = "cartwheel"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "CARTWHEEL_APP_ENV"

	EnvDBDSN  = "CARTWHEEL_DB_DSN"
	EnvDBHost = "CARTWHEEL_DB_HOST"
	EnvDBUser = "CARTWHEEL_DB_USER"
	EnvDBName = "CARTWHEEL_DB_NAME"

	EnvRedisURL = "CARTWHEEL_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
