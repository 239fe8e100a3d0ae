package config

// EnvPrefix is passed to envconfig; explicit envconfig tags on every field
// keep the variable names stable regardless of struct naming.
const EnvPrefix = "stockledger"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "STOCKLEDGER_APP_ENV"
	EnvPort     = "STOCKLEDGER_APP_PORT"
	EnvDBDSN    = "STOCKLEDGER_DB_DSN"
	EnvDBHost   = "STOCKLEDGER_DB_HOST"
	EnvDBUser   = "STOCKLEDGER_DB_USER"
	EnvDBName   = "STOCKLEDGER_DB_NAME"
	EnvRedisURL = "STOCKLEDGER_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
