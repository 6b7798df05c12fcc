package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv    = "COMMUNITYBOT_APP_ENV"
	EnvDBPath    = "COMMUNITYBOT_DB_PATH"
	EnvRedisURL  = "COMMUNITYBOT_REDIS_URL"
	EnvJWTSecret = "COMMUNITYBOT_JWT_SECRET"
)
