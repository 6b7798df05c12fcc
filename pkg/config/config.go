package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Discord   DiscordConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Eventing  EventingConfig
	Starboard StarboardConfig
	Features  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COMMUNITYBOT_APP_ENV" required:"true"`
	Port         string `envconfig:"COMMUNITYBOT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COMMUNITYBOT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMMUNITYBOT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COMMUNITYBOT_SERVICE_KIND" default:"api"`
}

// DBConfig points at the embedded sqlite store. The pool is collapsed to a
// single connection in pkg/db so every statement runs serialized; handlers
// must keep critical sections to one statement and never hold the connection
// across a gateway call.
type DBConfig struct {
	Path        string        `envconfig:"COMMUNITYBOT_DB_PATH" default:"data/communitybot.db"`
	BusyTimeout time.Duration `envconfig:"COMMUNITYBOT_DB_BUSY_TIMEOUT" default:"5s"`
}

func (db *DBConfig) validate() error {
	if strings.TrimSpace(db.Path) == "" {
		return fmt.Errorf("%s is required", EnvDBPath)
	}
	return nil
}

// DSN renders the sqlite DSN with busy timeout, WAL and foreign keys applied.
func (db DBConfig) DSN() string {
	timeoutMS := db.BusyTimeout.Milliseconds()
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", db.Path, timeoutMS)
}

type RedisConfig struct {
	URL          string        `envconfig:"COMMUNITYBOT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COMMUNITYBOT_REDIS_ADDR"`
	Password     string        `envconfig:"COMMUNITYBOT_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMMUNITYBOT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMMUNITYBOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMMUNITYBOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMMUNITYBOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMMUNITYBOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMMUNITYBOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COMMUNITYBOT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COMMUNITYBOT_JWT_ISSUER" default:"communitybot"`
	ExpirationMinutes int    `envconfig:"COMMUNITYBOT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the admin access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// DiscordConfig carries the bot credentials for the messaging gateway REST
// client.
type DiscordConfig struct {
	BotToken  string        `envconfig:"COMMUNITYBOT_DISCORD_BOT_TOKEN" required:"true"`
	BotUserID int64         `envconfig:"COMMUNITYBOT_DISCORD_BOT_USER_ID" required:"true"`
	APIBase   string        `envconfig:"COMMUNITYBOT_DISCORD_API_BASE" default:"https://discord.com/api/v10"`
	Timeout   time.Duration `envconfig:"COMMUNITYBOT_DISCORD_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COMMUNITYBOT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"COMMUNITYBOT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COMMUNITYBOT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	GatewayTopic        string `envconfig:"COMMUNITYBOT_PUBSUB_GATEWAY_TOPIC" default:"cb-gateway-events"`
	GatewaySubscription string `envconfig:"COMMUNITYBOT_PUBSUB_GATEWAY_SUBSCRIPTION" required:"true"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"COMMUNITYBOT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// StarboardConfig holds process-wide starboard defaults; per-guild settings
// live in the database.
type StarboardConfig struct {
	DefaultThreshold int           `envconfig:"COMMUNITYBOT_STARBOARD_DEFAULT_THRESHOLD" default:"3"`
	ConfigCacheTTL   time.Duration `envconfig:"COMMUNITYBOT_STARBOARD_CONFIG_CACHE_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COMMUNITYBOT_AUTO_MIGRATE" default:"false"`
}
