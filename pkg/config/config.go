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
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTWHEEL_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"CARTWHEEL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTWHEEL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CARTWHEEL_DB_DSN"`
	Driver string `envconfig:"CARTWHEEL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARTWHEEL_DB_HOST"`
	LegacyPort     int    `envconfig:"CARTWHEEL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARTWHEEL_DB_USER"`
	LegacyPassword string `envconfig:"CARTWHEEL_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARTWHEEL_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARTWHEEL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARTWHEEL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTWHEEL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTWHEEL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTWHEEL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTWHEEL_REDIS_URL"`
	Address      string        `envconfig:"CARTWHEEL_REDIS_ADDR"`
	Password     string        `envconfig:"CARTWHEEL_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTWHEEL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTWHEEL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTWHEEL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTWHEEL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTWHEEL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTWHEEL_REDIS_WRITE_TIMEOUT" default:"5s"`
	CacheTTL     time.Duration `envconfig:"CARTWHEEL_REDIS_CACHE_TTL" default:"5m"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CARTWHEEL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CARTWHEEL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CARTWHEEL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CARTWHEEL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CARTWHEEL_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARTWHEEL_AUTO_MIGRATE" default:"false"`
}

// ensureDSN assembles a Postgres DSN from the discrete legacy
// variables when CARTWHEEL_DB_DSN itself is not set.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	var missing []string
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
	dsn := url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		query := dsn.Query()
		query.Set("sslmode", db.LegacySSLMode)
		dsn.RawQuery = query.Encode()
	}

	db.DSN = dsn.String()
	return nil
}
