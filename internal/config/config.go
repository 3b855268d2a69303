package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	S3         S3Config         `mapstructure:"s3"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Database drivers
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory" // In-process store, nothing survives a restart
)

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"` // Empty disables image URLs
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
}

// JWTConfig holds the secret used to verify tokens issued by the identity service.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"` // OTLP gRPC collector, host:port
	ServiceName string `mapstructure:"service_name"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"` // Empty disables event publishing
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type SchedulingConfig struct {
	// BuildRequiresApproval gates PlanBuilder on an Approved request. When
	// false a Pending request is approved as part of building its plan.
	BuildRequiresApproval bool `mapstructure:"build_requires_approval"`
	MaxPlanDays           int  `mapstructure:"max_plan_days"`
}

// LoadConfig reads configuration from a .env file, a config file or
// environment variables (in increasing order of precedence for the last two).
func LoadConfig(path string) (config Config, err error) {
	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Nested keys map to env vars, e.g. scheduling.max_plan_days -> SCHEDULING_MAX_PLAN_DAYS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("database.name", "gym_scheduler")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.url_expiry", "15m")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "gym-scheduler")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "gym")
	v.SetDefault("scheduling.build_requires_approval", true)
	v.SetDefault("scheduling.max_plan_days", 366)
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverMemory:
	default:
		return errors.New("database.driver must be \"mongo\" or \"memory\"")
	}
	if c.Database.Driver == DriverMongo && c.Database.URI == "" {
		return errors.New("database.uri is required for the mongo driver")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Scheduling.MaxPlanDays <= 0 {
		return errors.New("scheduling.max_plan_days must be positive")
	}
	return nil
}
