package config

import (
	"reflect"
	"strings"

	"reward-tracker/core/crawler"
	"reward-tracker/core/database"
	"reward-tracker/core/extractor"
	"reward-tracker/core/logger"
	"reward-tracker/core/server"
	"reward-tracker/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Crawler holds configuration for the page fetcher.
	Crawler crawler.Config `mapstructure:"crawler"`
	// Extractor holds configuration for the LLM extraction client.
	Extractor extractor.Config `mapstructure:"extractor"`
	// Scheduler holds configuration for the periodic reconciliation runs.
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// SchedulerConfig holds configuration for the periodic reconciliation runs.
type SchedulerConfig struct {
	// Enabled controls whether the server runs reconciliation on a schedule.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Cron is the schedule in cron syntax. Defaults to 03:00 daily.
	Cron string `mapstructure:"cron" default:"0 3 * * *"`
	// Concurrency is the number of cards reconciled in parallel.
	Concurrency int `mapstructure:"concurrency" default:"4"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
