// Package config provides configuration management for the Reward Tracker.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: MySQL connection details
//   - Storage: S3/MinIO credentials for the raw-content archive
//   - Log: Logging level and format
//   - Crawler: fetch timeouts and body limits
//   - Extractor: LLM endpoint, model, and API key
//   - Scheduler: cron expression and run concurrency
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
