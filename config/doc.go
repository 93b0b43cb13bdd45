// Package config loads recoverykit configuration.
//
// It uses Viper to read a YAML file, godotenv to load an optional .env file,
// and maps environment variables onto nested keys (RECOVERY_MAX_RETRIES
// overrides recovery.max_retries).
//
// # Usage
//
//	var cfg Config
//	err := config.LoadConfig("recoveryd", &cfg)
package config
