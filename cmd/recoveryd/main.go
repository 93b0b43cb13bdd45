// Command recoveryd runs the recovery registry and health coordinator in
// front of an Ollama backend and exposes them over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/recoverykit/config"
	"github.com/kbukum/recoverykit/logger"
)

const serviceName = "recoveryd"

var (
	cfgPath string
	envPath string
)

var rootCmd = &cobra.Command{
	Use:          serviceName,
	Short:        "Recovery and health daemon for a local model backend",
	SilenceUsage: true,
	RunE:         runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: ./config.yml or ./config/config.yml)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "env file loaded before the config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, env file and environment overrides.
func loadConfig() (*Config, error) {
	var opts []config.LoaderOption
	if cfgPath != "" {
		opts = append(opts, config.WithConfigFile(cfgPath))
	}
	if envPath != "" {
		opts = append(opts, config.WithEnvFile(envPath))
	}

	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		logger.NewDefault(serviceName).Error("failed to load config", logger.Fields(logger.FieldError, err.Error()))
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		logger.NewDefault(serviceName).Error("invalid config", logger.Fields(logger.FieldError, err.Error()))
		return err
	}

	if err := a.run(cmd.Context()); err != nil {
		a.log.Error("recoveryd stopped", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	return nil
}
