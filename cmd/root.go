/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/valpere/bolcha/internal/config"
	"github.com/valpere/bolcha/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile string

	loader *config.Loader
	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bolcha",
	Short: "Chat message translation core",
	Long: `Bolcha translates chat messages through a list of script-hosted
translation endpoints, one request at a time, with failover between
endpoints and a session cache in front of them.

Endpoints are read from the gasEndpoints key of bolcha.yaml, or from
BOLCHA_SEED_ENDPOINTS when the list is empty.

Use "bolcha serve" to run the HTTP API.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loader = config.New(cfgFile, nil)

		v := loader.Viper()
		flags := cmd.Root().PersistentFlags()
		for key, name := range map[string]string{
			config.KeyLogLevel:  "log-level",
			config.KeyLogFormat: "log-format",
			config.KeyDB:        "db",
			config.KeySession:   "session",
		} {
			if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}

		var err error
		cfg, err = loader.Load()
		if err != nil {
			return err
		}

		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		loader.SetLogger(logger)

		if file := loader.File(); file != "" {
			logger.WithField("file", file).Debug("loaded config")
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./bolcha.yaml or $HOME/.config/bolcha/bolcha.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.String("db", config.DefaultDB, "Database path for messages and the session cache")
	flags.String("session", "", "Session id for the translation cache (random if empty)")
}
