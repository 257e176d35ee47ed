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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/bolcha/internal/config"
	"github.com/valpere/bolcha/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API:

  POST /api/translate                 {text, target} -> {translation}
  POST /api/rooms/{room}/messages     {author, text} -> message
  GET  /api/rooms/{room}/messages     ?lang=xx, starts a backfill
  GET  /api/endpoints
  GET  /api/detect                    ?text=

The config file is watched; endpoint changes apply without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := buildCore(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		loader.Watch(func(changed *config.Config) {
			c.registry.ConfigureEndpoints(changed.Endpoints)
		})

		addr := cfg.Listen
		if listenAddr != "" {
			addr = listenAddr
		}
		srv := server.New(c.queue, c.store, c.sched, c.registry, cfg.BackfillLimit, logger)
		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from config, :8080)")
}
