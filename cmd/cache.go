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
	"fmt"

	"github.com/spf13/cobra"
)

var clearAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the session translation cache",
	Long: `Inspect and clear the SQLite-backed session cache. Translations stored
with messages are not affected.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Sessions:             %d\n", stats.Sessions)
		fmt.Printf("Session entries:      %d\n", stats.Entries)
		fmt.Printf("Messages:             %d\n", stats.Messages)
		fmt.Printf("Message translations: %d\n", stats.Translations)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the session's cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		session := cfg.Session
		if !clearAll && session == "" {
			return fmt.Errorf("--session or --all is required")
		}
		if clearAll {
			session = ""
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearSessionCache(context.Background(), session)
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Cleared %d entries from the session cache.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheClearCmd.Flags().BoolVar(&clearAll, "all", false, "Clear every session")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
