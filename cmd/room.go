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
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/bolcha/internal"
	"github.com/valpere/bolcha/internal/detector"
)

var (
	roomAuthor string
	roomLang   string
	roomLimit  int
)

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Send and read chat messages",
}

var roomSendCmd = &cobra.Command{
	Use:   "send <room> <text>",
	Short: "Store a message; its language is detected now",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		m := internal.NewMessage(args[0], roomAuthor, strings.Join(args[1:], " "))
		if err := db.CreateMessage(context.Background(), m); err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}
		fmt.Printf("Stored message %s (%s)\n", m.ID, m.OriginalLang)
		return nil
	},
}

var roomShowCmd = &cobra.Command{
	Use:   "show <room>",
	Short: "Show recent messages, translated into --lang",
	Long: `Show the most recent messages of a room. With --lang, messages not
yet translated are translated newest first and the results are stored
with the message, so later reads need no network call. Messages whose
translation is unavailable are shown in their original language.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		c, err := buildCore(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		room := args[0]
		lang := ""
		if roomLang != "" {
			lang = detector.Normalize(roomLang)
			n, err := c.sched.Backfill(ctx, room, lang)
			if err != nil {
				return err
			}
			logger.WithField("translated", n).Debug("backfill done")
		}

		msgs, err := c.store.RecentMessages(ctx, room, roomLimit)
		if err != nil {
			return fmt.Errorf("failed to load messages: %w", err)
		}
		if len(msgs) == 0 {
			fmt.Println("No messages.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tAUTHOR\tLANG\tTEXT")
		// oldest first on screen
		for i := len(msgs) - 1; i >= 0; i-- {
			m := msgs[i]
			text := m.Text
			if lang != "" {
				text = c.sched.Display(m, lang)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Author, m.OriginalLang,
				strings.ReplaceAll(text, "\n", " / "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(roomCmd)

	roomSendCmd.Flags().StringVarP(&roomAuthor, "author", "a", os.Getenv("USER"), "Message author")
	roomShowCmd.Flags().StringVarP(&roomLang, "lang", "l", "", "Display language")
	roomShowCmd.Flags().IntVarP(&roomLimit, "limit", "n", 50, "Number of messages to show")

	roomCmd.AddCommand(roomSendCmd)
	roomCmd.AddCommand(roomShowCmd)
}
