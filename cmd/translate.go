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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valpere/bolcha/internal/detector"
	"github.com/valpere/bolcha/internal/queue"
)

var (
	inputFile  string
	outputFile string
	targetLang string
	byLine     bool
)

var errUnavailable = errors.New("translation unavailable")

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text through the configured endpoints",
	Long: `Translate text through the configured endpoints.

The text is taken from the arguments, from --input, or from stdin.
Endpoints are tried in order starting from the primary; a round fails
only when every endpoint fails.

  --lines   translate each line on its own and keep blank lines`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		if targetLang == "" {
			return fmt.Errorf("target language is required")
		}
		lang := detector.Normalize(targetLang)

		ctx := context.Background()
		c, err := buildCore(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		var out string
		if byLine {
			var ok bool
			if out, ok = c.queue.TranslateLines(ctx, text, lang); !ok {
				return errUnavailable
			}
		} else {
			out, err = c.queue.TranslateResult(ctx, queue.Request{Text: text, TargetLang: lang})
			if err != nil {
				logger.WithError(err).Debug("translation failed")
				return fmt.Errorf("%w: %v", errUnavailable, err)
			}
		}

		if outputFile == "" {
			fmt.Println(out)
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Successfully translated %s to %s\n", detector.Detect(text), lang)
		return nil
	},
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case inputFile != "":
		b, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimRight(string(b), "\n"), nil
	}
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (required)")
	translateCmd.Flags().BoolVar(&byLine, "lines", false, "Translate line by line")

	translateCmd.MarkFlagRequired("target")
}
