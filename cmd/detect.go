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

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/valpere/bolcha/internal/detector"
)

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "Detect the language of a message",
	Long: `Detect the language of a message the way it is tagged at send time.

Rules are applied in order: empty or ASCII-only text is English, then
kana (ja), hangul (ko) and CJK ideographs (zh); anything else is English.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		fmt.Println(color.New(color.FgCyan, color.Bold).Sprint(detector.Detect(text)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
