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
	"slices"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/valpere/bolcha/internal/endpoint"
)

var disabledEndpoints []string

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "Inspect and change the translation endpoint list",
}

var endpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Endpoints) == 0 {
			fmt.Println("No endpoints configured.")
			return nil
		}

		reg := endpoint.NewRegistry(nil, logger)
		reg.ConfigureEndpoints(cfg.Endpoints)
		active, primary := reg.Snapshot()
		var primaryURL string
		if len(active) > 0 {
			primaryURL = active[primary].URL
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tURL\tSTATUS\tPRIMARY")
		for i, ep := range reg.All() {
			status := green("enabled")
			if !ep.Enabled {
				status = red("disabled")
			}
			mark := ""
			if ep.Enabled && ep.URL == primaryURL {
				mark = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, ep.URL, status, mark)
		}
		return w.Flush()
	},
}

var endpointsSetCmd = &cobra.Command{
	Use:   "set <url>...",
	Short: "Replace the endpoint list in the config file",
	Long: `Replace the gasEndpoints list in the config file. URLs passed to
--disable are written but skipped when translating.

A running "bolcha serve" watching the same file picks the change up and
resets its primary endpoint.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eps := make([]endpoint.Endpoint, 0, len(args))
		for _, u := range args {
			eps = append(eps, endpoint.Endpoint{URL: u, Enabled: !slices.Contains(disabledEndpoints, u)})
		}

		path, err := loader.SetEndpoints(eps)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d endpoints to %s\n", len(eps), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(endpointsCmd)

	endpointsSetCmd.Flags().StringSliceVar(&disabledEndpoints, "disable", nil, "Endpoints to write as disabled")

	endpointsCmd.AddCommand(endpointsListCmd)
	endpointsCmd.AddCommand(endpointsSetCmd)
}
