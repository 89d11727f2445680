// Command atlastrack tracks the magnitude and distance of one comet by
// scraping two public pages, and serves the merged result over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "atlastrack",
	Short:         "3I/ATLAS magnitude and distance tracker",
	Long:          "atlastrack periodically scrapes an object page and an observation list, merges the magnitudes by source priority, flags abnormal brightening and serves the result over a JSON API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text (overrides config)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
