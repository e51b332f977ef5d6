// Luxio runs and drives Luxio LED controllers.
//
// "luxio serve" runs a controller: the LED engine, the state model and the
// network lifecycle behind an HTTP/WebSocket API and an optional serial
// line. The remaining commands are clients of that API.
//
// Usage:
//
//	luxio [command] [flags]
//
// See 'luxio --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "luxio",
	Short: "Luxio LED controller",
	Long: `Run a Luxio LED controller or talk to one on the network.

'luxio serve' starts a controller. The other commands find controllers with
mDNS and drive them over their HTTP and WebSocket API.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error; default silent, info for serve)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("luxio %s (commit: %s, platform: %s)\n", version.Version, version.Commit, version.Platform())
	},
}
