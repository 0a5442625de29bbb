package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "playlistlog",
	Short: "Audioscrobbler-compatible playlist log server",
	Long: `playlistlog is a self-hosted server for the Audioscrobbler 1.2
handshake and submission protocol.

Music players authenticate with a handshake, receive a session token and
submit the tracks they play. Every played track is stored as a private
record classified by artist and album. A Last.fm export archive can be
imported to backfill listening history.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
