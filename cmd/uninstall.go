package cmd

import (
	"fmt"
	"os"

	"github.com/jfmyers9/playlistlog/internal/server"
	"github.com/spf13/cobra"
)

var uninstallPurgeLogs bool

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the launchd agent",
	Long: `Stop the server agent and remove its plist.

The database, configuration and spool are never touched. Server logs are
kept unless --purge-logs is given.`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)

	uninstallCmd.Flags().BoolVar(&uninstallPurgeLogs, "purge-logs", false, "Also delete the agent's log directory")
}

func runUninstall(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	plistPath := server.AgentPath(home)
	if _, err := os.Stat(plistPath); os.IsNotExist(err) {
		fmt.Println("No agent installed")
		return nil
	}

	if stopAgent() {
		fmt.Println("✓ Server stopped")
	} else {
		fmt.Println("Server was not running")
	}

	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("failed to remove plist file: %w", err)
	}
	fmt.Printf("✓ Removed %s\n", plistPath)

	if uninstallPurgeLogs {
		logDir := server.DefaultLogDir(home)
		if err := os.RemoveAll(logDir); err != nil {
			return fmt.Errorf("failed to remove logs: %w", err)
		}
		fmt.Printf("✓ Removed %s\n", logDir)
	}

	return nil
}
