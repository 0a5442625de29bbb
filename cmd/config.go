package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/spf13/cobra"
)

var configForce bool

// configCmd groups the configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to config.yaml",
	Long: `Write the effective configuration (defaults, existing file and
PLAYLISTLOG_* environment variables merged) to
~/.config/playlistlog/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(config.GetConfigDir(), "config.yaml")
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}

		fmt.Printf("✓ Configuration written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Printf("listen_addr:                %s\n", cfg.ListenAddr)
		fmt.Printf("base_url:                   %s\n", cfg.BaseURL)
		fmt.Printf("endpoint:                   %s\n", cfg.EndpointURL())
		fmt.Printf("data_dir:                   %s\n", cfg.DataDir)
		fmt.Printf("log_level:                  %s\n", cfg.LogLevel)
		fmt.Printf("sessions.backend:           %s\n", cfg.Sessions.Backend)
		fmt.Printf("sessions.validity:          %s\n", cfg.Sessions.Validity)
		fmt.Printf("sessions.clear_on_shutdown: %t\n", cfg.Sessions.ClearOnShutdown)
		fmt.Printf("import.temp_dir:            %s\n", cfg.Import.TempDir)
		fmt.Printf("import.max_upload_bytes:    %d\n", cfg.Import.MaxUploadBytes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}
