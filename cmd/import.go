package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/jfmyers9/playlistlog/internal/importer"
	"github.com/jfmyers9/playlistlog/internal/scrobbler"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/spf13/cobra"
)

var importUser string

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <archive.zip>",
	Short: "Import a Last.fm export archive",
	Long: `Import the scrobbles of a Last.fm export archive.

The archive is extracted to a temporary directory and every entry of
json/scrobbles/*.json is recorded for the given admin user. Entries
without a track name or timestamp are skipped, and entries already
recorded by an earlier import are not recorded twice.

The archive itself is left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importUser, "user", "u", "", "Admin user the records are attributed to (required)")
	_ = importCmd.MarkFlagRequired("user")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := cliLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := st.UserByLogin(ctx, importUser)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("user %q does not exist", importUser)
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Admin {
		return fmt.Errorf("user %q is not an admin", importUser)
	}

	im := importer.New(importer.Config{TempDir: cfg.Import.TempDir}, scrobbler.NewRecorder(st, logger), st, logger)

	sum, err := im.Run(ctx, args[0], user.ID)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("✓ Imported %d scrobbles from %d files\n", sum.Imported, sum.Files)
	if sum.Skipped > 0 || sum.Duplicates > 0 || sum.SkippedFiles > 0 {
		fmt.Printf("  Skipped %d incomplete entries, %d duplicates and %d unreadable files\n",
			sum.Skipped, sum.Duplicates, sum.SkippedFiles)
	}

	return nil
}
