package cmd

import (
	"context"
	"fmt"

	"github.com/jfmyers9/playlistlog/internal/audioscrobbler"
	"github.com/jfmyers9/playlistlog/internal/auth"
	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/jfmyers9/playlistlog/internal/importer"
	"github.com/jfmyers9/playlistlog/internal/scrobbler"
	"github.com/jfmyers9/playlistlog/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveLogFile    string
	serveLogLevel   string
	serveDataDir    string
	serveListenAddr string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Audioscrobbler server",
	Long: `Run the HTTP server that speaks the Audioscrobbler 1.2 protocol.

The server will:
- Answer handshakes on /playlistlog and hand out session tokens
- Accept now-playing notifications and scrobble submissions
- Record every submitted track with its artist and album
- Serve the Last.fm import wizard on /admin/import for admin users
- Handle graceful shutdown on SIGINT/SIGTERM

The server runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for launchd).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "Log file path (default: stderr)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Data directory for the database (default: ~/.local/share/playlistlog)")
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "Address to listen on (default: :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serveLogFile != "" {
		cfg.LogFile = serveLogFile
	}
	if serveLogLevel != "" {
		cfg.LogLevel = serveLogLevel
	}
	if serveDataDir != "" {
		cfg.DataDir = serveDataDir
	}
	if serveListenAddr != "" {
		cfg.ListenAddr = serveListenAddr
	}

	logger := setupLogger(cfg.LogFile, cfg.LogLevel)

	logger.Info().
		Str("version", version).
		Str("data_dir", cfg.DataDir).
		Str("endpoint", cfg.EndpointURL()).
		Msg("Starting playlistlog server")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, closeSessions, err := openSessions(cfg, st, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	recorder := scrobbler.NewRecorder(st, logger)

	srv := server.New(server.Config{
		ListenAddr:     cfg.ListenAddr,
		UploadDir:      cfg.Import.TempDir,
		MaxUploadBytes: cfg.Import.MaxUploadBytes,
	}, server.Handlers{
		Handshake: audioscrobbler.NewHandshake(auth.New(st, logger), sessions, cfg.EndpointURL(), logger),
		Submit:    audioscrobbler.NewSubmit(sessions, recorder, logger),
		Importer:  importer.New(importer.Config{TempDir: cfg.Import.TempDir}, recorder, st, logger),
		Users:     st,
	}, logger)

	if cfg.Sessions.ClearOnShutdown {
		srv.OnShutdown(func(ctx context.Context) error {
			if err := sessions.Clear(ctx); err != nil {
				return fmt.Errorf("failed to clear sessions: %w", err)
			}
			logger.Info().Msg("Cleared session table")
			return nil
		})
	}

	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
