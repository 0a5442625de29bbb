package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/spf13/cobra"
)

// sessionsCmd groups the session table commands
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect or clear handshake sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List valid sessions",
	Long: `List the sessions that are still valid. Expired sessions are
pruned from the table as a side effect.`,
	Args: cobra.NoArgs,
	RunE: runSessionsList,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all sessions",
	Long: `Drop every session. Music players will have to handshake again
before their next submission.`,
	Args: cobra.NoArgs,
	RunE: runSessionsClear,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsClearCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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

	sessions, closeSessions, err := openSessions(cfg, st, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	valid, err := sessions.ListValid(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	tokens := make([]string, 0, len(valid))
	for token := range valid {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return valid[tokens[i]].Timestamp > valid[tokens[j]].Timestamp
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tISSUED\tEXPIRES\tTOKEN")
	for _, token := range tokens {
		s := valid[token]
		issued := s.IssuedAt()
		login := fmt.Sprintf("#%d", s.UserID)
		if u, err := st.UserByID(ctx, s.UserID); err == nil {
			login = u.Login
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", login,
			issued.Format(time.RFC3339),
			issued.Add(sessions.Validity()).Format(time.RFC3339),
			token)
	}
	return w.Flush()
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
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

	sessions, closeSessions, err := openSessions(cfg, st, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	if err := sessions.Clear(context.Background()); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	fmt.Println("✓ All sessions cleared")
	return nil
}
