package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/jfmyers9/playlistlog/internal/auth"
	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/spf13/cobra"
)

var (
	userAdmin    bool
	userPassword string
)

// userCmd groups the user management commands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long: `Manage the users allowed to scrobble.

Each user has a password, used for the admin import wizard, and a
separate scrobbler secret that music players use in the handshake.`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <login>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <login>",
	Short: "Change a user's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserPasswd,
}

var userSecretCmd = &cobra.Command{
	Use:   "secret <login> [secret]",
	Short: "Set a user's scrobbler secret",
	Long: `Set the secret a music player uses to authenticate as this user.

Without a secret argument a random one is generated and printed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUserSecret,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd, userPasswdCmd, userSecretCmd, userListCmd)

	userAddCmd.Flags().BoolVar(&userAdmin, "admin", false, "Allow the user to run imports")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Password (prompted for when omitted)")
	userPasswdCmd.Flags().StringVar(&userPassword, "password", "", "New password (prompted for when omitted)")
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	password, err := passwordFromFlagOrPrompt()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	user, err := st.CreateUser(ctx, args[0], hash, userAdmin)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("✓ Created user %s (id %d)\n", user.Login, user.ID)
	fmt.Println("\nSet a scrobbler secret for music players with:")
	fmt.Printf("  playlistlog user secret %s\n", user.Login)
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := lookupUser(ctx, st, args[0])
	if err != nil {
		return err
	}

	password, err := passwordFromFlagOrPrompt()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	if err := st.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Printf("✓ Password updated for %s\n", user.Login)
	return nil
}

func runUserSecret(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := lookupUser(ctx, st, args[0])
	if err != nil {
		return err
	}

	var secret string
	if len(args) == 2 {
		secret = strings.TrimSpace(args[1])
	} else {
		secret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if secret == "" {
		return fmt.Errorf("secret must not be empty")
	}

	if err := st.SetScrobbleSecret(ctx, user.ID, secret); err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}

	fmt.Printf("✓ Scrobbler secret updated for %s\n", user.Login)
	if len(args) == 1 {
		fmt.Printf("  Secret: %s\n", secret)
	}
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := st.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLOGIN\tADMIN\tSECRET SET")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%t\t%t\n", u.ID, u.Login, u.Admin, u.ScrobbleSecret != "")
	}
	return w.Flush()
}

func openConfiguredStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return openStore(cfg)
}

func lookupUser(ctx context.Context, st *store.Store, login string) (*store.User, error) {
	user, err := st.UserByLogin(ctx, login)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("user %q does not exist", login)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

func passwordFromFlagOrPrompt() (string, error) {
	if userPassword != "" {
		return userPassword, nil
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}
