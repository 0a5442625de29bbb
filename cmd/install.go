package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/jfmyers9/playlistlog/internal/server"
	"github.com/spf13/cobra"
)

var (
	installListenAddr string
	installDataDir    string
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Run the playlistlog server as a launchd agent",
	Long: `Install a launchd agent that starts "playlistlog serve" on login.

The listen address and data directory come from the configuration unless
given as flags, and are fixed in the agent's command line. The server
logs to ~/Library/Logs/playlistlog/playlistlog.log. A crashed server is
restarted; a server stopped with "launchctl bootout" or "playlistlog
uninstall" stays stopped.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().StringVar(&installListenAddr, "listen", "", "Address the agent listens on (default: listen_addr from config)")
	installCmd.Flags().StringVar(&installDataDir, "data-dir", "", "Data directory of the agent (default: data_dir from config)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	if binaryPath, err = filepath.EvalSymlinks(binaryPath); err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	agent := server.AgentConfig{
		BinaryPath: binaryPath,
		LogDir:     server.DefaultLogDir(home),
		ListenAddr: firstNonEmpty(installListenAddr, cfg.ListenAddr),
		DataDir:    firstNonEmpty(installDataDir, cfg.DataDir),
		HomeDir:    home,
	}

	plist, err := agent.Plist()
	if err != nil {
		return err
	}

	for _, dir := range []string{agent.LogDir, agent.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	plistPath := server.AgentPath(home)
	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}

	if _, err := os.Stat(plistPath); err == nil {
		fmt.Println("Replacing the installed agent...")
		stopAgent()
	}

	if err := os.WriteFile(plistPath, plist, 0644); err != nil {
		return fmt.Errorf("failed to write plist file: %w", err)
	}
	if err := startAgent(plistPath); err != nil {
		return fmt.Errorf("failed to load agent: %w", err)
	}

	fmt.Printf("✓ Agent installed at %s\n", plistPath)
	fmt.Printf("  Command:  %s\n", strings.Join(agent.Arguments(), " "))
	fmt.Printf("  Endpoint: %s\n", cfg.EndpointURL())
	fmt.Printf("  Log:      %s\n", agent.LogFile())
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// launchctl runs launchctl against the current user's gui domain. target
// is appended to the domain when set.
func launchctl(verb, target string, extra ...string) ([]byte, error) {
	out, err := exec.Command("id", "-u").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}
	domain := "gui/" + strings.TrimSpace(string(out))
	if target != "" {
		domain += "/" + target
	}

	args := append([]string{verb, domain}, extra...)
	return exec.Command("launchctl", args...).CombinedOutput()
}

func startAgent(plistPath string) error {
	out, err := launchctl("bootstrap", "", plistPath)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("launchctl bootstrap: %s", msg)
		}
		return err
	}
	return nil
}

// stopAgent boots the agent out. Not being loaded is not an error.
func stopAgent() bool {
	_, err := launchctl("bootout", server.LaunchdLabel)
	return err == nil
}
