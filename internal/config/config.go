package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Address the HTTP server listens on
	// Default: ":8080"
	ListenAddr string

	// Public base URL of the server, used to build the endpoint URLs
	// returned by the handshake
	// Default: "http://localhost:8080"
	BaseURL string

	// Directory holding the database files
	// Default: ~/.local/share/playlistlog
	DataDir string

	LogLevel string
	LogFile  string

	Sessions SessionsConfig
	Import   ImportConfig
	History  HistoryConfig
}

// SessionsConfig holds session table configuration
type SessionsConfig struct {
	// Backend storing the session table: "sqlite" or "bolt"
	Backend string

	// Lifetime of a handshake session
	Validity time.Duration

	// Drop every session when the server shuts down
	ClearOnShutdown bool
}

// ImportConfig holds archive import configuration
type ImportConfig struct {
	// Parent directory for extraction directories (default: system temp dir)
	TempDir string

	// Maximum accepted upload size in bytes
	MaxUploadBytes int64
}

// HistoryConfig holds output settings for the history command
type HistoryConfig struct {
	// Output format template for each record
	// Default: "{{.PlayedAt}}  {{.Artist}} - {{.Title}}"
	Format string

	// Fixed column width for each record (0 = disabled)
	Width int
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("sessions.backend", "sqlite")
	v.SetDefault("sessions.validity", int(protocol.SessionValid/time.Second))
	v.SetDefault("sessions.clear_on_shutdown", false)
	v.SetDefault("import.temp_dir", "")
	v.SetDefault("import.max_upload_bytes", 512<<20)
	v.SetDefault("history.format", "{{.PlayedAt}}  {{.Artist}} - {{.Title}}")
	v.SetDefault("history.width", 0)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	v.SetEnvPrefix("PLAYLISTLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		ListenAddr: v.GetString("listen_addr"),
		BaseURL:    strings.TrimRight(v.GetString("base_url"), "/"),
		DataDir:    v.GetString("data_dir"),
		LogLevel:   v.GetString("log_level"),
		LogFile:    v.GetString("log_file"),
		Sessions: SessionsConfig{
			Backend:         v.GetString("sessions.backend"),
			Validity:        time.Duration(v.GetInt64("sessions.validity")) * time.Second,
			ClearOnShutdown: v.GetBool("sessions.clear_on_shutdown"),
		},
		Import: ImportConfig{
			TempDir:        v.GetString("import.temp_dir"),
			MaxUploadBytes: v.GetInt64("import.max_upload_bytes"),
		},
		History: HistoryConfig{
			Format: v.GetString("history.format"),
			Width:  v.GetInt("history.width"),
		},
	}

	return cfg, nil
}

// EndpointURL returns the absolute URL of the protocol endpoint
func (c *Config) EndpointURL() string {
	return c.BaseURL + "/" + protocol.QueryVar
}

// DBPath returns the path of the record database
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "playlistlog.db")
}

// SessionsDBPath returns the path of the bolt session database
func (c *Config) SessionsDBPath() string {
	return filepath.Join(c.DataDir, "sessions.bolt")
}

// SpoolDBPath returns the path of the client-side scrobble spool
func (c *Config) SpoolDBPath() string {
	return filepath.Join(c.DataDir, "spool.db")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "playlistlog")

	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "playlistlog")
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	configFile := filepath.Join(getConfigDir(), "config.yaml")

	v.Set("listen_addr", c.ListenAddr)
	v.Set("base_url", c.BaseURL)
	v.Set("data_dir", c.DataDir)
	v.Set("log_level", c.LogLevel)
	v.Set("log_file", c.LogFile)
	v.Set("sessions.backend", c.Sessions.Backend)
	v.Set("sessions.validity", int64(c.Sessions.Validity/time.Second))
	v.Set("sessions.clear_on_shutdown", c.Sessions.ClearOnShutdown)
	v.Set("import.temp_dir", c.Import.TempDir)
	v.Set("import.max_upload_bytes", c.Import.MaxUploadBytes)
	v.Set("history.format", c.History.Format)
	v.Set("history.width", c.History.Width)

	return v.WriteConfigAs(configFile)
}
