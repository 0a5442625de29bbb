package server

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"text/template"
)

// LaunchdLabel identifies the server's launchd agent
const LaunchdLabel = "com.playlistlog.server"

// AgentConfig describes the launchd agent that runs "playlistlog serve"
type AgentConfig struct {
	Label      string // default LaunchdLabel
	BinaryPath string
	LogDir     string // holds the server log and launchd's crash output
	ListenAddr string // passed as --listen when set
	DataDir    string // passed as --data-dir when set
	HomeDir    string // working directory of the agent
}

// LogFile is where the server writes its structured log
func (c AgentConfig) LogFile() string {
	return filepath.Join(c.LogDir, "playlistlog.log")
}

// CrashLog catches stderr output written before the logger is set up
func (c AgentConfig) CrashLog() string {
	return filepath.Join(c.LogDir, "playlistlog.crash.log")
}

// Arguments returns the command line launchd runs
func (c AgentConfig) Arguments() []string {
	args := []string{c.BinaryPath, "serve", "--log-file", c.LogFile()}
	if c.ListenAddr != "" {
		args = append(args, "--listen", c.ListenAddr)
	}
	if c.DataDir != "" {
		args = append(args, "--data-dir", c.DataDir)
	}
	return args
}

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{xml .Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Arguments}}
		<string>{{xml .}}</string>
{{- end}}
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<dict>
		<key>SuccessfulExit</key>
		<false/>
	</dict>
	<key>ThrottleInterval</key>
	<integer>10</integer>
	<key>StandardErrorPath</key>
	<string>{{xml .CrashLog}}</string>
	<key>WorkingDirectory</key>
	<string>{{xml .HomeDir}}</string>
</dict>
</plist>
`))

// Plist renders the agent definition. The server restarts only after a
// failed exit, so a graceful stop stays stopped.
func (c AgentConfig) Plist() ([]byte, error) {
	if c.Label == "" {
		c.Label = LaunchdLabel
	}
	if c.BinaryPath == "" || c.LogDir == "" {
		return nil, fmt.Errorf("launchd agent needs a binary path and a log directory")
	}

	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, c); err != nil {
		return nil, fmt.Errorf("failed to render plist: %w", err)
	}

	return buf.Bytes(), nil
}

// AgentPath returns where the agent plist is installed for home
func AgentPath(home string) string {
	return filepath.Join(home, "Library", "LaunchAgents", LaunchdLabel+".plist")
}

// DefaultLogDir returns the log directory used by an installed agent
func DefaultLogDir(home string) string {
	return filepath.Join(home, "Library", "Logs", "playlistlog")
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
