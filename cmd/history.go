package cmd

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played records",
	Long: `List the most recently played records, newest first.

The output format can be customized in ~/.config/playlistlog/config.yaml
using a Go template. Available fields: .ID, .Title, .Artist, .Album,
.PlayedAt (formatted), .Time (time.Time) and .Meta (map of short codes).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringP("user", "u", "", "Only show records of this user")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of records to show (0 = all)")
	historyCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	historyCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
}

// historyEntry is the template data for one line of history output
type historyEntry struct {
	ID       int64
	Title    string
	Artist   string
	Album    string
	PlayedAt string
	Time     time.Time
	Meta     map[string]string
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if formatFlag, _ := cmd.Flags().GetString("format"); formatFlag != "" {
		cfg.History.Format = formatFlag
	}
	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = cfg.History.Width
	}
	limit, _ := cmd.Flags().GetInt("limit")

	tmpl, err := template.New("output").Parse(cfg.History.Format)
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var author int64
	if login, _ := cmd.Flags().GetString("user"); login != "" {
		user, err := lookupUser(ctx, st, login)
		if err != nil {
			return err
		}
		author = user.ID
	}

	records, err := st.ListRecords(ctx, author, limit)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	for _, r := range records {
		output, err := formatRecord(tmpl, r)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Println(padToWidth(output, width))
	}

	return nil
}

// formatRecord applies the template to one record
func formatRecord(tmpl *template.Template, r store.Record) (string, error) {
	entry := historyEntry{
		ID:       r.ID,
		Title:    r.Title,
		Artist:   r.Artist,
		Album:    r.Album,
		PlayedAt: r.PlayedAt.Local().Format("2006-01-02 15:04"),
		Time:     r.PlayedAt,
		Meta:     r.Meta,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, entry); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)

	switch {
	case currentWidth > width:
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis

		// wide runes can leave the truncation one column short
		if resultWidth := runewidth.StringWidth(result); resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		}
		return result
	case currentWidth < width:
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text
}
