// package formatter renders ranked top tracks to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/toptracks/internal/models"
	"github.com/desertthunder/toptracks/internal/shared"
)

// Format names an export format.
type Format string

const (
	Text     Format = "text"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	JSON     Format = "json"
)

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	switch f {
	case Markdown:
		return "md"
	case Text:
		return "txt"
	}
	return string(f)
}

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt", "":
		return Text, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Export is a ranked track list for one time range.
type Export struct {
	Range     models.TimeRange `json:"range"`
	Generated time.Time        `json:"generated"`
	Tracks    []models.Track   `json:"tracks"`
}

// Title returns the heading used by the text and Markdown formats.
func (e *Export) Title() string {
	return fmt.Sprintf("Top Tracks - %s", e.Range.Label())
}

// ExportToCSV converts an Export to CSV with columns: Rank, ID, Title, Artist, Album, URI
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "ID", "Title", "Artist", "Album", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			strconv.Itoa(track.Rank),
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// linkText escapes the characters that would end Markdown link text early.
var linkText = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

// ExportToMarkdown converts an Export to a Markdown document linking each track.
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title())
	fmt.Fprintf(&buf, "**Range**: `%s`\n", export.Range)
	if !export.Generated.IsZero() {
		fmt.Fprintf(&buf, "**Generated**: %s\n", export.Generated.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	buf.WriteString("## Tracks\n\n")
	for _, track := range export.Tracks {
		title := track.Title
		if track.ID != "" {
			title = fmt.Sprintf("[%s](https://open.spotify.com/track/%s)", linkText.Replace(track.Title), track.ID)
		}
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s\n", track.Rank, track.Artist, title, albumPart)
	}

	return buf.Bytes(), nil
}

// ExportToText converts an Export to plain text format
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", export.Title())
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for _, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", track.Rank, track.Artist, track.Title)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts an Export to indented JSON.
func ExportToJSON(export *Export) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Render converts export to format.
func Render(export *Export, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return ExportToCSV(export)
	case Markdown:
		return ExportToMarkdown(export)
	case JSON:
		return ExportToJSON(export)
	case Text:
		return ExportToText(export)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

// WriteExport renders export and writes it to path.
//
// Defaults to top_{range}.{ext} in the working directory; parent directories are created.
func WriteExport(export *Export, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("top_%s.%s", export.Range, format.Ext())
	}

	data, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}
