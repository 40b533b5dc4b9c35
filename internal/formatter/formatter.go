// package formatter renders blocklist data for the CLI (CSV, Markdown, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/shared"
)

// Format is an output format name accepted by --format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Artists renders artists in format f.
func Artists(artists []models.Artist, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ArtistsToCSV(artists)
	case FormatMarkdown:
		return ArtistsToMarkdown(artists)
	case FormatJSON:
		return ToJSON(map[string][]models.Artist{"artists": artists})
	default:
		return ArtistsToText(artists)
	}
}

// ArtistsToCSV converts artists to CSV with columns: ID, Name, Spotify ID, URL
func ArtistsToCSV(artists []models.Artist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Spotify ID", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range artists {
		record := []string{strconv.FormatInt(a.ID, 10), a.Name, a.SpotifyID, a.SpotifyURL()}
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

// ArtistsToMarkdown renders a heading and a table of artists linked to Spotify
func ArtistsToMarkdown(artists []models.Artist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Blocked Artists\n\n")
	fmt.Fprintf(&buf, "**Artists**: %d\n\n", len(artists))

	if len(artists) == 0 {
		buf.WriteString("_The blocklist is empty._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| ID | Artist | Spotify |\n")
	buf.WriteString("|---:|--------|---------|\n")
	for _, a := range artists {
		fmt.Fprintf(&buf, "| %d | %s | [%s](%s) |\n", a.ID, escapeMarkdown(a.Name), a.SpotifyID, a.SpotifyURL())
	}
	return buf.Bytes(), nil
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ArtistsToText renders a numbered plain text list
func ArtistsToText(artists []models.Artist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Blocked artists: %d\n\n", len(artists))
	for i, a := range artists {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, a.Name, a.SpotifyID)
	}
	return buf.Bytes(), nil
}

// SubmissionsToText renders pending submissions, newest first as given.
func SubmissionsToText(subs []models.Submission) ([]byte, error) {
	var buf bytes.Buffer

	if len(subs) == 0 {
		buf.WriteString("No pending submissions.\n")
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "Pending submissions: %d\n\n", len(subs))
	for _, s := range subs {
		fmt.Fprintf(&buf, "[%d] %s\n", s.ID, s.Name)
		fmt.Fprintf(&buf, "    %s\n", s.SpotifyURL())
		fmt.Fprintf(&buf, "    %s, submitted %s\n", s.Status, s.CreatedAt.Local().Format(time.DateTime))
	}
	return buf.Bytes(), nil
}

// DailySongToText renders the song of the day
func DailySongToText(song *models.DailySong) ([]byte, error) {
	if song == nil {
		return nil, shared.ErrDailySongNotSelected
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Song of the day: %s\n", song.SongName)
	fmt.Fprintf(&buf, "Artist: %s\n", song.ArtistName)
	fmt.Fprintf(&buf, "Listen: %s\n", song.SpotifyURL)
	if song.ImageURL != nil {
		fmt.Fprintf(&buf, "Cover: %s\n", *song.ImageURL)
	}
	return buf.Bytes(), nil
}

// ToJSON renders v as indented JSON with a trailing newline
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes data to path, creating or truncating it.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
