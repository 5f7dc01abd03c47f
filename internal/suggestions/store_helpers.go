package suggestions

import (
	"fmt"
	"strings"
	"time"
)

const suggestionColumns = "id, file_name, file_size, download_date, current_path, summary, suggested_paths, received_at"

// timestampLayout is fixed width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(timestampLayout)
}

func scanSuggestion(scanner interface{ Scan(dest ...any) error }) (*Suggestion, error) {
	var (
		s           Suggestion
		pathsRaw    string
		receivedRaw string
	)
	if err := scanner.Scan(
		&s.ID,
		&s.FileName,
		&s.FileSize,
		&s.DownloadDate,
		&s.CurrentPath,
		&s.Summary,
		&pathsRaw,
		&receivedRaw,
	); err != nil {
		return nil, err
	}

	paths, err := DecodePaths(pathsRaw)
	if err != nil {
		return nil, fmt.Errorf("suggestion %d: %w", s.ID, err)
	}
	s.SuggestedPaths = paths
	s.ReceivedAt = parseTimeString(receivedRaw)
	return &s, nil
}

func parseTimeString(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return ts
	}
	return time.Time{}
}
