package api

import (
	"time"

	"filepilot/internal/suggestions"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SuggestionDTO is the transport form of a stored suggestion.
type SuggestionDTO struct {
	ID             int64    `json:"id"`
	FileName       string   `json:"fileName"`
	FileSize       int64    `json:"fileSize"`
	DownloadDate   string   `json:"downloadDate"`
	CurrentPath    string   `json:"currentPath"`
	Summary        string   `json:"summary"`
	SuggestedPaths []string `json:"suggestedPaths"`
	ReceivedAt     string   `json:"receivedAt,omitempty"`
}

// DeleteArgs is the deleteSuggestion request body. ID is decoded loosely so
// that type errors surface as validation failures rather than decode errors.
type DeleteArgs struct {
	ID any `json:"id"`
}

// AcceptArgs is the acceptSuggestion request body.
type AcceptArgs struct {
	ID          any    `json:"id"`
	Destination string `json:"destination"`
}

// ConsumerStatus mirrors the consumer run loop snapshot.
type ConsumerStatus struct {
	State          string           `json:"state"`
	Queue          string           `json:"queue"`
	LastError      string           `json:"lastError,omitempty"`
	Outcomes       map[string]int64 `json:"outcomes"`
	PendingRetries int              `json:"pendingRetries"`
}

// DaemonStatus aggregates runtime information reported by the daemon.
type DaemonStatus struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	StartedAt      string         `json:"startedAt,omitempty"`
	DatabasePath   string         `json:"databasePath"`
	Suggestions    int            `json:"suggestions"`
	Consumer       ConsumerStatus `json:"consumer"`
	SurfaceAddr    string         `json:"surfaceAddr,omitempty"`
	SurfaceClients int            `json:"surfaceClients"`
	LastError      string         `json:"lastError,omitempty"`
}

// FromSuggestion converts a stored suggestion to its transport form.
func FromSuggestion(s *suggestions.Suggestion) SuggestionDTO {
	if s == nil {
		return SuggestionDTO{}
	}
	paths := s.SuggestedPaths
	if paths == nil {
		paths = []string{}
	}
	return SuggestionDTO{
		ID:             s.ID,
		FileName:       s.FileName,
		FileSize:       s.FileSize,
		DownloadDate:   s.DownloadDate,
		CurrentPath:    s.CurrentPath,
		Summary:        s.Summary,
		SuggestedPaths: append([]string(nil), paths...),
		ReceivedAt:     FormatTime(s.ReceivedAt),
	}
}

// FromSuggestions converts a list, preserving order.
func FromSuggestions(list []*suggestions.Suggestion) []SuggestionDTO {
	out := make([]SuggestionDTO, 0, len(list))
	for _, s := range list {
		out = append(out, FromSuggestion(s))
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
