package ipc

import (
	"filepilot/internal/api"
	"filepilot/internal/suggestions"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and consumer status information.
type StatusResponse struct {
	api.DaemonStatus
	LockPath string `json:"lock_path"`
}

// SuggestionListRequest lists pending suggestions.
type SuggestionListRequest struct{}

// SuggestionListResponse contains pending suggestions, oldest first.
type SuggestionListResponse struct {
	Suggestions []api.SuggestionDTO `json:"suggestions"`
}

// SuggestionDeleteRequest removes a suggestion by id.
type SuggestionDeleteRequest struct {
	ID int64 `json:"id"`
}

// SuggestionDeleteResponse acknowledges a delete. Deleting a missing id
// still succeeds.
type SuggestionDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// SuggestionAcceptRequest commits a suggestion to one of its destinations.
type SuggestionAcceptRequest struct {
	ID          int64  `json:"id"`
	Destination string `json:"destination"`
}

// SuggestionAcceptResponse acknowledges an accept.
type SuggestionAcceptResponse struct {
	Accepted bool `json:"accepted"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	suggestions.DatabaseHealth
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome. Publish
// failures travel in Error so the topic and message still reach the caller.
type TestNotificationResponse struct {
	Topic   string `json:"topic"`
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
