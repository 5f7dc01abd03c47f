package suggestions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Suggestion is one stored destination suggestion for a downloaded file.
type Suggestion struct {
	ID             int64     `json:"id"`
	FileName       string    `json:"fileName"`
	FileSize       int64     `json:"fileSize"`
	DownloadDate   string    `json:"downloadDate"`
	CurrentPath    string    `json:"currentPath"`
	Summary        string    `json:"summary"`
	SuggestedPaths []string  `json:"suggestedPaths"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// Candidate is a suggestion that has been parsed but not yet stored.
type Candidate struct {
	FileName       string
	FileSize       int64
	DownloadDate   string
	CurrentPath    string
	Summary        string
	SuggestedPaths []string
}

// ErrNoSuggestedPaths rejects candidates without any destination.
var ErrNoSuggestedPaths = errors.New("suggested paths must not be empty")

// Validate checks the invariants a candidate must satisfy before insert.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.FileName) == "" {
		return errors.New("file name is required")
	}
	if c.FileSize < 0 {
		return fmt.Errorf("file size must not be negative, got %d", c.FileSize)
	}
	if len(c.SuggestedPaths) == 0 {
		return ErrNoSuggestedPaths
	}
	for i, p := range c.SuggestedPaths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("suggested path %d is blank", i)
		}
	}
	return nil
}

// HasPath reports whether dest is one of the stored candidate destinations.
func (s *Suggestion) HasPath(dest string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.SuggestedPaths {
		if p == dest {
			return true
		}
	}
	return false
}
