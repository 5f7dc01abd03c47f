package testsupport

import (
	"context"
	"testing"

	"filepilot/internal/config"
	"filepilot/internal/suggestions"
)

// MustOpenStore opens a suggestions.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *suggestions.Store {
	t.Helper()

	store, err := suggestions.Open(cfg)
	if err != nil {
		t.Fatalf("suggestions.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSuggestion stores a suggestion for fileName with the given destinations.
func NewSuggestion(t testing.TB, store *suggestions.Store, fileName string, paths ...string) *suggestions.Suggestion {
	t.Helper()

	if len(paths) == 0 {
		paths = []string{"/home/u/Documents"}
	}
	sug, err := store.Insert(context.Background(), suggestions.Candidate{
		FileName:       fileName,
		FileSize:       1024,
		DownloadDate:   "2024-01-01T00:00:00Z",
		CurrentPath:    "/home/u/Downloads/" + fileName,
		Summary:        "test suggestion",
		SuggestedPaths: paths,
	})
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return sug
}
