package suggestions_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"filepilot/internal/suggestions"
	"filepilot/internal/testsupport"
)

func sampleCandidate(name string, paths ...string) suggestions.Candidate {
	return suggestions.Candidate{
		FileName:       name,
		FileSize:       2048,
		DownloadDate:   "2024-03-09T10:00:00Z",
		CurrentPath:    "/home/u/Downloads/" + name,
		Summary:        "quarterly report",
		SuggestedPaths: paths,
	}
}

func TestInsertAssignsIDAndRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	paths := []string{"/home/u/Documents/Finance", "/home/u/Archive", "/home/u/Documents/Finance"}
	inserted, err := store.Insert(ctx, sampleCandidate("report.pdf", paths...))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if inserted.ID <= 0 {
		t.Fatalf("expected positive id, got %d", inserted.ID)
	}
	if inserted.ReceivedAt.IsZero() {
		t.Fatal("expected receive time to be set")
	}

	fetched, err := store.Get(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !reflect.DeepEqual(fetched.SuggestedPaths, paths) {
		t.Fatalf("paths not preserved: got %v want %v", fetched.SuggestedPaths, paths)
	}
	if fetched.FileName != "report.pdf" || fetched.FileSize != 2048 || fetched.Summary != "quarterly report" {
		t.Fatalf("unexpected fetched suggestion: %#v", fetched)
	}
	if !fetched.ReceivedAt.Equal(inserted.ReceivedAt) {
		t.Fatalf("receive time drifted: got %v want %v", fetched.ReceivedAt, inserted.ReceivedAt)
	}
}

func TestInsertRejectsInvalidCandidates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cases := []struct {
		name string
		cand suggestions.Candidate
	}{
		{"no paths", sampleCandidate("a.pdf")},
		{"blank path", sampleCandidate("a.pdf", "/x", " ")},
		{"no file name", sampleCandidate("", "/x")},
		{"negative size", func() suggestions.Candidate {
			c := sampleCandidate("a.pdf", "/x")
			c.FileSize = -1
			return c
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Insert(ctx, tc.cand)
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *suggestions.PersistenceError
			if !errors.As(err, &perr) {
				t.Fatalf("expected PersistenceError, got %T", err)
			}
			if suggestions.IsTransient(err) {
				t.Fatal("validation failures must not be transient")
			}
		})
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rows after rejected inserts, got %d", count)
	}
}

func TestListAllOrdersByReceiveTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	for i := 0; i < 4; i++ {
		if _, err := store.Insert(ctx, sampleCandidate(fmt.Sprintf("file-%d.txt", i), "/dest")); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 suggestions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ReceivedAt.Before(all[i-1].ReceivedAt) {
			t.Fatalf("list not ordered at %d: %v before %v", i, all[i].ReceivedAt, all[i-1].ReceivedAt)
		}
	}
	if all[0].FileName != "file-0.txt" {
		t.Fatalf("expected oldest first, got %s", all[0].FileName)
	}

	newest, err := store.ListAll(ctx, suggestions.NewestFirst(), suggestions.Limit(2))
	if err != nil {
		t.Fatalf("ListAll newest failed: %v", err)
	}
	if len(newest) != 2 || newest[0].FileName != "file-3.txt" {
		t.Fatalf("unexpected newest-first result: %#v", newest)
	}
}

func TestReceiveTimeNeverRunsBackwards(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC),
		time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	idx := 0
	store.SetClock(func() time.Time {
		ts := times[idx]
		idx++
		return ts
	})

	first, err := store.Insert(ctx, sampleCandidate("first.txt", "/a"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	second, err := store.Insert(ctx, sampleCandidate("second.txt", "/a"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if second.ReceivedAt.Before(first.ReceivedAt) {
		t.Fatalf("receive time went backwards: %v < %v", second.ReceivedAt, first.ReceivedAt)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if all[0].ID != first.ID || all[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %d then %d", all[0].ID, all[1].ID)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	keep := testsupport.NewSuggestion(t, store, "keep.txt")
	drop := testsupport.NewSuggestion(t, store, "drop.txt")

	removed, err := store.Delete(ctx, drop.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Fatal("expected first delete to remove a row")
	}
	removed, err = store.Delete(ctx, drop.ID)
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if removed {
		t.Fatal("expected second delete to be a no-op")
	}
	if _, err := store.Delete(ctx, 987654); err != nil {
		t.Fatalf("Delete of unknown id failed: %v", err)
	}

	if _, err := store.Get(ctx, drop.ID); !errors.Is(err, suggestions.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 1 || all[0].ID != keep.ID {
		t.Fatalf("expected only %d to remain, got %#v", keep.ID, all)
	}
}

func TestSuggestionsSurviveReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := suggestions.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first, err := store.Insert(ctx, sampleCandidate("a.txt", "/x"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	second, err := store.Insert(ctx, sampleCandidate("b.txt", "/y", "/z"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	all, err := reopened.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 suggestions after reopen, got %d", len(all))
	}
	if all[0].ID != first.ID || all[1].ID != second.ID {
		t.Fatalf("ids changed across reopen: %d,%d", all[0].ID, all[1].ID)
	}
	if !reflect.DeepEqual(all[1].SuggestedPaths, []string{"/y", "/z"}) {
		t.Fatalf("paths changed across reopen: %v", all[1].SuggestedPaths)
	}

	third, err := reopened.Insert(ctx, sampleCandidate("c.txt", "/w"))
	if err != nil {
		t.Fatalf("Insert after reopen failed: %v", err)
	}
	if third.ID <= second.ID {
		t.Fatalf("expected fresh id above %d, got %d", second.ID, third.ID)
	}
}

func TestHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewSuggestion(t, store, "h.txt")

	health, err := store.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("unexpected missing columns: %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalSuggestions != 1 {
		t.Fatalf("expected 1 suggestion, got %d", health.TotalSuggestions)
	}
	if health.SchemaVersion != 1 {
		t.Fatalf("expected schema version 1, got %d", health.SchemaVersion)
	}
}

func TestPathsCodec(t *testing.T) {
	paths := []string{"/a b/c", `/quote"d`, "/ünïcode"}
	raw, err := suggestions.EncodePaths(paths)
	if err != nil {
		t.Fatalf("EncodePaths failed: %v", err)
	}
	decoded, err := suggestions.DecodePaths(raw)
	if err != nil {
		t.Fatalf("DecodePaths failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, paths) {
		t.Fatalf("codec mismatch: got %v want %v", decoded, paths)
	}

	if _, err := suggestions.EncodePaths(nil); !errors.Is(err, suggestions.ErrNoSuggestedPaths) {
		t.Fatalf("expected ErrNoSuggestedPaths, got %v", err)
	}
	if _, err := suggestions.DecodePaths("not json"); err == nil {
		t.Fatal("expected decode error for malformed column")
	}
}
