package suggestions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup for an id that is not stored.
var ErrNotFound = errors.New("suggestion not found")

// Insert durably stores a candidate and returns the record with its assigned
// id and receive time. When Insert returns nil the row has been committed.
func (s *Store) Insert(ctx context.Context, c Candidate) (*Suggestion, error) {
	ctx = ensureContext(ctx)
	if err := c.Validate(); err != nil {
		return nil, &PersistenceError{Op: "insert", Err: err}
	}
	paths, err := EncodePaths(c.SuggestedPaths)
	if err != nil {
		return nil, &PersistenceError{Op: "insert", Err: err}
	}

	var (
		id         int64
		receivedAt = s.clock.Next()
	)
	err = retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			`INSERT INTO suggestions (file_name, file_size, download_date, current_path, summary, suggested_paths, received_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.FileName, c.FileSize, c.DownloadDate, c.CurrentPath, c.Summary, paths, formatTimestamp(receivedAt),
		)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return nil, persistenceError("insert", err)
	}

	return &Suggestion{
		ID:             id,
		FileName:       c.FileName,
		FileSize:       c.FileSize,
		DownloadDate:   c.DownloadDate,
		CurrentPath:    c.CurrentPath,
		Summary:        c.Summary,
		SuggestedPaths: append([]string(nil), c.SuggestedPaths...),
		ReceivedAt:     receivedAt,
	}, nil
}

// ListOption adjusts ListAll.
type ListOption func(*listOptions)

type listOptions struct {
	newestFirst bool
	limit       int
}

// NewestFirst reverses the default oldest-first order.
func NewestFirst() ListOption {
	return func(o *listOptions) { o.newestFirst = true }
}

// Limit caps the number of returned records. Zero means no limit.
func Limit(n int) ListOption {
	return func(o *listOptions) { o.limit = n }
}

// ListAll returns every stored suggestion ordered by receive time, oldest first.
func (s *Store) ListAll(ctx context.Context, opts ...ListOption) ([]*Suggestion, error) {
	ctx = ensureContext(ctx)
	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}

	order := "received_at ASC, id ASC"
	if o.newestFirst {
		order = "received_at DESC, id DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM suggestions ORDER BY %s", suggestionColumns, order)
	args := []any{}
	if o.limit > 0 {
		query += " LIMIT ?"
		args = append(args, o.limit)
	}

	var result []*Suggestion
	err := retryOnBusy(ctx, func() error {
		result = result[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			sug, err := scanSuggestion(rows)
			if err != nil {
				return err
			}
			result = append(result, sug)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, persistenceError("list", err)
	}
	return result, nil
}

// Get fetches a suggestion by id, returning ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, id int64) (*Suggestion, error) {
	ctx = ensureContext(ctx)
	var sug *Suggestion
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT %s FROM suggestions WHERE id = ?", suggestionColumns), id)
		var scanErr error
		sug, scanErr = scanSuggestion(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("get", err)
	}
	return sug, nil
}

// Delete removes the record with id. Deleting an absent id is not an error;
// the returned bool reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM suggestions WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, persistenceError("delete", err)
	}
	return affected > 0, nil
}

// Count returns the number of stored suggestions.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var n int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM suggestions").Scan(&n)
	})
	if err != nil {
		return 0, persistenceError("count", err)
	}
	return n, nil
}
