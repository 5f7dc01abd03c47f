package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"filepilot/internal/gate"
	"filepilot/internal/logging"
	"filepilot/internal/suggestions"
)

// Privileged call names, used for audit logs and metrics labels.
const (
	CallGetSuggestions   = "getSuggestions"
	CallDeleteSuggestion = "deleteSuggestion"
	CallAcceptSuggestion = "acceptSuggestion"
)

// SuggestionStore abstracts the store operations privileged calls need.
type SuggestionStore interface {
	ListAll(ctx context.Context, opts ...suggestions.ListOption) ([]*suggestions.Suggestion, error)
	Get(ctx context.Context, id int64) (*suggestions.Suggestion, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Authorizer checks caller origins.
type Authorizer interface {
	Authorize(call, origin string) error
}

// Committer moves a file to an accepted destination.
type Committer interface {
	Configured() bool
	CommitSuggestion(ctx context.Context, srcPath, dstPath string) error
}

// ErrOrganizerUnavailable is returned by AcceptSuggestion without an organizer.
var ErrOrganizerUnavailable = errors.New("organizer is not configured")

// Service exposes the privileged calls behind the access gate.
type Service struct {
	store     SuggestionStore
	gate      Authorizer
	organizer Committer
	logger    *slog.Logger
}

// NewService wires the privileged call service. organizer may be nil, in
// which case AcceptSuggestion always fails.
func NewService(store SuggestionStore, g Authorizer, organizer Committer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:     store,
		gate:      g,
		organizer: organizer,
		logger:    logging.NewComponentLogger(logger, "api"),
	}
}

// GetSuggestions returns every stored suggestion, oldest first.
func (s *Service) GetSuggestions(ctx context.Context, origin string) ([]SuggestionDTO, error) {
	if err := s.gate.Authorize(CallGetSuggestions, origin); err != nil {
		return nil, err
	}
	list, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return FromSuggestions(list), nil
}

// DeleteSuggestion removes a suggestion. Deleting an unknown id succeeds.
func (s *Service) DeleteSuggestion(ctx context.Context, origin string, args DeleteArgs) error {
	id, err := gate.ParseID(args.ID)
	if err != nil {
		return err
	}
	if err := s.gate.Authorize(CallDeleteSuggestion, origin); err != nil {
		return err
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete suggestion %d: %w", id, err)
	}
	s.logger.Info("suggestion deleted",
		logging.String(logging.FieldEventType, "suggestion_deleted"),
		logging.SuggestionID(id),
		logging.Bool("removed", removed),
	)
	return nil
}

// AcceptSuggestion moves the file to one of its suggested destinations
// through the organizer and then deletes the suggestion. The record is kept
// when the move fails.
func (s *Service) AcceptSuggestion(ctx context.Context, origin string, args AcceptArgs) error {
	id, err := gate.ParseID(args.ID)
	if err != nil {
		return err
	}
	dest := strings.TrimSpace(args.Destination)
	if dest == "" {
		return &gate.ValidationError{Field: "destination", Reason: "is required"}
	}
	if err := s.gate.Authorize(CallAcceptSuggestion, origin); err != nil {
		return err
	}

	sug, err := s.store.Get(ctx, id)
	if errors.Is(err, suggestions.ErrNotFound) {
		return &gate.ValidationError{Field: "id", Reason: fmt.Sprintf("suggestion %d does not exist", id)}
	}
	if err != nil {
		return fmt.Errorf("load suggestion %d: %w", id, err)
	}
	if !sug.HasPath(dest) {
		return &gate.ValidationError{Field: "destination", Reason: "is not one of the suggested paths"}
	}
	if s.organizer == nil || !s.organizer.Configured() {
		return ErrOrganizerUnavailable
	}
	if err := s.organizer.CommitSuggestion(ctx, sug.CurrentPath, dest); err != nil {
		logging.WarnWithContext(s.logger, "organizer commit failed", "suggestion_accept_failed",
			logging.SuggestionID(id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file not moved; suggestion kept"),
			logging.String(logging.FieldErrorHint, "check that the organizer service is running"),
		)
		return fmt.Errorf("commit suggestion %d: %w", id, err)
	}
	if _, err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete accepted suggestion %d: %w", id, err)
	}
	s.logger.Info("suggestion accepted",
		logging.String(logging.FieldEventType, "suggestion_accepted"),
		logging.SuggestionID(id),
		logging.String("destination", dest),
	)
	return nil
}
