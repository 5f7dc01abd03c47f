// Package api implements the privileged calls the display surface makes and
// defines the wire types shared by the HTTP surface, IPC and the CLI.
//
// # Privileged calls
//
// Service.GetSuggestions, Service.DeleteSuggestion and Service.AcceptSuggestion
// each take the caller's origin and pass it through the access gate before
// the store is touched. DeleteSuggestion and AcceptSuggestion validate their
// arguments first, so malformed input fails with a gate.ValidationError even
// from an authorized origin.
//
// # Wire types
//
// SuggestionDTO mirrors suggestions.Suggestion with camelCase JSON tags and a
// millisecond RFC3339 receivedAt. DaemonStatus aggregates what the daemon
// reports over IPC.
package api
