// Package organizer is the HTTP client for the external organizer service.
//
// The organizer owns the actual file moves. filepilot calls it when the user
// accepts a suggested destination (commit-suggestion), when it commits a move
// inside a batch plan (commit), and when it asks for a batch plan for a
// directory (batch-organize). The service reports failures as JSON objects
// with a "detail" field; those become *StatusError values.
package organizer
