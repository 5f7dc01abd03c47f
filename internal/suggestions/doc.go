// Package suggestions persists destination suggestions in SQLite and is the
// single source of truth for what the display surface can see.
//
// A Suggestion exists in the store only once its INSERT has committed; there
// is no in-memory state. Records are immutable: they are created by the
// message consumer, listed and deleted by privileged calls, and never updated.
// Suggested paths are stored as a JSON array in a text column through the
// codec in codec.go.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package suggestions
