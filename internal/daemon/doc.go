// Package daemon coordinates the long-running filepilot process.
//
// It wires the suggestion store, the message consumer, the notification
// dispatcher and the display surface server into a single lifecycle, using a
// flock-based lock so only one consumer ever writes to a given store. The IPC
// server embeds the daemon to expose status, suggestion maintenance and
// diagnostics to the CLI.
//
// Keep orchestration here: ingestion rules live in consumer, persistence in
// suggestions, and the origin allow-list in gate.
package daemon
