// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Suggestion calls are forwarded to the daemon, which runs them through the
// same access gate as the display surface. The socket is created 0600 so only
// the owning user can reach it.
package ipc
