// Command filepilot is the CLI for the filepilot suggestion daemon.
//
// `filepilot run` hosts the daemon in the foreground. The remaining commands
// talk to it over the IPC socket (status, suggestions, db-health,
// test-notify), publish test messages to the broker, or call the organizer
// service directly. Status and db-health fall back to reading the store when
// the daemon is offline.
package main
