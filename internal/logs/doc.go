// Package logs tails the daemon log file for `filepilot logs`.
//
// A negative offset asks for the last N lines; any other offset continues
// from where the previous read stopped. Follow reads poll until a line
// arrives or the wait elapses.
package logs
