// Package daemonctl holds the CLI side of talking to the daemon, with offline
// fallbacks that read the store directly when no daemon is running.
package daemonctl
