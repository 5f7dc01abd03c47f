// Package gate authorizes privileged calls made by the display surface.
//
// The allow-list holds two origins fixed at startup: the development server
// origin (accepted only when dev mode is enabled) and the exact file URL of
// the packaged UI entry point. Anything else fails with a SecurityError before
// the store is touched. The package also validates caller-supplied ids so
// malformed input fails with a ValidationError.
package gate
