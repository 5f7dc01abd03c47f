// Package surface serves the display surface over local HTTP.
//
// Privileged calls are POSTs under /ipc and go through api.Service, so every
// call is checked by the access gate. Pushes from the dispatcher land in a
// Hub and are streamed to connected clients as server-sent events on
// /events. The daemon attaches the hub to the dispatcher only while at least
// one stream is connected.
package surface
