// Package consumer turns broker deliveries from the suggestion queue into
// stored suggestions.
//
// Deliveries are handled one at a time in receive order. Each one is parsed,
// persisted, dispatched to the display surface and only then acknowledged, so
// a crash before the ack leads to redelivery rather than loss. Malformed
// payloads are rejected without requeue. Transient store failures requeue the
// delivery a bounded number of times, counted per body fingerprint, before
// the message is dead-lettered like a malformed one.
//
// Run owns the broker connection and reconnects with exponential backoff; a
// broker outage never stops the process.
package consumer
