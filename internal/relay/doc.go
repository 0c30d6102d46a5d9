// Package relay forwards bytes between the browser's stdio channel and the
// KeeWeb app's local socket.
//
// A single coordinator goroutine owns every piece of mutable state: the two
// write queues, the back-channel connection and its state machine, the
// retry counter, and the timers. Readers, writers, and dials run in helper
// goroutines that only report completions back to the coordinator, so no
// locks are needed and each queue has at most one write in flight.
//
// The first bytes sent to KeeWeb are always the handshake built by
// BuildHandshake, followed by stdin data in arrival order. Bytes from KeeWeb
// reach stdout in arrival order. The connection is retried, and KeeWeb
// launched once, only until the first successful connect; losing an
// established connection ends the relay.
package relay
