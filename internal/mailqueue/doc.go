// Package mailqueue is the durable at-least-once delivery queue for
// outbound email.
//
// Producers enqueue items; the processor claims a bounded batch through a
// conditional atomic status transition and hands each claimed item to the
// delivery transport. Concurrent processors may race for the same batch;
// the conditional write is the only concurrency primitive, there is no
// lock or leader election. Items are never deleted, including dead
// letters (FAILED with the retry budget exhausted).
package mailqueue
