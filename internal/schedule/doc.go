// Package schedule implements the recurring job scheduler: cadence
// specifications with their next-run math, a named job registry with
// upsert semantics, and the single-flight tick loop that drives due jobs.
//
// The scheduler never persists anything; registrations are rebuilt at
// process start. A restart therefore loses only "overdue by how much"
// information, never correctness.
package schedule
