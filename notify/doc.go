// Package notify provides ledger.Sink implementations that forward committed
// notifications to downstream consumers: an in-memory queue for tests and
// single-process deployments, a Redis list for out-of-process consumers, and
// a structured log sink.
package notify
