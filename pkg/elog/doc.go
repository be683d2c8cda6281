// Package elog is shillgo's structured event logging ambient stack, in the
// idiom of the teacher's pkg/log: a small Logger interface, a typed Event,
// a CBOR-encoded file sink for durable capture, and an slog.Logger adapter
// for human-readable console output. Components never write to stdout
// directly; they call Logger.Log with a typed Event.
package elog
