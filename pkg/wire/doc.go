// Package wire defines the bus message types exchanged between the daemon
// core and the outside world: per-object property maps, per-object method
// calls with deferred replies, and PropertyChanged signals. Messages are
// CBOR-encoded (RFC 8949) with integer keys, in the same idiom the teacher
// uses for its own request/response/notification envelopes.
//
// # Deferred replies
//
// A MethodCall whose effect is asynchronous (e.g. Connect) replies
// immediately with shillerr.OperationInitiated and a reply token; the actual
// result is delivered later as a second MethodReply carrying the same
// token. Synchronous failures (bad arguments, unknown object) reply once
// with the final status and no token.
package wire
