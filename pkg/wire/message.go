package wire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/shillgo/shillgo/pkg/shillerr"
)

// CBOR map keys for message encoding. Integer keys keep encoded messages
// small, matching the teacher's convention for its own envelopes.
const (
	keyMessageID = 1
	keyObject    = 2
	keyMethodOrStatus = 3
	keyArgsOrPayload  = 4
	keyToken          = 5
)

// ReplyMessageID is reserved for a MethodReply that completes a previously
// deferred call; it carries no fresh MessageID of its own, only the
// original call's Token.
const ReplyMessageID uint32 = 0

// MethodCall represents a bus method invocation against an object. Args is
// kept as a raw CBOR payload (rather than decoded eagerly into an `any`,
// which would only ever yield a generic map) so a dispatcher can decode it
// into the concrete argument type once it knows which Method it is.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // uint32
//	  2: object,     // string: bus object path
//	  3: method,     // uint8
//	  4: args        // method-specific arguments
//	}
type MethodCall struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Object    string          `cbor:"2,keyasint"`
	Method    Method          `cbor:"3,keyasint"`
	Args      cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// MoveArgs is the argument payload for MoveBefore/MoveAfter.
type MoveArgs struct {
	Other string `cbor:"1,keyasint"`
}

// DecodeArgs decodes call's raw Args payload into v. Returns nil without
// touching v if the call carried no arguments.
func (c *MethodCall) DecodeArgs(v any) error {
	if len(c.Args) == 0 {
		return nil
	}
	return Unmarshal(c.Args, v)
}

// SetArgs encodes v as call's Args payload.
func (c *MethodCall) SetArgs(v any) error {
	raw, err := Marshal(v)
	if err != nil {
		return err
	}
	c.Args = raw
	return nil
}

// MethodReply represents the reply to a MethodCall. If Status is
// OperationInitiated, Token identifies the deferred reply that will follow;
// any other status is final.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // uint32: matches the call, or 0 if this completes a deferred reply
//	  3: status,     // uint8
//	  4: payload     // optional result data
//	  5: token       // string: UUID, present when status == OperationInitiated and on the reply that completes it
//	}
type MethodReply struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Status    shillerr.Status `cbor:"3,keyasint"`
	Payload   any             `cbor:"4,keyasint,omitempty"`
	Token     string          `cbor:"5,keyasint,omitempty"`
}

// IsDeferred reports whether this reply only announces a later completion.
func (r *MethodReply) IsDeferred() bool {
	return r.Status == shillerr.OperationInitiated
}

// PropertyChanged is the signal emitted when a property value changes on an
// object.
//
// CBOR encoding:
//
//	{
//	  2: object,  // string
//	  4: changes  // map of property name -> new value
//	}
type PropertyChanged struct {
	Object  string         `cbor:"2,keyasint"`
	Changes map[string]any `cbor:"4,keyasint"`
}

// GetAllRequest asks for the full property map of an object.
type GetAllRequest struct {
	Object string `cbor:"2,keyasint"`
}

// GetAllReply carries the full property map of an object.
type GetAllReply struct {
	Properties map[string]any `cbor:"4,keyasint"`
}

// SetPropertyRequest sets a single property.
type SetPropertyRequest struct {
	Object   string `cbor:"2,keyasint"`
	Property string `cbor:"3,keyasint"`
	Value    any    `cbor:"4,keyasint"`
}

// ClearPropertyRequest clears a single property back to its default.
type ClearPropertyRequest struct {
	Object   string `cbor:"2,keyasint"`
	Property string `cbor:"3,keyasint"`
}
