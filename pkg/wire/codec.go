package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to build CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to build CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a CBOR encoder writing to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeMethodCall encodes a MethodCall to CBOR bytes.
func EncodeMethodCall(call *MethodCall) ([]byte, error) {
	if !call.Method.IsValid() {
		return nil, fmt.Errorf("wire: invalid method %d", call.Method)
	}
	return Marshal(call)
}

// DecodeMethodCall decodes CBOR bytes into a MethodCall.
func DecodeMethodCall(data []byte) (*MethodCall, error) {
	var call MethodCall
	if err := Unmarshal(data, &call); err != nil {
		return nil, fmt.Errorf("wire: decode method call: %w", err)
	}
	if !call.Method.IsValid() {
		return nil, fmt.Errorf("wire: invalid method %d", call.Method)
	}
	return &call, nil
}

// EncodeMethodReply encodes a MethodReply to CBOR bytes.
func EncodeMethodReply(reply *MethodReply) ([]byte, error) {
	return Marshal(reply)
}

// DecodeMethodReply decodes CBOR bytes into a MethodReply.
func DecodeMethodReply(data []byte) (*MethodReply, error) {
	var reply MethodReply
	if err := Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("wire: decode method reply: %w", err)
	}
	return &reply, nil
}

// EncodePropertyChanged encodes a PropertyChanged signal to CBOR bytes.
func EncodePropertyChanged(sig *PropertyChanged) ([]byte, error) {
	return Marshal(sig)
}

// DecodePropertyChanged decodes CBOR bytes into a PropertyChanged signal.
func DecodePropertyChanged(data []byte) (*PropertyChanged, error) {
	var sig PropertyChanged
	if err := Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("wire: decode property changed: %w", err)
	}
	return &sig, nil
}
