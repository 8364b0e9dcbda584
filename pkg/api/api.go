// Package api defines the wire contract of the chit fund RPC services:
// request messages, the result envelope every operation returns, and the
// JSON codec the handlers and clients speak.
package api

import (
	"encoding/json"
	"fmt"
)

// Result is the envelope returned by every operation.
//
// Domain failures (permission, validation, state) travel inside the envelope
// with Success=false; only transport failures surface as Connect errors.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    T      `json:"data"`
}

// Outcome reports whether the call succeeded and its error code, if any.
func (r *Result[T]) Outcome() (bool, string) {
	return r.Success, r.Code
}

// Outcomer is implemented by every *Result.
type Outcomer interface {
	Outcome() (success bool, code string)
}

// Empty is the payload of operations that return no data.
type Empty struct{}

// JSONCodec marshals plain Go messages as JSON. It is registered under the
// "json" name so that Connect's application/json content type maps onto it.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
