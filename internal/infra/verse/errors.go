// Package verse talks to the Interverse ledger node over its two transports:
// a request/response HTTP API and a push WebSocket stream. Nothing else in
// the SDK touches the transports directly.
package verse

import (
	"errors"
	"fmt"

	"github.com/FabianB14/InterverseSDK/internal/codec"
)

// Error kinds. Match with errors.Is; every error leaving this package wraps
// exactly one of them.
var (
	// ErrConfigurationInvalid: missing node URL, game id, or API key.
	// Reported synchronously, no I/O attempted.
	ErrConfigurationInvalid = errors.New("configuration invalid")

	// ErrInvalidArgument: a required argument was empty. No request is sent.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransportError: the transport itself failed (refused, DNS, abrupt
	// close, open circuit breaker).
	ErrTransportError = errors.New("transport error")

	// ErrRemoteRejected: the node answered with a non-success status or a
	// success=false envelope.
	ErrRemoteRejected = errors.New("remote rejected")

	// ErrMalformedPayload: body or frame did not match the expected shape.
	ErrMalformedPayload = codec.ErrMalformedPayload
)

// RemoteError carries the node's status code and body for ErrRemoteRejected.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote rejected: HTTP %d: %s", e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error { return ErrRemoteRejected }
