// Package errors defines sentinel errors for all RPCs. Return these unwrapped — wrapping changes the gRPC code on the wire.
package errors

import "github.com/heroiclabs/nakama-common/runtime"

// gRPC status codes.
const (
	CodeInternal   = 13 // codes.Internal
	CodeInvalidArg = 3  // codes.InvalidArgument
	CodeForbidden  = 7  // codes.PermissionDenied
)

// Unified error definitions
var (
	// Internal errors (code 13)
	ErrInternalError = runtime.NewError("internal server error", CodeInternal)
	ErrMarshal       = runtime.NewError("cannot marshal type", CodeInternal)
	ErrUnmarshal     = runtime.NewError("cannot unmarshal type", CodeInternal)

	// Invalid argument errors (code 3)
	ErrNoUserIdFound  = runtime.NewError("no user ID in context", CodeInvalidArg)
	ErrBattleNotFound = runtime.NewError("battle not found", CodeInvalidArg)

	// Forbidden errors (code 7)
	ErrNotParticipant = runtime.NewError("not a participant in this battle", CodeForbidden)
)
