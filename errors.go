package chanrpc

import "github.com/pkg/errors"

// Sentinel errors returned at the package's method boundaries. Use
// errors.Cause (github.com/pkg/errors) to recover one of these from a
// wrapped error returned by Router methods.
var (
	// ErrQueueFull is returned by Call and by channel-frame dispatch when
	// the outbound queue is at capacity and no channel can take the frame
	// immediately.
	ErrQueueFull = errors.New("chanrpc: outbound queue full")

	// ErrNoChannel is returned when no channel resolves for a destination
	// and the frame cannot be queued either.
	ErrNoChannel = errors.New("chanrpc: no channel for destination")

	// ErrMalformedFrame is returned (wrapped) by the codec layer when a
	// frame cannot be parsed.
	ErrMalformedFrame = errors.New("chanrpc: malformed frame")

	// ErrWrongDestination is raised when an incoming frame's dst is set and
	// does not match the router's own identity.
	ErrWrongDestination = errors.New("chanrpc: frame addressed to a different destination")

	// ErrUnknownMethod is traced (see Trace.Error) when no handler is
	// registered for a request's method; the 404 reply text sent to the
	// peer is a fixed human-readable message, not this error's own text.
	ErrUnknownMethod = errors.New("chanrpc: no handler for method")

	// ErrDuplicateMethod is returned by AddHandler when a method is already
	// registered.
	ErrDuplicateMethod = errors.New("chanrpc: handler already registered for method")

	// ErrDuplicateChannel is returned by AddChannel when dst is already in
	// use by another registered channel.
	ErrDuplicateChannel = errors.New("chanrpc: destination already registered")

	// ErrClosed is returned by operations attempted after Free.
	ErrClosed = errors.New("chanrpc: router is closed")

	// ErrCallTimeout's text is passed to a call's reply callback as the
	// Reply's ErrorMsg, with ErrorCode 504, if the optional per-call
	// deadline in CallOptions.Timeout elapses before a reply arrives. See
	// Router.ExpireTimeouts.
	ErrCallTimeout = errors.New("chanrpc: call timed out waiting for reply")
)
