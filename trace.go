package chanrpc

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/imdario/mergo"
)

// unique type to prevent assignment from outside this package.
type traceContextKey struct{}

// Trace defines a structure for handling lifecycle and protocol events. Any
// field left nil is a no-op. Logging itself is explicitly out of the core's
// scope (section 1); Trace is the seam through which an embedder plugs its
// own logger in, the same shape as netconf/client.ClientTrace.
type Trace struct {
	// ChannelOpened is called when a channel transitions to open, dst may
	// be empty if not yet learned.
	ChannelOpened func(channelType, dst string)

	// ChannelClosed is called when a channel transitions to closed.
	ChannelClosed func(channelType, dst string)

	// FrameReceived is called after a frame has been parsed successfully.
	FrameReceived func(channelType string, e *Envelope)

	// FrameDropped is called when an incoming frame is discarded (malformed,
	// wrong destination, or an unknown response id).
	FrameDropped func(channelType, reason string)

	// FrameSent is called after a frame has been handed to a channel or
	// enqueued. queued indicates which.
	FrameSent func(dst string, queued bool)

	// HandlerInvoked is called immediately before a registered handler's
	// callback runs.
	HandlerInvoked func(method string, trusted bool)

	// Error is called on internal error conditions, such as a channel
	// reporting a send failure or a request for an unregistered method (the
	// latter is also answered with a 404 reply).
	Error func(context, dst string, err error)
}

// NoOpTrace is a Trace with every hook nil; it is the value substituted
// when no trace has been installed on a context.
var NoOpTrace = &Trace{}

// The following nil-checked invokers let the dispatcher call every hook
// unconditionally without each call site re-testing for nil, the same
// shape net/http/httptrace.ClientTrace's own callers use.

func (t *Trace) channelOpened(channelType, dst string) {
	if t.ChannelOpened != nil {
		t.ChannelOpened(channelType, dst)
	}
}

func (t *Trace) channelClosed(channelType, dst string) {
	if t.ChannelClosed != nil {
		t.ChannelClosed(channelType, dst)
	}
}

func (t *Trace) frameReceived(channelType string, e *Envelope) {
	if t.FrameReceived != nil {
		t.FrameReceived(channelType, e)
	}
}

func (t *Trace) frameDropped(channelType, reason string) {
	if t.FrameDropped != nil {
		t.FrameDropped(channelType, reason)
	}
}

func (t *Trace) frameSent(dst string, queued bool) {
	if t.FrameSent != nil {
		t.FrameSent(dst, queued)
	}
}

func (t *Trace) handlerInvoked(method string, trusted bool) {
	if t.HandlerInvoked != nil {
		t.HandlerInvoked(method, trusted)
	}
}

func (t *Trace) error(context, dst string, err error) {
	if t.Error != nil {
		t.Error(context, dst, err)
	}
}

// StdLogTrace logs every event via the standard library "log" package.
// Equivalent in spirit to the teacher's DefaultLoggingHooks/DiagnosticLoggingHooks.
var StdLogTrace = &Trace{
	ChannelOpened: func(channelType, dst string) {
		log.Printf("chanrpc: channel %s opened dst=%q", channelType, dst)
	},
	ChannelClosed: func(channelType, dst string) {
		log.Printf("chanrpc: channel %s closed dst=%q", channelType, dst)
	},
	FrameReceived: func(channelType string, e *Envelope) {
		log.Printf("chanrpc: recv via %s id=%d method=%q", channelType, e.ID, e.Method)
	},
	FrameDropped: func(channelType, reason string) {
		log.Printf("chanrpc: dropped frame via %s: %s", channelType, reason)
	},
	FrameSent: func(dst string, queued bool) {
		log.Printf("chanrpc: sent to %q queued=%v", dst, queued)
	},
	HandlerInvoked: func(method string, trusted bool) {
		log.Printf("chanrpc: invoking %q trusted=%v", method, trusted)
	},
	Error: func(ctx, dst string, err error) {
		log.Printf("chanrpc: error context=%q dst=%q: %v", ctx, dst, err)
	},
}

// NewCountingTrace returns a Trace whose hooks increment atomic counters, for
// tests that want to assert how many times an event class fired without
// scraping log output.
func NewCountingTrace() *CountingTrace {
	ct := &CountingTrace{}
	ct.Trace = &Trace{
		ChannelOpened:  func(string, string) { atomic.AddInt64(&ct.Opened, 1) },
		ChannelClosed:  func(string, string) { atomic.AddInt64(&ct.Closed, 1) },
		FrameReceived:  func(string, *Envelope) { atomic.AddInt64(&ct.Received, 1) },
		FrameDropped:   func(string, string) { atomic.AddInt64(&ct.Dropped, 1) },
		FrameSent:      func(string, bool) { atomic.AddInt64(&ct.Sent, 1) },
		HandlerInvoked: func(string, bool) { atomic.AddInt64(&ct.Invoked, 1) },
		Error:          func(string, string, error) { atomic.AddInt64(&ct.Errors, 1) },
	}
	return ct
}

// CountingTrace counts trace events instead of logging them.
type CountingTrace struct {
	*Trace
	Opened, Closed, Received, Dropped, Sent, Invoked, Errors int64
}

// WithTrace returns a new context derived from ctx such that a Router
// operating with it will report through trace.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// ContextTrace returns a copy of the Trace installed on ctx, merged over
// NoOpTrace. Since every NoOpTrace hook is nil, fields left nil stay nil;
// the router skips nil hooks. If none was installed, it returns NoOpTrace.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(traceContextKey{}).(*Trace)
	if trace == nil {
		return NoOpTrace
	}
	merged := *trace
	_ = mergo.Merge(&merged, NoOpTrace)
	return &merged
}
