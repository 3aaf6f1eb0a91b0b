package chanrpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Codec parses and emits the wire Envelope (section 4.1, section 6.3). It
// is swappable and explicitly external to the core: this package only
// depends on the interface, concrete implementations live in the codec
// subpackage.
type Codec interface {
	// Parse decodes a raw frame into an Envelope, or returns an error
	// wrapping ErrMalformedFrame.
	Parse(frame []byte) (*Envelope, error)

	// Emit encodes e into a frame, applying the field-presence rules of
	// section 4.1.
	Emit(e *Envelope) ([]byte, error)
}

// CallOptions customizes an originated call (section 4.6).
type CallOptions struct {
	// Dst routes the call; empty resolves via the default route.
	Dst string

	// Tag is an opaque correlation token echoed back on the reply. If
	// empty, a fresh one is generated with a UUID (section "DOMAIN STACK").
	Tag string

	// Timeout, if nonzero, arranges for the reply callback to be invoked
	// with ErrCallTimeout if no reply arrives within the duration, the
	// next time ExpireTimeouts runs. Zero means no timeout (the default,
	// matching mg_rpc.c exactly; see SPEC_FULL.md's resolved open
	// question on request lifetime).
	Timeout time.Duration
}

// Router is the RPC multiplexer of this package: it owns the channel
// registry, the outbound queue, the request table, the handler registry,
// and the observer list, and is the single dispatcher event handler tying
// them together (section 2). A Router is not safe for concurrent use from
// multiple goroutines; section 5 specifies a single-threaded cooperative
// scheduling model, so all channel events, handler invocations and queue
// drains must run on one executor.
type Router struct {
	cfg   *Config
	codec Codec
	trace *Trace

	channels  []*ChannelInfo
	queue     *outboundQueue
	requests  *requestTable
	handlers  *handlerRegistry
	observers []*ObserverHandle
	ids       *idGenerator

	closed bool
}

// Create builds a new Router with the given configuration and codec.
// Zero-valued Config fields are defaulted via DefaultConfig. A Trace
// installed on ctx with WithTrace is used for the router's lifetime; if
// none is installed, NoOpTrace applies.
func Create(ctx context.Context, cfg *Config, codec Codec) *Router {
	resolved := resolveConfig(cfg)
	return &Router{
		cfg:      resolved,
		codec:    codec,
		trace:    ContextTrace(ctx),
		queue:    newOutboundQueue(resolved.MaxQueueSize),
		requests: newRequestTable(),
		handlers: newHandlerRegistry(),
		ids:      newIDGenerator(time.Now().UnixNano()),
	}
}

// Free closes every registered channel and releases the router. Further
// operations on it return ErrClosed.
func (r *Router) Free() {
	if r.closed {
		return
	}
	for _, ci := range append([]*ChannelInfo(nil), r.channels...) {
		_ = ci.channel.Close()
	}
	r.closed = true
}

// AddChannel registers ch under dst (DefaultDst for the default route, or
// "" to learn dst from the first received frame) with the given trust
// level.
func (r *Router) AddChannel(dst string, ch Channel, trusted bool) (*ChannelInfo, error) {
	return r.addChannel(dst, ch, trusted)
}

// Connect attempts to open every registered channel.
func (r *Router) Connect(ctx context.Context) error {
	if r.closed {
		return ErrClosed
	}
	var firstErr error
	for _, ci := range r.channels {
		if err := ci.channel.Connect(ctx); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "connect channel %s", ci.channel.Type())
		}
	}
	return firstErr
}

// Disconnect closes every registered channel.
func (r *Router) Disconnect() error {
	var firstErr error
	for _, ci := range append([]*ChannelInfo(nil), r.channels...) {
		if err := ci.channel.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close channel %s", ci.channel.Type())
		}
	}
	return firstErr
}

// IsConnected reports whether at least one registered channel is open.
func (r *Router) IsConnected() bool {
	for _, ci := range r.channels {
		if ci.Open {
			return true
		}
	}
	return false
}

// CanSend reports whether a frame addressed to dst could be transmitted
// immediately (a ready channel resolves for it), without actually sending
// anything.
func (r *Router) CanSend(dst string) bool {
	ci := r.channelInfoByDst(dst)
	return ci != nil && ci.ready()
}

// Call originates an RPC request toward dst (section 4.6). If cb is
// non-nil and dispatch succeeds, a SentRequest is recorded and cb is
// invoked when a matching reply arrives (or on timeout, if
// opts.Timeout is set). If dispatch fails, cb is never invoked.
//
// args is the already-encoded request payload; building it is the
// caller's responsibility per the design note in section 9 retiring the
// source's variadic formatter entry points.
func (r *Router) Call(method string, args []byte, opts CallOptions, cb ReplyFunc) (id int64, err error) {
	if r.closed {
		return 0, ErrClosed
	}
	id = allocID(r.ids, r.requests)
	tag := opts.Tag
	if tag == "" {
		tag = uuid.NewString()
	}
	e := &Envelope{
		Version: Version2,
		ID:      id,
		Src:     r.cfg.ID,
		Dst:     opts.Dst,
		Tag:     tag,
		Method:  method,
		Args:    args,
	}
	if cb == nil {
		e.ID = 0 // a notification with no observer needs no correlation id
	}

	// The SentRequest is recorded before dispatch because a synchronous
	// Channel can deliver the reply before dispatch returns; it is removed
	// again if dispatch fails, so cb is never invoked in that case.
	if cb != nil {
		sr := &sentRequest{id: id, cb: cb}
		if opts.Timeout > 0 {
			sr.deadline = time.Now().Add(opts.Timeout)
		}
		r.requests.insert(sr)
	}
	if _, err := r.dispatchOriginated(opts.Dst, e); err != nil {
		if cb != nil {
			r.requests.remove(id)
		}
		return 0, err
	}
	return id, nil
}

// dispatchOriginated resolves a channel for dst and sends e directly if
// ready, else enqueues (enqueue is always permitted for originated calls,
// per section 4.6), else reports failure.
func (r *Router) dispatchOriginated(dst string, e *Envelope) (sent bool, err error) {
	frame, err := r.codec.Emit(e)
	if err != nil {
		return false, errors.Wrap(err, "emit request")
	}
	ci := r.channelInfoByDst(dst)
	if ci != nil && ci.ready() {
		ci.Busy = true
		if ci.channel.SendFrame(frame) {
			r.trace.frameSent(dst, false)
			return true, nil
		}
		ci.Busy = false
	}
	if r.queue.enqueue(dst, frame) {
		r.trace.frameSent(dst, true)
		return true, nil
	}
	if ci == nil {
		return false, errors.Wrapf(ErrNoChannel, "dst %q", dst)
	}
	return false, ErrQueueFull
}

// sendEnvelope sends e via ci if ready, else enqueues against e.Dst, else
// reports failure. Used by reply dispatch (handlers.go), where ci is
// already resolved (preferring the originating request's channel).
func (r *Router) sendEnvelope(ci *ChannelInfo, e *Envelope) error {
	frame, err := r.codec.Emit(e)
	if err != nil {
		return errors.Wrap(err, "emit reply")
	}
	if ci != nil && ci.ready() {
		ci.Busy = true
		if ci.channel.SendFrame(frame) {
			r.trace.frameSent(e.Dst, false)
			return nil
		}
		ci.Busy = false
	}
	if r.queue.enqueue(e.Dst, frame) {
		r.trace.frameSent(e.Dst, true)
		return nil
	}
	if ci == nil {
		return errors.Wrapf(ErrNoChannel, "dst %q", e.Dst)
	}
	return ErrQueueFull
}

// ExpireTimeouts evicts any SentRequest whose CallOptions.Timeout has
// elapsed as of now, invoking its callback with ErrCallTimeout. The core
// performs no blocking waits itself (section 5); embedders that want
// timeouts call this periodically from their own event loop.
func (r *Router) ExpireTimeouts(now time.Time) {
	var expired []*sentRequest
	for id, sr := range r.requests.byID {
		if !sr.deadline.IsZero() && !now.Before(sr.deadline) {
			expired = append(expired, sr)
			delete(r.requests.byID, id)
		}
	}
	for _, sr := range expired {
		sr.cb(Reply{ErrorCode: 504, ErrorMsg: ErrCallTimeout.Error()}, FrameInfo{})
	}
}

// --- dispatcher: channel event handlers (section 4.2) ---

func (r *Router) handleOpen(ci *ChannelInfo) {
	ci.Open = true
	ci.Busy = false
	r.drainQueue()
	r.trace.channelOpened(ci.channel.Type(), ci.Dst)
	r.notifyObservers(ChannelOpen, ci.Dst)
}

func (r *Router) handleFrameReceived(ci *ChannelInfo, raw []byte) {
	e, err := r.codec.Parse(raw)
	if err != nil {
		r.trace.frameDropped(ci.channel.Type(), "parse: "+err.Error())
		r.closeIfNonPersistent(ci)
		return
	}
	if e.Dst != "" && e.Dst != r.cfg.ID {
		r.trace.frameDropped(ci.channel.Type(), ErrWrongDestination.Error())
		return
	}
	if ci.Dst == "" && e.Src != "" {
		ci.Dst = e.Src
	}
	r.trace.frameReceived(ci.channel.Type(), e)

	if e.IsRequest() {
		r.handleRequest(ci, e)
		return
	}
	r.handleResponse(ci, e)
}

func (r *Router) handleFrameSent(ci *ChannelInfo, success bool) {
	ci.Busy = false
	if !success {
		r.trace.error("send", ci.Dst, errors.New("channel reported send failure"))
	}
	r.drainQueue()
}

func (r *Router) handleClosed(ci *ChannelInfo) {
	ci.Open = false
	ci.Busy = false
	r.trace.channelClosed(ci.channel.Type(), ci.Dst)
	r.notifyObservers(ChannelClosed, ci.Dst)
	if !ci.channel.IsPersistent() {
		r.evictChannel(ci)
	}
}

func (r *Router) closeIfNonPersistent(ci *ChannelInfo) {
	if !ci.channel.IsPersistent() {
		_ = ci.channel.Close()
	}
}

func (r *Router) drainQueue() {
	r.queue.drain(r.channelInfoByDst)
}

// --- incoming request path (section 4.4) ---

func (r *Router) handleRequest(ci *ChannelInfo, e *Envelope) {
	req := &RequestInfo{
		router:  r,
		id:      e.ID,
		src:     e.Src,
		tag:     e.Tag,
		ci:      ci,
		method:  e.Method,
	}

	hi, ok := r.handlers.byMethod[e.Method]
	if !ok {
		req.argsFmt = ""
		r.trace.error("dispatch", e.Method, errors.Wrapf(ErrUnknownMethod, "method %q", e.Method))
		_ = r.RespondError(req, 404, "No handler for "+e.Method)
		return
	}
	req.argsFmt = hi.argsFmt

	fi := FrameInfo{ChannelType: ci.channel.Type(), ChannelIsTrusted: ci.Trusted}
	r.trace.handlerInvoked(e.Method, ci.Trusted)
	hi.cb(req, fi, e.Args)
}

// --- incoming response path (section 4.5) ---

func (r *Router) handleResponse(ci *ChannelInfo, e *Envelope) {
	if e.ID == 0 {
		r.trace.frameDropped(ci.channel.Type(), "response without id")
		r.closeIfNonPersistent(ci)
		return
	}
	sr, ok := r.requests.remove(e.ID)
	if !ok {
		r.trace.frameDropped(ci.channel.Type(), "unknown response id")
		return
	}
	fi := FrameInfo{ChannelType: ci.channel.Type(), ChannelIsTrusted: ci.Trusted}
	sr.cb(Reply{Result: e.Result, ErrorCode: e.ErrorCode, ErrorMsg: e.ErrorMsg}, fi)
}
