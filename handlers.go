package chanrpc

import "github.com/pkg/errors"

// HandlerFunc handles one incoming request. It must eventually call
// exactly one of RespondSuccess, RespondError, or FreeRequestInfo on req's
// Router, matching section 4.4 step 4. It may do so asynchronously: req
// outlives the call to HandlerFunc.
type HandlerFunc func(req *RequestInfo, fi FrameInfo, args []byte)

// handlerInfo is the registered { method, args_fmt, callback } entry of
// section 3.
type handlerInfo struct {
	method  string
	argsFmt string
	cb      HandlerFunc
}

// handlerRegistry maps method name to handlerInfo. A map keyed by method
// name, per the design note in section 9, replacing the source's SLIST;
// Go map lookup gives O(1) exact-equality lookup. The map itself is
// unordered: handleList (introspect.go) sorts the names at read time so
// RPC.List's ordering is stable.
type handlerRegistry struct {
	byMethod map[string]*handlerInfo
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{byMethod: make(map[string]*handlerInfo)}
}

// RequestInfo captures everything needed to route a reply for one
// in-flight incoming call (section 3). It is created by the dispatcher
// before a handler is invoked and consumed by exactly one of
// RespondSuccess / RespondError / FreeRequestInfo.
type RequestInfo struct {
	router  *Router
	id      int64
	src     string
	tag     string
	ci      *ChannelInfo
	method  string
	argsFmt string

	done bool
}

// ArgsFmt returns the args_fmt hint the handling method was registered
// with.
func (ri *RequestInfo) ArgsFmt() string { return ri.argsFmt }

// AddHandler registers a handler for method. args_fmt is an opaque schema
// hint surfaced verbatim by RPC.Describe (section 4.7).
func (r *Router) AddHandler(method, argsFmt string, cb HandlerFunc) error {
	if r.closed {
		return ErrClosed
	}
	if _, exists := r.handlers.byMethod[method]; exists {
		return errors.Wrapf(ErrDuplicateMethod, "method %q", method)
	}
	r.handlers.byMethod[method] = &handlerInfo{method: method, argsFmt: argsFmt, cb: cb}
	return nil
}

// RespondSuccess builds and dispatches a successful reply envelope for
// req, and releases req. It is a no-op (beyond marking req done) if req
// expects no reply (ID == 0) or has already been responded to.
func (r *Router) RespondSuccess(req *RequestInfo, result []byte) error {
	if req.done {
		return nil
	}
	req.done = true
	if req.id == 0 {
		return nil
	}
	e := &Envelope{
		Version: Version2,
		ID:      req.id,
		Src:     r.cfg.ID,
		Dst:     req.src,
		Tag:     req.tag,
		Result:  result,
	}
	return r.dispatchReply(req.ci, e)
}

// RespondError builds and dispatches an error reply envelope for req, and
// releases req.
func (r *Router) RespondError(req *RequestInfo, code int, message string) error {
	if req.done {
		return nil
	}
	req.done = true
	if req.id == 0 {
		return nil
	}
	e := &Envelope{
		Version:   Version2,
		ID:        req.id,
		Src:       r.cfg.ID,
		Dst:       req.src,
		Tag:       req.tag,
		ErrorCode: code,
		ErrorMsg:  message,
	}
	return r.dispatchReply(req.ci, e)
}

// FreeRequestInfo releases req without sending a reply. Used by handlers
// that determine, after being invoked, that no reply should be sent (for
// example a notification-style call where ID was already 0, or a handler
// that chooses to stay silent).
func (r *Router) FreeRequestInfo(req *RequestInfo) {
	req.done = true
}

// dispatchReply sends e preferring the channel the originating request
// arrived on (section 4.4 step 4: "using the saved channel reference
// preferentially"), falling back to default-route resolution if that
// channel is no longer registered.
func (r *Router) dispatchReply(preferred *ChannelInfo, e *Envelope) error {
	ci := preferred
	if ci == nil || !r.isRegistered(ci) {
		ci = r.channelInfoByDst(e.Dst)
	}
	return r.sendEnvelope(ci, e)
}

func (r *Router) isRegistered(ci *ChannelInfo) bool {
	for _, c := range r.channels {
		if c == ci {
			return true
		}
	}
	return false
}
