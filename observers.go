package chanrpc

// ConnectionEvent identifies the kind of lifecycle event delivered to
// observers (section 6.5's CHANNEL_OPEN / CHANNEL_CLOSED).
type ConnectionEvent int

const (
	// ChannelOpen is delivered when a channel becomes open.
	ChannelOpen ConnectionEvent = iota
	// ChannelClosed is delivered when a channel becomes closed.
	ChannelClosed
)

// ObserverFunc is notified of channel open/close events that have an
// associated dst (section 3).
type ObserverFunc func(ev ConnectionEvent, dst string)

// ObserverHandle identifies a previously registered observer for
// RemoveObserver. It is the single allocation AddObserver both stores in
// the router's observer list and returns to the caller, so identity
// comparison (not value comparison) is enough to find it again.
type ObserverHandle struct {
	cb ObserverFunc
}

// AddObserver registers cb to be called on every subsequent channel
// open/close event, returning a handle to later pass to RemoveObserver.
func (r *Router) AddObserver(cb ObserverFunc) *ObserverHandle {
	h := &ObserverHandle{cb: cb}
	r.observers = append(r.observers, h)
	return h
}

// RemoveObserver removes a previously registered observer, identified by
// the handle AddObserver returned for it.
func (r *Router) RemoveObserver(handle *ObserverHandle) {
	for i, oi := range r.observers {
		if oi == handle {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Router) notifyObservers(ev ConnectionEvent, dst string) {
	if dst == "" {
		return
	}
	for _, oi := range r.observers {
		oi.cb(ev, dst)
	}
}
