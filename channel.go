package chanrpc

import "context"

// DefaultDst is the sentinel destination that designates the default
// route: a channel registered under this destination is used whenever no
// channel's learned dst matches the requested destination.
const DefaultDst = "*"

// Channel is the interface a transport (serial link, WebSocket, MQTT,
// loopback, ...) implements to plug into the router. Concrete
// implementations are external collaborators (section 1); this package
// ships a few reusable ones under the transport subpackage, but none of
// them is part of the core.
type Channel interface {
	// Connect attempts to transition the channel to open. It is expected to
	// be asynchronous: a successful attempt eventually fires Open on the
	// ChannelEvents installed via SetEvents, it does not need to have
	// completed by the time Connect returns.
	Connect(ctx context.Context) error

	// Close requests the channel close. A successful close eventually fires
	// Closed on the installed ChannelEvents.
	Close() error

	// SendFrame attempts to transmit frame. True means the channel accepted
	// responsibility for it and will fire FrameSent; false means the core
	// must queue or drop the frame.
	SendFrame(frame []byte) bool

	// Type returns a short descriptor used in logs and in FrameInfo.
	Type() string

	// IsPersistent reports whether the router should keep this channel's
	// ChannelInfo around across a Closed event (for later reconnection)
	// rather than evicting it.
	IsPersistent() bool

	// SetEvents installs the event sink the channel must notify of Open,
	// FrameReceived, FrameSent and Closed events. The router calls this
	// once, at registration time, satisfying the "storage slot for an
	// event-handler callback installed by the router" requirement of
	// section 6.1.
	SetEvents(events ChannelEvents)
}

// ChannelEvents is the callback surface a Channel implementation notifies
// as its connection state changes and frames arrive or are sent.
type ChannelEvents interface {
	// Open reports the channel has become usable for sending.
	Open()

	// FrameReceived delivers a single raw frame read from the channel. The
	// router parses it with the configured Codec.
	FrameReceived(frame []byte)

	// FrameSent reports the outcome of a previously accepted SendFrame
	// call. success is informational only: a false value does not trigger
	// automatic retry (section 4.2, section 9).
	FrameSent(success bool)

	// Closed reports the channel is no longer usable.
	Closed()
}

// FrameInfo describes the channel a request or response arrived on,
// delivered to handlers and response callbacks so they can make
// trust-based decisions.
type FrameInfo struct {
	ChannelType      string
	ChannelIsTrusted bool
}

// ChannelInfo tracks registration-time and learned state for one
// registered channel.
type ChannelInfo struct {
	// Dst is the destination this channel routes to. May be empty until
	// learned from the first received frame's Src, or equal to DefaultDst
	// for the default route.
	Dst string

	// Trusted is immutable after registration (section 3).
	Trusted bool

	// Open and Busy form the 2-bit channel state of section 4.2.
	Open bool
	Busy bool

	channel Channel
}

// Channel returns the underlying Channel implementation.
func (ci *ChannelInfo) Channel() Channel { return ci.channel }

// ready reports whether the channel may accept a frame to send right now.
func (ci *ChannelInfo) ready() bool {
	return ci.Open && !ci.Busy
}

// addChannel registers ch under dst with the given trust level, installs
// the router as its event sink, and returns its ChannelInfo.
func (r *Router) addChannel(dst string, ch Channel, trusted bool) (*ChannelInfo, error) {
	if r.closed {
		return nil, ErrClosed
	}
	for _, ci := range r.channels {
		if dst != "" && ci.Dst == dst {
			return nil, ErrDuplicateChannel
		}
	}
	ci := &ChannelInfo{Dst: dst, Trusted: trusted, channel: ch}
	r.channels = append(r.channels, ci)
	ch.SetEvents(&channelEventSink{router: r, info: ci})
	return ci, nil
}

// channelInfoByDst implements the default-route lookup of section 4.2:
// given a destination string, scan channels and return the first whose Dst
// equals d if d is nonempty, else return the channel registered under
// DefaultDst. If d is empty and a default exists, use the default.
func (r *Router) channelInfoByDst(d string) *ChannelInfo {
	var def *ChannelInfo
	for _, ci := range r.channels {
		if d != "" && ci.Dst == d {
			return ci
		}
		if ci.Dst == DefaultDst {
			def = ci
		}
	}
	return def
}

// channelInfoByChannel finds the ChannelInfo owning ch, used by event
// plumbing to recover channel identity from a bare Channel reference.
func (r *Router) channelInfoByChannel(ch Channel) *ChannelInfo {
	for _, ci := range r.channels {
		if ci.channel == ch {
			return ci
		}
	}
	return nil
}

// evictChannel removes ci from the registry, freeing its learned dst.
func (r *Router) evictChannel(ci *ChannelInfo) {
	for i, c := range r.channels {
		if c == ci {
			r.channels = append(r.channels[:i], r.channels[i+1:]...)
			return
		}
	}
}

// channelEventSink adapts a single ChannelInfo's Channel events back into
// Router method calls, carrying the channel's identity along so the
// dispatcher knows which ChannelInfo to mutate.
type channelEventSink struct {
	router *Router
	info   *ChannelInfo
}

func (s *channelEventSink) Open()                  { s.router.handleOpen(s.info) }
func (s *channelEventSink) FrameReceived(b []byte)  { s.router.handleFrameReceived(s.info, b) }
func (s *channelEventSink) FrameSent(success bool)  { s.router.handleFrameSent(s.info, success) }
func (s *channelEventSink) Closed()                 { s.router.handleClosed(s.info) }
