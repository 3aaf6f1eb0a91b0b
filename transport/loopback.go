// Package transport provides ready-to-use chanrpc.Channel
// implementations. None of them is part of the router core (section 1
// explicitly treats concrete channels as external collaborators); they
// exist the way the teacher module ships client/server packages around
// its core NETCONF protocol.
package transport

import (
	"context"

	"github.com/damianoneill/chanrpc"
)

// Loopback is an in-process Channel with no underlying I/O: writes to one
// side of a pair are delivered synchronously as FrameReceived on the
// other. Useful for tests and for routing between components of the same
// process.
type Loopback struct {
	typ        string
	persistent bool
	peer       *Loopback
	events     chanrpc.ChannelEvents
	open       bool
}

// NewLoopbackPair returns two Channels wired to each other.
func NewLoopbackPair(typ string, persistent bool) (a, b *Loopback) {
	a = &Loopback{typ: typ, persistent: persistent}
	b = &Loopback{typ: typ, persistent: persistent}
	a.peer, b.peer = b, a
	return a, b
}

// Connect implements chanrpc.Channel.
func (l *Loopback) Connect(_ context.Context) error {
	l.open = true
	if l.events != nil {
		l.events.Open()
	}
	return nil
}

// Close implements chanrpc.Channel.
func (l *Loopback) Close() error {
	if !l.open {
		return nil
	}
	l.open = false
	if l.events != nil {
		l.events.Closed()
	}
	return nil
}

// SendFrame implements chanrpc.Channel, delivering frame to the peer
// synchronously and reporting our own send as always-successful.
func (l *Loopback) SendFrame(frame []byte) bool {
	if !l.open {
		return false
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	if l.peer != nil && l.peer.open && l.peer.events != nil {
		l.peer.events.FrameReceived(cp)
	}
	if l.events != nil {
		l.events.FrameSent(true)
	}
	return true
}

// Type implements chanrpc.Channel.
func (l *Loopback) Type() string { return l.typ }

// IsPersistent implements chanrpc.Channel.
func (l *Loopback) IsPersistent() bool { return l.persistent }

// SetEvents implements chanrpc.Channel.
func (l *Loopback) SetEvents(events chanrpc.ChannelEvents) { l.events = events }
