package transport

import (
	"context"
	"io"
	"sync"

	"github.com/damianoneill/chanrpc"
	"github.com/damianoneill/chanrpc/framing"
)

// Stream is a Channel over any io.ReadWriteCloser, delimiting frames with
// the framing package. It is generalized from the teacher's
// netconf/client/transport.go tImpl, which wraps an SSH session's
// stdin/stdout pipes with a similar read/write split.
//
// Stream runs its read loop on its own goroutine, since io.Reader.Read
// blocks; it is the embedder's responsibility to serialize the resulting
// event callbacks onto the router's single executor (section 5).
type Stream struct {
	rwc  io.ReadWriteCloser
	enc  *framing.Encoder
	dec  *framing.Decoder
	typ  string
	pers bool

	mu     sync.Mutex
	events chanrpc.ChannelEvents
	closed bool
}

// NewStream wraps rwc as a Channel of type typ. maxFrameSize is passed to
// framing.NewDecoder (0 selects framing.DefaultMaxFrameSize).
func NewStream(rwc io.ReadWriteCloser, typ string, persistent bool, maxFrameSize int) *Stream {
	return &Stream{
		rwc:  rwc,
		enc:  framing.NewEncoder(rwc),
		dec:  framing.NewDecoder(rwc, maxFrameSize),
		typ:  typ,
		pers: persistent,
	}
}

// Connect implements chanrpc.Channel, launching the background read loop
// and reporting Open immediately (the stream is assumed already dialed;
// see transport.SSH for a Channel that performs the dial itself).
func (s *Stream) Connect(_ context.Context) error {
	go s.readLoop()
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()
	if events != nil {
		events.Open()
	}
	return nil
}

func (s *Stream) readLoop() {
	for {
		frame, err := s.dec.ReadFrame()
		if err != nil {
			s.mu.Lock()
			already := s.closed
			s.closed = true
			events := s.events
			s.mu.Unlock()
			if events != nil && !already {
				events.Closed()
			}
			return
		}
		s.mu.Lock()
		events := s.events
		s.mu.Unlock()
		if events != nil {
			events.FrameReceived(frame)
		}
	}
}

// Close implements chanrpc.Channel.
func (s *Stream) Close() error {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	events := s.events
	s.mu.Unlock()
	err := s.rwc.Close()
	if events != nil && !already {
		events.Closed()
	}
	return err
}

// SendFrame implements chanrpc.Channel.
func (s *Stream) SendFrame(frame []byte) bool {
	if err := s.enc.WriteFrame(frame); err != nil {
		return false
	}
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()
	if events != nil {
		events.FrameSent(true)
	}
	return true
}

// Type implements chanrpc.Channel.
func (s *Stream) Type() string { return s.typ }

// IsPersistent implements chanrpc.Channel.
func (s *Stream) IsPersistent() bool { return s.pers }

// SetEvents implements chanrpc.Channel.
func (s *Stream) SetEvents(events chanrpc.ChannelEvents) {
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
}
