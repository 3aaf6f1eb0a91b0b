package transport_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/damianoneill/chanrpc"
	"github.com/damianoneill/chanrpc/transport"
	assert "github.com/stretchr/testify/require"
)

type syncEvents struct {
	received chan []byte
	closed   chan struct{}
}

func newSyncEvents() *syncEvents {
	return &syncEvents{received: make(chan []byte, 8), closed: make(chan struct{}, 1)}
}

func (e *syncEvents) Open()                  {}
func (e *syncEvents) FrameReceived(f []byte) { e.received <- f }
func (e *syncEvents) FrameSent(bool)          {}
func (e *syncEvents) Closed() {
	select {
	case e.closed <- struct{}{}:
	default:
	}
}

func TestStreamSendAndReceive(t *testing.T) {
	connA, connB := net.Pipe()
	defer connA.Close()
	defer connB.Close()

	a := transport.NewStream(connA, "pipe", true, 0)
	b := transport.NewStream(connB, "pipe", true, 0)

	ea, eb := newSyncEvents(), newSyncEvents()
	a.SetEvents(ea)
	b.SetEvents(eb)

	assert.NoError(t, a.Connect(context.Background()))
	assert.NoError(t, b.Connect(context.Background()))

	assert.True(t, a.SendFrame([]byte("hello")))

	select {
	case frame := <-eb.received:
		assert.Equal(t, "hello", string(frame))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestStreamReportsClosedOnReadError(t *testing.T) {
	connA, connB := net.Pipe()
	defer connB.Close()

	a := transport.NewStream(connA, "pipe", true, 0)
	ea := newSyncEvents()
	a.SetEvents(ea)
	assert.NoError(t, a.Connect(context.Background()))

	assert.NoError(t, connA.Close())

	select {
	case <-ea.closed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Closed")
	}
}

func TestChannelInterfaceSatisfiedByStream(t *testing.T) {
	var _ chanrpc.Channel = (*transport.Stream)(nil)
}
