package chanrpc_test

import (
	"context"
	"testing"

	"github.com/damianoneill/chanrpc"
	"github.com/damianoneill/chanrpc/codec"
	"github.com/damianoneill/chanrpc/transport"
	assert "github.com/stretchr/testify/require"
)

// newLinkedPair builds two routers joined by a Loopback pair, each
// registered on the other's default route, and connects both.
func newLinkedPair(t *testing.T, idA, idB string) (a, b *chanrpc.Router) {
	t.Helper()
	a = chanrpc.Create(context.Background(), &chanrpc.Config{ID: idA}, codec.JSON{})
	b = chanrpc.Create(context.Background(), &chanrpc.Config{ID: idB}, codec.JSON{})

	chA, chB := transport.NewLoopbackPair("loop", true)
	_, err := a.AddChannel(chanrpc.DefaultDst, chA, true)
	assert.NoError(t, err, "AddChannel on A should succeed")
	_, err = b.AddChannel(chanrpc.DefaultDst, chB, true)
	assert.NoError(t, err, "AddChannel on B should succeed")

	assert.NoError(t, b.Connect(context.Background()), "B should connect")
	assert.NoError(t, a.Connect(context.Background()), "A should connect")
	return a, b
}

// S1: a request dispatched to a handler that echoes its args receives
// that payload back, correlated to the call that sent it.
func TestEcho(t *testing.T) {
	a, b := newLinkedPair(t, "A", "B")
	defer a.Free()
	defer b.Free()

	assert.NoError(t, b.AddHandler("echo", "", func(req *chanrpc.RequestInfo, _ chanrpc.FrameInfo, args []byte) {
		assert.NoError(t, b.RespondSuccess(req, args))
	}))

	var got chanrpc.Reply
	_, err := a.Call("echo", []byte(`"hi"`), chanrpc.CallOptions{}, func(reply chanrpc.Reply, _ chanrpc.FrameInfo) {
		got = reply
	})
	assert.NoError(t, err, "Call should succeed")
	assert.Equal(t, 0, got.ErrorCode, "Echo should not error")
	assert.JSONEq(t, `"hi"`, string(got.Result), "Echo should return the same args")
}

// S2: a request for an unregistered method is answered with a 404 error,
// and no handler is invoked.
func TestUnknownMethod(t *testing.T) {
	a, b := newLinkedPair(t, "A", "B")
	defer a.Free()
	defer b.Free()

	var got chanrpc.Reply
	_, err := a.Call("no.such.method", nil, chanrpc.CallOptions{}, func(reply chanrpc.Reply, _ chanrpc.FrameInfo) {
		got = reply
	})
	assert.NoError(t, err, "Call dispatch itself should not fail")
	assert.Equal(t, 404, got.ErrorCode, "Unregistered method should reply 404")
}

// S3: a call made before the channel is open is queued, and is flushed
// once the channel becomes ready.
func TestQueueDrainsOnOpen(t *testing.T) {
	ctx := context.Background()
	a := chanrpc.Create(ctx, &chanrpc.Config{ID: "A"}, codec.JSON{})
	b := chanrpc.Create(ctx, &chanrpc.Config{ID: "B"}, codec.JSON{})
	defer a.Free()
	defer b.Free()

	chA, chB := transport.NewLoopbackPair("loop", true)
	_, err := a.AddChannel(chanrpc.DefaultDst, chA, true)
	assert.NoError(t, err)
	_, err = b.AddChannel(chanrpc.DefaultDst, chB, true)
	assert.NoError(t, err)

	var invoked bool
	assert.NoError(t, b.AddHandler("ping", "", func(req *chanrpc.RequestInfo, _ chanrpc.FrameInfo, _ []byte) {
		invoked = true
		assert.NoError(t, b.RespondSuccess(req, nil))
	}))

	// B must be open to receive, but A is not connected yet.
	assert.NoError(t, b.Connect(ctx))

	assert.False(t, a.CanSend(""), "A's channel should not be ready before Connect")

	var got chanrpc.Reply
	replied := false
	_, err = a.Call("ping", nil, chanrpc.CallOptions{}, func(reply chanrpc.Reply, _ chanrpc.FrameInfo) {
		got = reply
		replied = true
	})
	assert.NoError(t, err, "Call should queue rather than fail")
	assert.False(t, invoked, "handler should not run before the channel opens")
	assert.False(t, replied, "reply should not arrive before the channel opens")

	assert.NoError(t, a.Connect(ctx), "connecting A should drain the queue")
	assert.True(t, invoked, "handler should run once the queue drains")
	assert.True(t, replied, "reply should arrive once the queue drains")
	assert.Equal(t, 0, got.ErrorCode)
}

// S3 (literal): queue size 2, a disconnected channel, three enqueued
// calls — the third overflows — and upon Open the first two are sent in
// order 1, 2. transport.Loopback's SendFrame fires FrameSent
// synchronously before returning, so draining the first entry re-enters
// drain while the outer walk is still mid-pass over the second; this must
// neither panic nor reorder the frames.
func TestQueueDrainsTwoFramesInOrderOnOpen(t *testing.T) {
	ctx := context.Background()
	a := chanrpc.Create(ctx, &chanrpc.Config{ID: "A", MaxQueueSize: 2}, codec.JSON{})
	b := chanrpc.Create(ctx, &chanrpc.Config{ID: "B"}, codec.JSON{})
	defer a.Free()
	defer b.Free()

	chA, chB := transport.NewLoopbackPair("loop", true)
	_, err := a.AddChannel(chanrpc.DefaultDst, chA, true)
	assert.NoError(t, err)
	_, err = b.AddChannel(chanrpc.DefaultDst, chB, true)
	assert.NoError(t, err)

	var order []string
	assert.NoError(t, b.AddHandler("order", "", func(req *chanrpc.RequestInfo, _ chanrpc.FrameInfo, args []byte) {
		order = append(order, string(args))
		assert.NoError(t, b.RespondSuccess(req, nil))
	}))
	assert.NoError(t, b.Connect(ctx))

	// A stays disconnected for all three calls below.
	_, err = a.Call("order", []byte(`"1"`), chanrpc.CallOptions{}, nil)
	assert.NoError(t, err, "first call should fit in the queue")
	_, err = a.Call("order", []byte(`"2"`), chanrpc.CallOptions{}, nil)
	assert.NoError(t, err, "second call should fit in the queue")
	_, err = a.Call("order", []byte(`"3"`), chanrpc.CallOptions{}, nil)
	assert.ErrorIs(t, err, chanrpc.ErrQueueFull, "third call should overflow the bound-2 queue")

	assert.NoError(t, a.Connect(ctx), "connecting A should drain the queue without panicking")
	assert.Equal(t, []string{`"1"`, `"2"`}, order, "queued frames should be delivered in submission order")
}

// The outbound queue enforces its configured bound and reports
// ErrQueueFull once full, rather than growing unbounded.
func TestQueueOverflow(t *testing.T) {
	ctx := context.Background()
	a := chanrpc.Create(ctx, &chanrpc.Config{ID: "A", MaxQueueSize: 1}, codec.JSON{})
	defer a.Free()

	loop, _ := transport.NewLoopbackPair("loop", true)
	_, err := a.AddChannel(chanrpc.DefaultDst, loop, true)
	assert.NoError(t, err)
	// Deliberately do not connect A: every call below must queue.

	_, err = a.Call("m", nil, chanrpc.CallOptions{}, func(chanrpc.Reply, chanrpc.FrameInfo) {})
	assert.NoError(t, err, "first call should fit in the queue")

	_, err = a.Call("m", nil, chanrpc.CallOptions{}, func(chanrpc.Reply, chanrpc.FrameInfo) {})
	assert.Error(t, err, "second call should overflow the bound-1 queue")
	assert.ErrorIs(t, err, chanrpc.ErrQueueFull)
}

// S4: replies are correlated to the call that produced them even when a
// handler answers out of arrival order.
func TestCorrelationOutOfOrder(t *testing.T) {
	a, b := newLinkedPair(t, "A", "B")
	defer a.Free()
	defer b.Free()

	var pending []*chanrpc.RequestInfo
	assert.NoError(t, b.AddHandler("work", "", func(req *chanrpc.RequestInfo, _ chanrpc.FrameInfo, _ []byte) {
		pending = append(pending, req)
	}))

	var first, second chanrpc.Reply
	_, err := a.Call("work", []byte(`"first"`), chanrpc.CallOptions{}, func(reply chanrpc.Reply, _ chanrpc.FrameInfo) {
		first = reply
	})
	assert.NoError(t, err)
	_, err = a.Call("work", []byte(`"second"`), chanrpc.CallOptions{}, func(reply chanrpc.Reply, _ chanrpc.FrameInfo) {
		second = reply
	})
	assert.NoError(t, err)
	assert.Len(t, pending, 2, "both requests should have reached the handler")

	// Respond in reverse order: the router must still route each reply
	// back to the call that produced it, not to whichever Call ran first.
	assert.NoError(t, b.RespondSuccess(pending[1], []byte(`"second-reply"`)))
	assert.NoError(t, b.RespondSuccess(pending[0], []byte(`"first-reply"`)))

	assert.JSONEq(t, `"first-reply"`, string(first.Result))
	assert.JSONEq(t, `"second-reply"`, string(second.Result))
}

// S5: RPC.List requires a trusted channel: a call arriving over an
// untrusted channel is refused with 403.
func TestListAuthorization(t *testing.T) {
	ctx := context.Background()
	a := chanrpc.Create(ctx, &chanrpc.Config{ID: "A"}, codec.JSON{})
	b := chanrpc.Create(ctx, &chanrpc.Config{ID: "B"}, codec.JSON{})
	defer a.Free()
	defer b.Free()

	chA, chB := transport.NewLoopbackPair("loop", true)
	_, err := a.AddChannel(chanrpc.DefaultDst, chA, false) // untrusted from A's perspective
	assert.NoError(t, err)
	_, err = b.AddChannel(chanrpc.DefaultDst, chB, false)
	assert.NoError(t, err)
	assert.NoError(t, b.AddListHandler())
	assert.NoError(t, b.AddHandler("custom.method", "", func(req *chanrpc.RequestInfo, _ chanrpc.FrameInfo, _ []byte) {
		assert.NoError(t, b.RespondSuccess(req, nil))
	}))
	assert.NoError(t, b.Connect(ctx))
	assert.NoError(t, a.Connect(ctx))

	var untrusted chanrpc.Reply
	_, err = a.Call(chanrpc.MethodList, nil, chanrpc.CallOptions{}, func(reply chanrpc.Reply, _ chanrpc.FrameInfo) {
		untrusted = reply
	})
	assert.NoError(t, err)
	assert.Equal(t, 403, untrusted.ErrorCode, "RPC.List over an untrusted channel should be refused")
}

// S6: a channel registered with no fixed destination learns it from the
// Src carried by the first frame it receives.
func TestLearnsDestination(t *testing.T) {
	ctx := context.Background()
	a := chanrpc.Create(ctx, &chanrpc.Config{ID: "A"}, codec.JSON{})
	b := chanrpc.Create(ctx, &chanrpc.Config{ID: "remote-device"}, codec.JSON{})
	defer a.Free()
	defer b.Free()

	chA, chB := transport.NewLoopbackPair("loop", true)
	// A doesn't yet know who will be on the other end.
	ci, err := a.AddChannel("", chA, true)
	assert.NoError(t, err)
	_, err = b.AddChannel(chanrpc.DefaultDst, chB, true)
	assert.NoError(t, err)

	assert.NoError(t, a.AddHandler("hello", "", func(req *chanrpc.RequestInfo, _ chanrpc.FrameInfo, _ []byte) {
		assert.NoError(t, a.RespondSuccess(req, nil))
	}))

	assert.NoError(t, a.Connect(ctx))
	assert.NoError(t, b.Connect(ctx))

	assert.Empty(t, ci.Dst, "dst should be unlearned before any frame arrives")

	_, err = b.Call("hello", nil, chanrpc.CallOptions{}, func(chanrpc.Reply, chanrpc.FrameInfo) {})
	assert.NoError(t, err, "B originating toward A should flow over the loopback")

	assert.Equal(t, "remote-device", ci.Dst, "A should learn B's identity from the frame's src")
}

func TestDuplicateHandlerRejected(t *testing.T) {
	r := chanrpc.Create(context.Background(), &chanrpc.Config{ID: "A"}, codec.JSON{})
	defer r.Free()

	assert.NoError(t, r.AddHandler("m", "", func(*chanrpc.RequestInfo, chanrpc.FrameInfo, []byte) {}))
	err := r.AddHandler("m", "", func(*chanrpc.RequestInfo, chanrpc.FrameInfo, []byte) {})
	assert.ErrorIs(t, err, chanrpc.ErrDuplicateMethod)
}

func TestDuplicateChannelRejected(t *testing.T) {
	r := chanrpc.Create(context.Background(), &chanrpc.Config{ID: "A"}, codec.JSON{})
	defer r.Free()

	l1, _ := transport.NewLoopbackPair("loop", true)
	l2, _ := transport.NewLoopbackPair("loop", true)
	_, err := r.AddChannel("dev1", l1, true)
	assert.NoError(t, err)
	_, err = r.AddChannel("dev1", l2, true)
	assert.ErrorIs(t, err, chanrpc.ErrDuplicateChannel)
}

// A freed Router rejects further operations with ErrClosed.
func TestOperationsAfterFreeFail(t *testing.T) {
	r := chanrpc.Create(context.Background(), &chanrpc.Config{ID: "A"}, codec.JSON{})
	r.Free()

	_, err := r.Call("m", nil, chanrpc.CallOptions{}, nil)
	assert.ErrorIs(t, err, chanrpc.ErrClosed)

	err = r.AddHandler("m", "", func(*chanrpc.RequestInfo, chanrpc.FrameInfo, []byte) {})
	assert.ErrorIs(t, err, chanrpc.ErrClosed)

	loop, _ := transport.NewLoopbackPair("loop", true)
	_, err = r.AddChannel("dev1", loop, true)
	assert.ErrorIs(t, err, chanrpc.ErrClosed)
}

// Channel open/closed transitions are delivered to observers with an
// associated dst, matching section 3's "observers fire only for
// destinations with an identity".
func TestObserverNotifiesOnOpenAndClose(t *testing.T) {
	ctx := context.Background()
	r := chanrpc.Create(ctx, &chanrpc.Config{ID: "A"}, codec.JSON{})
	defer r.Free()

	var events []chanrpc.ConnectionEvent
	r.AddObserver(func(ev chanrpc.ConnectionEvent, dst string) {
		assert.Equal(t, "dev1", dst)
		events = append(events, ev)
	})

	loop, peer := transport.NewLoopbackPair("loop", false)
	_, err := r.AddChannel("dev1", loop, true)
	assert.NoError(t, err)
	assert.NoError(t, r.Connect(ctx))
	assert.NoError(t, peer.Connect(ctx))

	assert.NoError(t, loop.Close())

	assert.Equal(t, []chanrpc.ConnectionEvent{chanrpc.ChannelOpen, chanrpc.ChannelClosed}, events)
}

// RemoveObserver stops further notifications to the handle it was given by
// AddObserver, without affecting other registered observers.
func TestRemoveObserverStopsNotifications(t *testing.T) {
	ctx := context.Background()
	r := chanrpc.Create(ctx, &chanrpc.Config{ID: "A"}, codec.JSON{})
	defer r.Free()

	var removed []chanrpc.ConnectionEvent
	handle := r.AddObserver(func(ev chanrpc.ConnectionEvent, _ string) {
		removed = append(removed, ev)
	})
	var kept []chanrpc.ConnectionEvent
	r.AddObserver(func(ev chanrpc.ConnectionEvent, _ string) {
		kept = append(kept, ev)
	})

	loop, peer := transport.NewLoopbackPair("loop", false)
	_, err := r.AddChannel("dev1", loop, true)
	assert.NoError(t, err)
	assert.NoError(t, r.Connect(ctx))
	assert.NoError(t, peer.Connect(ctx))
	assert.Equal(t, []chanrpc.ConnectionEvent{chanrpc.ChannelOpen}, removed)

	r.RemoveObserver(handle)
	assert.NoError(t, loop.Close())

	assert.Equal(t, []chanrpc.ConnectionEvent{chanrpc.ChannelOpen}, removed,
		"no further events should reach the removed observer")
	assert.Equal(t, []chanrpc.ConnectionEvent{chanrpc.ChannelOpen, chanrpc.ChannelClosed}, kept,
		"the other observer should keep receiving events")
}

// A non-persistent channel is evicted from the registry once closed, so
// a later registration under the same dst is not rejected as a
// duplicate.
func TestNonPersistentChannelEvictedOnClose(t *testing.T) {
	ctx := context.Background()
	r := chanrpc.Create(ctx, &chanrpc.Config{ID: "A"}, codec.JSON{})
	defer r.Free()

	loop, _ := transport.NewLoopbackPair("loop", false)
	_, err := r.AddChannel("dev1", loop, true)
	assert.NoError(t, err)
	assert.NoError(t, r.Connect(ctx))
	assert.NoError(t, loop.Close())

	loop2, _ := transport.NewLoopbackPair("loop", false)
	_, err = r.AddChannel("dev1", loop2, true)
	assert.NoError(t, err, "dev1 should be free to reuse once its non-persistent channel is evicted")
}

// RPC.Hello answers with the router's own configured identity.
func TestHello(t *testing.T) {
	a, b := newLinkedPair(t, "A", "B")
	defer a.Free()
	defer b.Free()

	assert.NoError(t, b.AddHelloHandler())

	var got chanrpc.Reply
	_, err := a.Call(chanrpc.MethodHello, nil, chanrpc.CallOptions{}, func(reply chanrpc.Reply, _ chanrpc.FrameInfo) {
		got = reply
	})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"id":"B"}`, string(got.Result))
}
