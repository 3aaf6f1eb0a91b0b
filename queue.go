package chanrpc

import equeue "github.com/eapache/queue"

// queueEntry is one pending frame awaiting a ready channel. dst and frame
// are owned copies (section 3: "QueueEntry owns its buffers").
type queueEntry struct {
	dst   string
	frame []byte
}

// outboundQueue is the bounded FIFO of section 4.3, backed by the ring
// buffer from github.com/eapache/queue (adopted from
// momentics-hioload-ws/internal/concurrency, which uses the same library
// as the backing store for a task queue).
//
// Entries for different destinations interleave in one FIFO; drain walks
// front-to-back and removes only the entries it could hand off, leaving
// blocked destinations' entries in place without blocking progress for
// others (section 4.3's ordering guarantee).
type outboundQueue struct {
	q       *equeue.Queue
	maxSize int

	// draining guards against reentrant drain calls: a synchronous Channel
	// (transport.Loopback, transport.Stream) can fire FrameSent before its
	// own SendFrame returns, which re-enters drain through handleFrameSent
	// while the outer call is still mid-walk over a length it already
	// snapshotted. Without the guard the nested call and the outer call
	// both pop from the same live queue, and the outer call's Remove can
	// run against an already-empty queue, which eapache/queue panics on.
	draining bool
}

func newOutboundQueue(maxSize int) *outboundQueue {
	return &outboundQueue{q: equeue.New(), maxSize: maxSize}
}

func (oq *outboundQueue) len() int { return oq.q.Length() }

// enqueue copies dst and frame into a new entry and appends it, refusing
// if the queue is at capacity.
func (oq *outboundQueue) enqueue(dst string, frame []byte) bool {
	if oq.q.Length() >= oq.maxSize {
		return false
	}
	entryDst := dst
	entryFrame := make([]byte, len(frame))
	copy(entryFrame, frame)
	oq.q.Add(&queueEntry{dst: entryDst, frame: entryFrame})
	return true
}

// drain walks the queue front-to-back, handing each entry's frame to the
// channel resolve returns for its destination if that channel is ready.
// Entries that can't be sent right now are kept, in their original
// relative order. A drain already in progress makes any nested call a
// no-op (see the draining field doc): the outer call alone owns the walk
// and will pick up whatever the nested call would have drained.
func (oq *outboundQueue) drain(resolve func(dst string) *ChannelInfo) {
	if oq.draining {
		return
	}
	oq.draining = true
	defer func() { oq.draining = false }()

	n := oq.q.Length()
	if n == 0 {
		return
	}
	kept := make([]*queueEntry, 0, n)
	for i := 0; i < n; i++ {
		entry, _ := oq.q.Remove().(*queueEntry)
		ci := resolve(entry.dst)
		if ci != nil && ci.ready() {
			ci.Busy = true
			if ci.channel.SendFrame(entry.frame) {
				continue
			}
			ci.Busy = false
		}
		kept = append(kept, entry)
	}
	for _, entry := range kept {
		oq.q.Add(entry)
	}
}
