package chanrpc

import (
	"math/rand"
	"time"
)

// Reply is what a reply callback receives: either Result (success) or a
// nonzero ErrorCode with ErrorMsg.
type Reply struct {
	Result    []byte
	ErrorCode int
	ErrorMsg  string
}

// ReplyFunc is invoked at most once for an originated call that requested
// one, when a matching response arrives (or, if CallOptions.Timeout is set
// and expires first, with ErrCallTimeout).
type ReplyFunc func(reply Reply, fi FrameInfo)

// sentRequest is an in-flight originated request awaiting a reply (section
// 3's SentRequest). It is owned by the request table until a matching
// reply arrives, Free is called, or it is expired by ExpireTimeouts.
type sentRequest struct {
	id       int64
	cb       ReplyFunc
	deadline time.Time // zero value means no deadline
}

// requestTable is a mapping keyed by id, replacing the source's SLIST
// per the design notes in section 9 ("reimplementations should use an
// ordered mapping keyed by id").
type requestTable struct {
	byID map[int64]*sentRequest
}

func newRequestTable() *requestTable {
	return &requestTable{byID: make(map[int64]*sentRequest)}
}

func (t *requestTable) insert(sr *sentRequest) { t.byID[sr.id] = sr }

func (t *requestTable) remove(id int64) (*sentRequest, bool) {
	sr, ok := t.byID[id]
	if ok {
		delete(t.byID, id)
	}
	return sr, ok
}

func (t *requestTable) has(id int64) bool {
	_, ok := t.byID[id]
	return ok
}

// idGenerator produces nonzero 64-bit ids via a pseudo-random positive
// increment per call, per section 5: "next_id advances by a
// pseudo-random positive increment per call, producing nonzero IDs
// unlikely to collide with peers or with stale IDs from prior
// connections." Seeded at construction, never from a process-global
// source (section 9's design note against a global RNG).
type idGenerator struct {
	rng  *rand.Rand
	next int64
}

func newIDGenerator(seed int64) *idGenerator {
	return &idGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *idGenerator) nextID() int64 {
	g.next += g.rng.Int63n(1<<31-1) + 1
	if g.next == 0 {
		g.next++
	}
	return g.next
}

// allocID returns an id guaranteed not to collide with any currently-live
// entry in t, satisfying the SHOULD of section 5.
func allocID(g *idGenerator, t *requestTable) int64 {
	id := g.nextID()
	for t.has(id) {
		id = g.nextID()
	}
	return id
}
