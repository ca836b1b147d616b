package command

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	queued int32 = iota
	taken
	abandoned
)

type envelope struct {
	id    uuid.UUID
	req   Request
	reply chan Response
	state *atomic.Int32
}

// Channel is the duplex queue between transports and the render loop. Send is
// safe for concurrent callers; they are served one at a time. Poll and Close
// belong to the loop.
type Channel struct {
	send sync.Mutex

	mu     sync.Mutex
	closed bool
	reqs   chan envelope
}

// NewChannel returns a channel holding up to backlog requests abandoned by
// callers whose context expired.
func NewChannel(backlog int) *Channel {
	if backlog < 1 {
		backlog = 1
	}
	return &Channel{reqs: make(chan envelope, backlog)}
}

// Send queues req and waits for its response. When ctx ends before the loop
// has taken the request, the request is abandoned and never applied. Once
// taken, Send waits for the response regardless of ctx.
func (c *Channel) Send(ctx context.Context, req Request) (Response, error) {
	c.send.Lock()
	defer c.send.Unlock()

	env := envelope{id: uuid.New(), req: req, reply: make(chan Response, 1), state: new(atomic.Int32)}
	if err := c.enqueue(env); err != nil {
		return Response{}, err
	}
	select {
	case r := <-env.reply:
		return r, nil
	case <-ctx.Done():
		if env.state.CompareAndSwap(queued, abandoned) {
			return Response{}, ctx.Err()
		}
		return <-env.reply, nil
	}
}

func (c *Channel) enqueue(env envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.reqs <- env:
		return nil
	default:
		return ErrBusy
	}
}

// Pending is a request taken off the channel. Respond must be called once
// unless Abandoned is set, in which case the request must not be applied.
type Pending struct {
	ID        uuid.UUID
	Request   Request
	Abandoned bool
	reply     chan Response
}

func (p *Pending) Respond(r Response) {
	r.ID = p.ID
	select {
	case p.reply <- r:
	default:
	}
}

// Poll returns the next request without waiting. Requests whose sender gave
// up are still returned, marked Abandoned, so each Poll takes exactly one.
func (c *Channel) Poll() (*Pending, bool) {
	select {
	case env := <-c.reqs:
		gone := !env.state.CompareAndSwap(queued, taken)
		return &Pending{ID: env.id, Request: env.req, Abandoned: gone, reply: env.reply}, true
	default:
		return nil, false
	}
}

// Close rejects further sends. Requests already queued stay available to Poll.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
