package ipc

import "sync"

// eventWaiter is one blocked WaitForEvent call.
type eventWaiter struct {
	ch chan Event
}

// correlator holds the session's shared tables. One mutex guards all of
// them; wake-ups go through buffered channels so the reader never blocks
// while holding the lock.
type correlator struct {
	mu        sync.Mutex
	lastID    int64
	requests  map[int64]chan Reply
	waiters   map[string][]*eventWaiter
	events    []Event
	unmatched []Reply
}

func newCorrelator() *correlator {
	return &correlator{
		requests: make(map[int64]chan Reply),
		waiters:  make(map[string][]*eventWaiter),
	}
}

// register allocates the next request id and its reply slot.
func (c *correlator) register() (int64, chan Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID++
	slot := make(chan Reply, 1)
	c.requests[c.lastID] = slot
	return c.lastID, slot
}

// cancel removes a request slot. It returns false when the reader already
// resolved the request, in which case the reply is waiting in the slot.
func (c *correlator) cancel(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.requests[id]; !ok {
		return false
	}
	delete(c.requests, id)
	return true
}

// watch returns the first logged event named name, or registers a waiter
// when there is none. Checking the log and registering happen under the same
// lock so an event cannot slip in between.
func (c *correlator) watch(name string) (Event, *eventWaiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ev := range c.events {
		if ev.Name() == name {
			return ev, nil
		}
	}
	w := &eventWaiter{ch: make(chan Event, 1)}
	c.waiters[name] = append(c.waiters[name], w)
	return nil, w
}

// unwatch removes a waiter. It returns false when the reader already woke
// it.
func (c *correlator) unwatch(name string, w *eventWaiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.waiters[name]
	for i, candidate := range list {
		if candidate != w {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(c.waiters, name)
		} else {
			c.waiters[name] = list
		}
		return true
	}
	return false
}

// inbound is one decoded frame handed from the reader to resolve.
type inbound struct {
	raw     []byte
	event   Event
	reply   *Reply
	matched bool
}

// resolve logs and routes a batch of frames. Every event is appended to the
// event log and wakes all waiters registered for its name. A reply wakes
// the request that issued its id, or lands in the unmatched log.
func (c *correlator) resolve(batch []inbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range batch {
		msg := &batch[i]
		if msg.event != nil {
			c.events = append(c.events, msg.event)
			name := msg.event.Name()
			waiters := c.waiters[name]
			if len(waiters) == 0 {
				continue
			}
			delete(c.waiters, name)
			for _, w := range waiters {
				w.ch <- msg.event
			}
			msg.matched = true
			continue
		}
		if msg.reply == nil {
			continue
		}
		if id := msg.reply.RequestID; id != nil {
			if slot, ok := c.requests[*id]; ok {
				delete(c.requests, *id)
				slot <- *msg.reply
				msg.matched = true
				continue
			}
		}
		c.unmatched = append(c.unmatched, *msg.reply)
	}
}

func (c *correlator) snapshotEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *correlator) snapshotUnmatched() []Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Reply, len(c.unmatched))
	copy(out, c.unmatched)
	return out
}

func (c *correlator) lastRequestID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastID
}

func (c *correlator) pendingCounts() (requests, waiters int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, list := range c.waiters {
		waiters += len(list)
	}
	return len(c.requests), waiters
}
