// Package config80211 implements the Config80211 of spec.md section 4.11: a
// netlink message dispatch surface with two handler registries, a
// broadcast list for unsolicited messages and a sequence-number-keyed map
// of one-shot handlers for replies to previously sent messages. It is
// grounded on the original implementation's config80211_unittest.cc.
// Handlers are identified without comparing Go func values (which are not
// comparable): broadcast handlers by a caller-supplied identity key, which
// makes the idempotent-add check and RemoveBroadcastHandler possible without
// reflect, and one-shot handlers by the sequence number SendMessage returns,
// which RemoveMessageHandler takes.
package config80211

import "sync"

// Message is the opaque netlink payload handlers receive. Real message
// parsing (nl80211 attribute decoding) lives above this package; Config80211
// only routes the envelope.
type Message struct {
	Sequence uint32
	Payload  []byte
}

// Handler receives a dispatched Message.
type Handler func(Message)

// BroadcastToken is the internal registration number assigned to each
// handler added via AddBroadcastHandler. It is not returned to callers;
// removal goes through the handler's identity key.
type BroadcastToken uint64

// Sender transmits an outgoing netlink message and reports the sequence
// number the kernel will echo back in its reply.
type Sender interface {
	Send(payload []byte) (sequence uint32, err error)
}

// Config80211 routes inbound netlink messages to the right handler: the
// one-shot handler registered for the message's sequence number if any,
// otherwise every registered broadcast handler.
type Config80211 struct {
	mu sync.Mutex

	sender Sender

	nextToken   BroadcastToken
	broadcast   []broadcastEntry

	perSequence map[uint32]Handler
}

type broadcastEntry struct {
	token   BroadcastToken
	handler Handler
	key     any // identity key supplied by the caller, for idempotent Add
}

// New creates a Config80211 bound to sender.
func New(sender Sender) *Config80211 {
	return &Config80211{
		sender:      sender,
		perSequence: make(map[uint32]Handler),
	}
}

// AddBroadcastHandler registers handler under identity key. Adding a key
// that is already registered is a no-op, not an error (spec.md section
// 4.11): the original's handler-as-value-equality check becomes an
// explicit caller-supplied key here, since Go function values are not
// comparable.
func (c *Config80211) AddBroadcastHandler(key any, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.broadcast {
		if e.key == key {
			return
		}
	}
	c.nextToken++
	c.broadcast = append(c.broadcast, broadcastEntry{token: c.nextToken, handler: handler, key: key})
}

// RemoveBroadcastHandler removes the broadcast handler registered under key.
// Reports whether a handler was actually removed.
func (c *Config80211) RemoveBroadcastHandler(key any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.broadcast {
		if e.key == key {
			c.broadcast = append(c.broadcast[:i], c.broadcast[i+1:]...)
			return true
		}
	}
	return false
}

// ClearBroadcastHandlers removes every registered broadcast handler.
func (c *Config80211) ClearBroadcastHandlers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcast = nil
}

// HasBroadcastHandler reports whether key is currently registered.
func (c *Config80211) HasBroadcastHandler(key any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.broadcast {
		if e.key == key {
			return true
		}
	}
	return false
}

// SendMessage transmits payload via the Sender, assigns the returned
// sequence number to handler, and registers it as a one-shot reply
// handler keyed by that sequence.
func (c *Config80211) SendMessage(payload []byte, handler Handler) (uint32, error) {
	seq, err := c.sender.Send(payload)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.perSequence[seq] = handler
	c.mu.Unlock()
	return seq, nil
}

// RemoveMessageHandler removes a registered one-shot handler for sequence
// before its reply has arrived. Reports whether a handler was removed.
func (c *Config80211) RemoveMessageHandler(sequence uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.perSequence[sequence]; !ok {
		return false
	}
	delete(c.perSequence, sequence)
	return true
}

// OnNlMessageReceived looks up the per-sequence handler for msg; if present,
// invokes it exactly once (consuming the registration) and returns without
// falling through to broadcast. Otherwise every broadcast handler is
// invoked, in registration order.
func (c *Config80211) OnNlMessageReceived(msg Message) {
	c.mu.Lock()
	handler, ok := c.perSequence[msg.Sequence]
	if ok {
		delete(c.perSequence, msg.Sequence)
	}
	var broadcast []Handler
	if !ok {
		broadcast = make([]Handler, len(c.broadcast))
		for i, e := range c.broadcast {
			broadcast[i] = e.handler
		}
	}
	c.mu.Unlock()

	if ok {
		handler(msg)
		return
	}
	for _, h := range broadcast {
		h(msg)
	}
}
