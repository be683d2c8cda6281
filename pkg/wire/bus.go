package wire

import (
	"sync"

	"github.com/google/uuid"

	"github.com/shillgo/shillgo/pkg/shillerr"
)

// Bus tracks deferred method replies and fans out PropertyChanged signals,
// the bookkeeping a bus-facing component (Manager, Service) needs on top of
// the plain message types: a Connect call replies OperationInitiated with a
// token immediately, then the component completes that token once the
// state machine reaches its terminal state.
//
// Tokens are random UUIDs (github.com/google/uuid) rather than a sequence
// counter, so a token leaked across a daemon restart or guessed by a
// misbehaving peer can't be replayed against a live deferred reply.
type Bus struct {
	mu          sync.Mutex
	pending     map[string]func(*MethodReply)
	subscribers map[uint32]func(PropertyChanged)
	nextSubID   uint32
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		pending:     make(map[string]func(*MethodReply)),
		subscribers: make(map[uint32]func(PropertyChanged)),
	}
}

// NewToken allocates a fresh deferred-reply token and registers onComplete
// to be invoked exactly once when CompleteDeferred(token, ...) is called.
func (b *Bus) NewToken(onComplete func(*MethodReply)) string {
	token := uuid.NewString()

	b.mu.Lock()
	b.pending[token] = onComplete
	b.mu.Unlock()

	return token
}

// CompleteDeferred resolves a previously issued token with its final
// status and payload. Resolving an unknown or already-resolved token is a
// no-op.
func (b *Bus) CompleteDeferred(token string, status shillerr.Status, payload any) {
	b.mu.Lock()
	fn, ok := b.pending[token]
	if ok {
		delete(b.pending, token)
	}
	b.mu.Unlock()

	if ok {
		fn(&MethodReply{MessageID: ReplyMessageID, Status: status, Payload: payload, Token: token})
	}
}

// Pending reports how many deferred replies are outstanding.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Subscribe registers fn to receive every PropertyChanged signal published
// on the bus. The returned func unsubscribes.
func (b *Bus) Subscribe(fn func(PropertyChanged)) func() {
	b.mu.Lock()
	b.nextSubID++
	id := b.nextSubID
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// Publish fans a PropertyChanged signal out to every current subscriber.
func (b *Bus) Publish(object string, changes map[string]any) {
	if len(changes) == 0 {
		return
	}
	sig := PropertyChanged{Object: object, Changes: changes}

	b.mu.Lock()
	fns := make([]func(PropertyChanged), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(sig)
	}
}
