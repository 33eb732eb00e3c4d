// Package eventbus implements the node's in-process typed pub/sub registry:
// one or more subscriber channels per message kind, bounded (backpressure)
// or unbounded (for low-volume control messages), with best-effort in-order
// delivery within a single subscriber's channel.
package eventbus

import (
	"sync"

	"github.com/yuvprotocol/node/pixel"
)

// Kind identifies an event's message kind.
type Kind int

const (
	// TxAdmitted fires when the controller admits a transaction into the mempool.
	TxAdmitted Kind = iota
	// TxCheckedOK fires when the isolated checker accepts a transaction.
	TxCheckedOK
	// TxInvalid fires when a transaction is terminally rejected.
	TxInvalid
	// TxConfirmed fires on a transaction's first confirmation.
	TxConfirmed
	// TxFullyConfirmed fires once a transaction reaches the confirmation depth.
	TxFullyConfirmed
	// TxOrphaned fires when a reorg returns a transaction to WaitingMined.
	TxOrphaned
	// TxAttached fires when the graph attacher persists a transaction.
	TxAttached
	// ChromaRegistered fires when a Chroma-metadata announcement attaches.
	ChromaRegistered
	// OutpointFrozen fires when a Freeze announcement attaches.
	OutpointFrozen
	// OwnershipTransferred fires when a Transfer-ownership announcement attaches.
	OwnershipTransferred
	// GetData fires when the attacher requests a missing parent from peers.
	GetData
	// ParentsUnreachable fires when a transaction's TTL sweep gives up.
	ParentsUnreachable
)

// Event is the envelope carried on the bus. Only the fields relevant to
// Kind are populated.
type Event struct {
	Kind Kind

	TxID [32]byte
	Vout uint32

	Chroma pixel.Chroma

	// Reason carries a human-readable classification for TxInvalid and
	// ParentsUnreachable events.
	Reason string
}

// subscriber wraps one subscription's delivery channel and the
// goroutine-owned queue that feeds it without blocking publishers. Every
// subscriber, bounded or not, is fed through in by its own forwarding
// goroutine so successive Publish calls can never race two goroutines
// against the same channel send.
type subscriber struct {
	ch chan Event
	in chan Event // publishers write here; the forwarding goroutine drains it
}

// Bus is the process-scoped pub/sub registry. Constructed once at node
// start and passed by shared handle; Close cancels every subscriber's
// forwarding goroutine before the bus is dropped.
type Bus struct {
	mu   sync.RWMutex
	subs map[Kind][]*subscriber
	done chan struct{}
	wg   sync.WaitGroup
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{
		subs: make(map[Kind][]*subscriber),
		done: make(chan struct{}),
	}
}

// Subscribe registers a new subscriber for kind. A positive capacity
// yields a bounded subscriber: once its input queue, the event held by the
// forwarder, and its output channel are all full, Publish blocks until the
// subscriber drains it, providing backpressure. Zero or negative capacity yields an unbounded
// subscriber backed by an internal growable queue; Publish to it never
// blocks. Either way, a single forwarding goroutine owns the subscriber's
// channel, so two Publish calls to the same subscriber can never race
// each other — the second cannot be delivered before the first.
func (b *Bus) Subscribe(kind Kind, capacity int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if capacity > 0 {
		sub := &subscriber{ch: make(chan Event, capacity), in: make(chan Event, capacity)}
		b.subs[kind] = append(b.subs[kind], sub)
		b.wg.Add(1)
		go b.forwardBounded(sub)
		return sub.ch
	}

	sub := &subscriber{
		ch: make(chan Event),
		in: make(chan Event, 64),
	}
	b.subs[kind] = append(b.subs[kind], sub)
	b.wg.Add(1)
	go b.forwardUnbounded(sub)
	return sub.ch
}

// forwardBounded relays sub.in to sub.ch one event at a time, in arrival
// order. sub.in has the same capacity as sub.ch, so Publish blocks only
// after about twice that many events (plus the one held here) are
// undrained, and two Publish calls never land in two goroutines racing
// the same send.
func (b *Bus) forwardBounded(sub *subscriber) {
	defer b.wg.Done()
	for {
		select {
		case ev, ok := <-sub.in:
			if !ok {
				return
			}
			select {
			case sub.ch <- ev:
			case <-b.done:
				return
			}
		case <-b.done:
			return
		}
	}
}

// forwardUnbounded drains sub.in into sub.ch via an internal slice queue,
// so a slow subscriber never blocks Publish.
func (b *Bus) forwardUnbounded(sub *subscriber) {
	defer b.wg.Done()

	var queue []Event
	for {
		if len(queue) == 0 {
			select {
			case ev, ok := <-sub.in:
				if !ok {
					close(sub.ch)
					return
				}
				queue = append(queue, ev)
			case <-b.done:
				close(sub.ch)
				return
			}
			continue
		}

		select {
		case ev, ok := <-sub.in:
			if !ok {
				queue = nil
				continue
			}
			queue = append(queue, ev)
		case sub.ch <- queue[0]:
			queue = queue[1:]
		case <-b.done:
			close(sub.ch)
			return
		}
	}
}

// Publish delivers ev to every subscriber of ev.Kind, handing it to each
// subscriber's own forwarding goroutine via sub.in. Every subscriber
// drains independently, so one slow subscriber cannot delay delivery to
// the others, and each subscriber's forwarding goroutine preserves the
// order Publish was called in.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := append([]*subscriber(nil), b.subs[ev.Kind]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.in <- ev:
		case <-b.done:
		}
	}
}

// Close cancels all subscriber forwarding goroutines and closes every
// unbounded subscriber's channel. Publish after Close is a no-op. Bounded
// subscriber channels are left open: a send-to-a-closing channel race is
// not worth the complexity when each subscriber already owns its own
// cancellation token for its own shutdown — callers should stop
// reading, not rely on the bus to close their channel for them.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return // already closed
	default:
	}
	close(b.done)
	b.wg.Wait()
}
