// Package pubsub implements the channel and glob-pattern subscription
// broker from spec §4.3: SUBSCRIBE/PSUBSCRIBE add a connection id to a
// channel or pattern set, PUBLISH fans out to their union.
package pubsub

import (
	"sync"

	"github.com/edirooss/vermilion/internal/resp"
)

// Receiver is anything that can have a pub/sub message delivered to
// its output buffer; the server's connection type implements it.
type Receiver interface {
	DeliverMessage(channel string, payload []byte)
	DeliverPMessage(pattern, channel string, payload []byte)
}

// Broker guards subscription tables with a reader-writer lock:
// publishes read-lock, subscription changes write-lock, per spec §5.
type Broker struct {
	mu        sync.RWMutex
	channels  map[string]map[int64]Receiver
	patterns  map[string]map[int64]Receiver
}

func New() *Broker {
	return &Broker{
		channels: make(map[string]map[int64]Receiver),
		patterns: make(map[string]map[int64]Receiver),
	}
}

// Subscribe adds connID as a subscriber of channel.
func (b *Broker) Subscribe(connID int64, channel string, r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.channels[channel]
	if !ok {
		set = make(map[int64]Receiver)
		b.channels[channel] = set
	}
	set[connID] = r
}

// Unsubscribe removes connID from channel's subscriber set.
func (b *Broker) Unsubscribe(connID int64, channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.channels[channel]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(b.channels, channel)
		}
	}
}

// PSubscribe adds connID as a subscriber of pattern.
func (b *Broker) PSubscribe(connID int64, pattern string, r Receiver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.patterns[pattern]
	if !ok {
		set = make(map[int64]Receiver)
		b.patterns[pattern] = set
	}
	set[connID] = r
}

// PUnsubscribe removes connID from pattern's subscriber set.
func (b *Broker) PUnsubscribe(connID int64, pattern string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.patterns[pattern]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(b.patterns, pattern)
		}
	}
}

// UnsubscribeAll removes connID from every channel and pattern it is
// subscribed to, used on connection close.
func (b *Broker) UnsubscribeAll(connID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, set := range b.channels {
		delete(set, connID)
		if len(set) == 0 {
			delete(b.channels, ch)
		}
	}
	for pat, set := range b.patterns {
		delete(set, connID)
		if len(set) == 0 {
			delete(b.patterns, pat)
		}
	}
}

// Publish delivers payload to every subscriber of channel (direct or
// via a matching pattern), returning the number of deliveries.
// Delivery is best-effort: a failing receiver does not abort the
// publish, per spec §4.3.
func (b *Broker) Publish(channel string, payload []byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	seen := make(map[int64]struct{})

	if set, ok := b.channels[channel]; ok {
		for id, r := range set {
			func() {
				defer func() { recover() }()
				r.DeliverMessage(channel, payload)
			}()
			seen[id] = struct{}{}
			delivered++
		}
	}
	for pattern, set := range b.patterns {
		if !resp.Match(pattern, channel) {
			continue
		}
		for id, r := range set {
			func() {
				defer func() { recover() }()
				r.DeliverPMessage(pattern, channel, payload)
			}()
			delivered++
			_ = id
		}
	}
	return delivered
}

// NumSubscribers returns the number of direct subscribers to channel.
func (b *Broker) NumSubscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.channels[channel])
}

// NumPatterns returns the total number of distinct active patterns.
func (b *Broker) NumPatterns() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.patterns)
}

// ActiveChannels returns channels with at least one subscriber,
// optionally filtered by glob pattern (empty = all).
func (b *Broker) ActiveChannels(pattern string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for ch := range b.channels {
		if pattern == "" || resp.Match(pattern, ch) {
			out = append(out, ch)
		}
	}
	return out
}
