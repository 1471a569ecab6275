// Package clock implements a merkle clock: an append-only, hash-chained
// event log combined with a Lamport-style logical counter.
//
// Every appended event is chained to the previous head by hash, so the head
// summarizes the entire causal history. Two clocks from different peers can
// be merged into a causally consistent union whose head is identical on any
// peer merging the same two inputs.
//
// Thread-safety: a Clock is NOT safe for unsynchronized concurrent mutation.
// The coordinator serializes all access behind its own mutation lock.
package clock

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/peerflow-dev/peerflow/internal/canonical"
)

// Event is one fact appended to the log.
//
// Hash covers (Parent, Payload, LogicalClock). Timestamp is recorded for
// diagnostics only and never participates in hashing or ordering.
type Event struct {
	Hash         string    `json:"hash"`
	Parent       string    `json:"parent"`
	LogicalClock int64     `json:"logical_clock"`
	Payload      []byte    `json:"payload"`
	Timestamp    time.Time `json:"timestamp"`
}

// computeHash derives the content hash of an event from its chained parent,
// payload, and logical clock.
func computeHash(parent string, payload []byte, logical int64) (string, error) {
	return canonical.HashObject(canonical.DomainEvent, map[string]any{
		"parent":        parent,
		"payload":       hex.EncodeToString(payload),
		"logical_clock": logical,
	})
}

// Clock owns an ordered collection of events plus the current head and
// logical counter. The zero value is not usable; construct with New.
type Clock struct {
	events  map[string]Event
	order   []string // chain order, genesis first
	head    string
	logical int64
	now     func() time.Time
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow overrides the wall-clock source for event timestamps.
// Timestamps are diagnostic only; tests use this for reproducible blobs.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

var defaultNow = time.Now

// New creates an empty clock. The first Append creates the genesis event.
func New(opts ...Option) *Clock {
	c := &Clock{
		events: make(map[string]Event),
		now:    defaultNow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append chains a new event carrying payload to the current head, advances
// the logical counter, and updates the head.
//
// Append never fails except on serialization errors, which indicate a
// programming error in the payload encoding.
func (c *Clock) Append(payload []byte) (Event, error) {
	logical := c.logical + 1

	hash, err := computeHash(c.head, payload, logical)
	if err != nil {
		return Event{}, fmt.Errorf("append: %w", err)
	}

	ev := Event{
		Hash:         hash,
		Parent:       c.head,
		LogicalClock: logical,
		Payload:      append([]byte(nil), payload...),
		Timestamp:    c.now().UTC(),
	}

	c.events[ev.Hash] = ev
	c.order = append(c.order, ev.Hash)
	c.head = ev.Hash
	c.logical = logical
	return ev, nil
}

// Head returns the current head hash, or "" for an empty clock. O(1).
func (c *Clock) Head() string {
	return c.head
}

// Logical returns the current logical counter. O(1).
func (c *Clock) Logical() int64 {
	return c.logical
}

// Len returns the number of events in the log.
func (c *Clock) Len() int {
	return len(c.order)
}

// Events returns the events in chain order, genesis first.
func (c *Clock) Events() []Event {
	out := make([]Event, 0, len(c.order))
	for _, h := range c.order {
		out = append(out, c.events[h])
	}
	return out
}

// Verify walks the chain from genesis to head recomputing every event hash.
// It returns (true, "") for an intact chain, or (false, hash) naming the
// first event whose stored hash or parent link does not match.
//
// Used for integrity checks after deserialization or merge.
func (c *Clock) Verify() (bool, string) {
	parent := ""
	for _, h := range c.order {
		ev, ok := c.events[h]
		if !ok {
			return false, h
		}
		if ev.Parent != parent {
			return false, ev.Hash
		}
		computed, err := computeHash(ev.Parent, ev.Payload, ev.LogicalClock)
		if err != nil || computed != ev.Hash {
			return false, ev.Hash
		}
		parent = ev.Hash
	}
	if c.head != parent {
		return false, c.head
	}
	return true, ""
}

// Merge produces a new clock whose event set is the union of c and other.
//
// The union is ordered by (logical clock, event hash) and re-chained: every
// event's hash is recomputed along the new parent chain, so the merged log
// is again a single chain from genesis to head. Identical shared prefixes
// re-hash to identical values, so repeated merges deduplicate. The merged
// logical counter is max(c, other)+1.
//
// Merge is deterministic: any two peers merging the same two inputs obtain
// the same head. Merges are strictly pairwise; callers reconciling more
// than two clocks must merge in ascending peer-id order.
//
// Neither input is mutated.
func (c *Clock) Merge(other *Clock) (*Clock, error) {
	if other == nil {
		return nil, fmt.Errorf("merge: nil clock")
	}

	union := make(map[string]Event, len(c.events)+len(other.events))
	for h, ev := range c.events {
		union[h] = ev
	}
	for h, ev := range other.events {
		union[h] = ev
	}

	all := make([]Event, 0, len(union))
	for _, ev := range union {
		all = append(all, ev)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].LogicalClock != all[j].LogicalClock {
			return all[i].LogicalClock < all[j].LogicalClock
		}
		return all[i].Hash < all[j].Hash
	})

	merged := &Clock{
		events: make(map[string]Event, len(all)),
		now:    c.now,
	}
	parent := ""
	for _, ev := range all {
		hash, err := computeHash(parent, ev.Payload, ev.LogicalClock)
		if err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		rechained := Event{
			Hash:         hash,
			Parent:       parent,
			LogicalClock: ev.LogicalClock,
			Payload:      append([]byte(nil), ev.Payload...),
			Timestamp:    ev.Timestamp,
		}
		if _, dup := merged.events[hash]; !dup {
			merged.events[hash] = rechained
			merged.order = append(merged.order, hash)
		}
		parent = hash
	}
	merged.head = parent

	logical := c.logical
	if other.logical > logical {
		logical = other.logical
	}
	merged.logical = logical + 1

	return merged, nil
}

// Clone returns a deep copy sharing no mutable state with c.
// The coordinator uses clones to roll back a failed persistence write.
func (c *Clock) Clone() *Clock {
	cp := &Clock{
		events:  make(map[string]Event, len(c.events)),
		order:   append([]string(nil), c.order...),
		head:    c.head,
		logical: c.logical,
		now:     c.now,
	}
	for h, ev := range c.events {
		ev.Payload = append([]byte(nil), ev.Payload...)
		cp.events[h] = ev
	}
	return cp
}
