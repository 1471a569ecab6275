package clock

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// blobVersion tracks the serialization format.
// 1 - initial format: chain-ordered event list, head, logical counter.
const blobVersion = 1

// blob is the on-disk shape of a clock. Events are stored in chain order
// so serialization is deterministic: serialize → deserialize → serialize
// yields byte-identical output for an unchanged clock.
type blob struct {
	Version int     `json:"version"`
	Logical int64   `json:"logical"`
	Head    string  `json:"head"`
	Events  []Event `json:"events"`
}

// MarshalBinary serializes the full event set, head, and counter.
func (c *Clock) MarshalBinary() ([]byte, error) {
	b := blob{
		Version: blobVersion,
		Logical: c.logical,
		Head:    c.head,
		Events:  c.Events(),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("marshal clock: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalBinary restores a clock from MarshalBinary output.
//
// The chain is NOT verified here; callers that load untrusted or durable
// state must call Verify afterwards.
func (c *Clock) UnmarshalBinary(data []byte) error {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("unmarshal clock: %w", err)
	}
	if b.Version != blobVersion {
		return fmt.Errorf("unmarshal clock: unsupported version %d", b.Version)
	}

	events := make(map[string]Event, len(b.Events))
	order := make([]string, 0, len(b.Events))
	for _, ev := range b.Events {
		events[ev.Hash] = ev
		order = append(order, ev.Hash)
	}

	c.events = events
	c.order = order
	c.head = b.Head
	c.logical = b.Logical
	if c.now == nil {
		c.now = defaultNow
	}
	return nil
}
