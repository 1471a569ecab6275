// Package assign implements deterministic task ownership selection.
//
// Given the merkle clock head, a task hash, and the full peer roster, every
// peer computes the same owner with no communication: the peer whose digest
// is closest to hash(head ":" task) by hamming distance wins, with ties
// broken lexicographically. This is the property that lets coordinators run
// independently without a consensus round.
package assign

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
)

// ErrNoPeers is returned when the roster is empty at assignment time.
// Recoverable once the roster is populated.
var ErrNoPeers = errors.New("no peers available for assignment")

// SelectTaskOwner returns the peer id that owns the task identified by
// taskHash under the given clock head.
//
// For identical (head, taskHash, peers) inputs the result is identical on
// every peer, regardless of the roster's order. A single-peer roster always
// returns that peer.
func SelectTaskOwner(head, taskHash string, peers []string) (string, error) {
	if len(peers) == 0 {
		return "", ErrNoPeers
	}

	combined := hexDigest(head + ":" + taskHash)

	best := ""
	bestDist := -1
	for _, peer := range peers {
		d := hammingHex(combined, hexDigest(peer))
		if bestDist == -1 || d < bestDist || (d == bestDist && peer < best) {
			best = peer
			bestDist = d
		}
	}
	return best, nil
}

// Spread computes the owner for each task hash in one pass, returning a
// map from task hash to peer id. Used by batch reconciliation.
func Spread(head string, taskHashes []string, peers []string) (map[string]string, error) {
	if len(peers) == 0 {
		return nil, ErrNoPeers
	}
	sorted := append([]string(nil), peers...)
	sort.Strings(sorted)

	out := make(map[string]string, len(taskHashes))
	for _, th := range taskHashes {
		owner, err := SelectTaskOwner(head, th, sorted)
		if err != nil {
			return nil, err
		}
		out[th] = owner
	}
	return out, nil
}

func hexDigest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// hammingHex counts differing hex characters between two equal-length
// digests. Both inputs are sha256 hex strings, so lengths always match;
// the discrete per-character distance is applied uniformly everywhere.
func hammingHex(a, b string) int {
	d := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	if len(a) != len(b) {
		d += len(a) + len(b) - 2*min(len(a), len(b))
	}
	return d
}
