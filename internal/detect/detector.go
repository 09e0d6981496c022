// Package detect turns batches of newly inserted content nodes into a
// stream of fragments delivered at most once each. Mutation sources may
// report the same node in overlapping or repeated batches while a message
// streams in; the detector guarantees each node is surfaced exactly once,
// priced at its content as of first detection.
package detect

import "sync"

// Kind classifies a content node.
type Kind int

const (
	KindText Kind = iota
	KindImage
)

// Node is one inserted node from the observed content tree.
type Node struct {
	ID     string // stable identity within the page-load lifetime
	Kind   Kind
	Text   string
	Width  int // zero when dimensions are unavailable
	Height int
}

// Fragment is a node accepted for pricing.
type Fragment Node

// Detector deduplicates inserted nodes across mutation batches. The seen
// set is scoped to the detector's lifetime: on a fresh page load all prior
// content was already reported, so old fragments are never re-scanned.
type Detector struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns a Detector with an empty seen set.
func New() *Detector {
	return &Detector{seen: make(map[string]struct{})}
}

// Detect filters a mutation batch down to fragments not delivered before,
// preserving batch order. Each accepted node is marked seen before it is
// appended to the result, so a node can never be delivered twice even if
// the caller is still handling a previous batch when the next one arrives.
// A batch with no new qualifying nodes yields nil.
func (d *Detector) Detect(batch []Node) []Fragment {
	if len(batch) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Fragment
	for _, n := range batch {
		if n.ID == "" {
			continue
		}
		if _, ok := d.seen[n.ID]; ok {
			continue
		}
		d.seen[n.ID] = struct{}{} // mark before emit
		out = append(out, Fragment(n))
	}
	return out
}

// SeenCount returns the number of distinct fragments delivered so far.
func (d *Detector) SeenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
