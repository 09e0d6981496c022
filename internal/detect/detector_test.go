package detect

import (
	"fmt"
	"sync"
	"testing"
)

func textNode(id, text string) Node {
	return Node{ID: id, Kind: KindText, Text: text}
}

func TestDetectDeliversNewNodesInOrder(t *testing.T) {
	d := New()

	got := d.Detect([]Node{
		textNode("m1", "hello"),
		textNode("m2", "world"),
	})

	if len(got) != 2 {
		t.Fatalf("Detect returned %d fragments, want 2", len(got))
	}
	if got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("fragments out of order: [%s, %s]", got[0].ID, got[1].ID)
	}
}

func TestDetectDuplicateBatchIsAtMostOnce(t *testing.T) {
	d := New()
	batch := []Node{textNode("m1", "hello")}

	first := d.Detect(batch)
	second := d.Detect(batch)

	if len(first) != 1 {
		t.Fatalf("first delivery returned %d fragments, want 1", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("duplicate batch delivered %d fragments, want 0", len(second))
	}
}

func TestDetectOverlappingBatches(t *testing.T) {
	d := New()

	// A streaming message shows up in several overlapping mutation reports.
	d.Detect([]Node{textNode("m1", "par")})
	got := d.Detect([]Node{textNode("m1", "partial text grew"), textNode("m2", "next")})

	if len(got) != 1 || got[0].ID != "m2" {
		t.Fatalf("overlapping batch delivered %v, want only m2", got)
	}
}

func TestDetectSkipsNodesWithoutIdentity(t *testing.T) {
	d := New()
	got := d.Detect([]Node{{Kind: KindText, Text: "anonymous"}})
	if got != nil {
		t.Fatalf("node without identity delivered: %v", got)
	}
}

func TestDetectEmptyBatch(t *testing.T) {
	d := New()
	if got := d.Detect(nil); got != nil {
		t.Fatalf("empty batch yielded %v, want nil", got)
	}
}

func TestDetectConcurrentBatchesNeverDouble(t *testing.T) {
	d := New()

	const workers = 8
	const nodes = 200

	batch := make([]Node, 0, nodes)
	for i := 0; i < nodes; i++ {
		batch = append(batch, textNode(fmt.Sprintf("m%d", i), "x"))
	}

	var wg sync.WaitGroup
	delivered := make([]int, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			delivered[w] = len(d.Detect(batch))
		}(w)
	}
	wg.Wait()

	total := 0
	for _, n := range delivered {
		total += n
	}
	if total != nodes {
		t.Fatalf("delivered %d fragments across workers, want exactly %d", total, nodes)
	}
	if d.SeenCount() != nodes {
		t.Fatalf("seen count = %d, want %d", d.SeenCount(), nodes)
	}
}
