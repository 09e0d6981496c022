package transcript

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestTailer(t *testing.T) (*Tailer, string, *[][]Event) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")

	var batches [][]Event
	tl := NewTailer(path, time.Minute, 0, func(evs []Event, _ int64) {
		batches = append(batches, evs)
	})
	return tl, path, &batches
}

func appendLines(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append transcript: %v", err)
	}
}

func TestReadNewDeliversAppendedLinesInOrder(t *testing.T) {
	tl, path, batches := newTestTailer(t)

	appendLines(t, path,
		`{"type":"navigate","url":"/chat/a"}`+"\n"+
			`{"type":"message","id":"m1","text":"hi"}`+"\n")
	tl.readNew()

	appendLines(t, path, `{"type":"message","id":"m2","text":"more"}`+"\n")
	tl.readNew()

	if len(*batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(*batches))
	}
	first := (*batches)[0]
	if len(first) != 2 || first[0].Location != "/chat/a" || first[1].Node == nil || first[1].Node.ID != "m1" {
		t.Fatalf("first batch = %+v", first)
	}
	second := (*batches)[1]
	if len(second) != 1 || second[0].Node == nil || second[0].Node.ID != "m2" {
		t.Fatalf("second batch = %+v", second)
	}
}

func TestReadNewIgnoresPartialTrailingLine(t *testing.T) {
	tl, path, batches := newTestTailer(t)

	appendLines(t, path, `{"type":"message","id":"m1","text":"hi"}`+"\n"+`{"type":"mess`)
	tl.readNew()

	if len(*batches) != 1 || len((*batches)[0]) != 1 {
		t.Fatalf("batches = %+v, want one batch with one event", *batches)
	}

	// Completing the line later delivers it exactly once.
	appendLines(t, path, `age","id":"m2","text":"done"}`+"\n")
	tl.readNew()

	if len(*batches) != 2 {
		t.Fatalf("got %d batches after completion, want 2", len(*batches))
	}
	if (*batches)[1][0].Node == nil || (*batches)[1][0].Node.ID != "m2" {
		t.Fatalf("completed line batch = %+v", (*batches)[1])
	}
}

func TestReadNewHandlesTruncation(t *testing.T) {
	tl, path, batches := newTestTailer(t)

	appendLines(t, path, `{"type":"message","id":"m1","text":"hi"}`+"\n")
	tl.readNew()

	if err := os.WriteFile(path, []byte(`{"type":"message","id":"m2","text":"new"}`+"\n"), 0o600); err != nil {
		t.Fatalf("truncate transcript: %v", err)
	}
	tl.readNew()

	if len(*batches) != 2 {
		t.Fatalf("got %d batches after truncation, want 2", len(*batches))
	}
	if (*batches)[1][0].Node.ID != "m2" {
		t.Fatalf("post-truncation batch = %+v", (*batches)[1])
	}
}

func TestReadNewResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	line1 := `{"type":"message","id":"m1","text":"hi"}` + "\n"
	line2 := `{"type":"message","id":"m2","text":"more"}` + "\n"
	appendLines(t, path, line1+line2)

	var batches [][]Event
	var offsets []int64
	tl := NewTailer(path, time.Minute, int64(len(line1)), func(evs []Event, off int64) {
		batches = append(batches, evs)
		offsets = append(offsets, off)
	})
	tl.readNew()

	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches = %+v, want one batch with only the post-offset line", batches)
	}
	if batches[0][0].Node == nil || batches[0][0].Node.ID != "m2" {
		t.Fatalf("resumed batch = %+v, want m2", batches[0])
	}
	if want := int64(len(line1) + len(line2)); offsets[0] != want {
		t.Fatalf("reported offset = %d, want %d", offsets[0], want)
	}
}

func TestReadNewMissingFileIsQuiet(t *testing.T) {
	tl, _, batches := newTestTailer(t)
	tl.readNew()
	if len(*batches) != 0 {
		t.Fatalf("batches = %+v from missing file, want none", *batches)
	}
}
