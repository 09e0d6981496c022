package transcript

import (
	"testing"

	"github.com/theirongolddev/convgauge/internal/detect"
)

func TestParseLineMessage(t *testing.T) {
	ev, ok := parseLine([]byte(`{"type":"message","id":"msg_1","role":"assistant","text":"hello there"}`), 0)
	if !ok {
		t.Fatal("message line not parsed")
	}
	if ev.Node == nil {
		t.Fatal("message line produced no node")
	}
	if ev.Node.ID != "msg_1" || ev.Node.Kind != detect.KindText || ev.Node.Text != "hello there" {
		t.Fatalf("node = %+v", ev.Node)
	}
}

func TestParseLineImage(t *testing.T) {
	ev, ok := parseLine([]byte(`{"type":"image","id":"img_1","width":800,"height":600}`), 0)
	if !ok {
		t.Fatal("image line not parsed")
	}
	if ev.Node == nil || ev.Node.Kind != detect.KindImage {
		t.Fatalf("node = %+v", ev.Node)
	}
	if ev.Node.Width != 800 || ev.Node.Height != 600 {
		t.Fatalf("dimensions = %dx%d, want 800x600", ev.Node.Width, ev.Node.Height)
	}
}

func TestParseLineImageWithoutDimensions(t *testing.T) {
	ev, ok := parseLine([]byte(`{"type":"image","id":"img_2"}`), 0)
	if !ok || ev.Node == nil {
		t.Fatal("dimensionless image line not parsed")
	}
	if ev.Node.Width != 0 || ev.Node.Height != 0 {
		t.Fatalf("dimensions = %dx%d, want 0x0", ev.Node.Width, ev.Node.Height)
	}
}

func TestParseLineNavigate(t *testing.T) {
	ev, ok := parseLine([]byte(`{"type":"navigate","url":"/chat/abc"}`), 0)
	if !ok {
		t.Fatal("navigate line not parsed")
	}
	if ev.Node != nil {
		t.Fatal("navigate event carries a node")
	}
	if ev.Location != "/chat/abc" {
		t.Fatalf("Location = %q, want /chat/abc", ev.Location)
	}
}

func TestParseLineMissingIDUsesOffset(t *testing.T) {
	ev, ok := parseLine([]byte(`{"type":"message","text":"anon"}`), 412)
	if !ok || ev.Node == nil {
		t.Fatal("id-less message not parsed")
	}
	if ev.Node.ID != "line:412" {
		t.Fatalf("fallback ID = %q, want line:412", ev.Node.ID)
	}
}

func TestParseLineSkipsUnrecognizedShapes(t *testing.T) {
	for _, line := range []string{
		`not json at all`,
		`{"type":"presence","user":"x"}`,
		`{"type":"navigate"}`,
		`{}`,
		``,
	} {
		if _, ok := parseLine([]byte(line), 0); ok {
			t.Fatalf("line %q unexpectedly parsed", line)
		}
	}
}
