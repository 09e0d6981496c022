// Package transcript tails the append-only JSONL mirror of the chat page
// and turns appended lines into content nodes and navigation signals.
package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/theirongolddev/convgauge/internal/detect"
)

// Event is one transcript line in arrival order. Exactly one of Node and
// Location is set; arrival order is preserved so fragment costs are never
// applied out of order with conversation resets.
type Event struct {
	Node     *detect.Node
	Location string
}

// Line shapes:
//
//	{"type":"message","id":"msg_1","role":"assistant","text":"..."}
//	{"type":"image","id":"img_1","width":800,"height":600}
//	{"type":"navigate","url":"/chat/abc"}
type rawLine struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Role   string `json:"role"`
	Text   string `json:"text"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// parseLine maps one transcript line to an Event. Lines that are malformed
// or of an unrecognized shape are skipped, not errors. Nodes without an id
// fall back to their byte offset as identity.
func parseLine(line []byte, offset int64) (Event, bool) {
	var raw rawLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, false
	}

	switch raw.Type {
	case "message":
		id := raw.ID
		if id == "" {
			id = fmt.Sprintf("line:%d", offset)
		}
		return Event{Node: &detect.Node{ID: id, Kind: detect.KindText, Text: raw.Text}}, true

	case "image":
		id := raw.ID
		if id == "" {
			id = fmt.Sprintf("line:%d", offset)
		}
		return Event{Node: &detect.Node{
			ID:     id,
			Kind:   detect.KindImage,
			Width:  raw.Width,
			Height: raw.Height,
		}}, true

	case "navigate":
		if raw.URL == "" {
			return Event{}, false
		}
		return Event{Location: raw.URL}, true
	}

	return Event{}, false
}
