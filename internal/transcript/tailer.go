package transcript

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Tailer watches one transcript file and delivers appended lines as
// ordered event batches. fsnotify provides low-latency wakeups; a polling
// ticker always runs as a safety net for filesystems without events.
type Tailer struct {
	path         string
	pollInterval time.Duration
	onEvents     func([]Event, int64)

	mu     sync.Mutex
	offset int64

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewTailer returns a Tailer that resumes reading at offset. onEvents is
// called with each batch of newly appended events in file order, together
// with the byte offset after the batch so the caller can persist it and
// resume there on the next run.
func NewTailer(path string, pollInterval time.Duration, offset int64, onEvents func([]Event, int64)) *Tailer {
	if offset < 0 {
		offset = 0
	}
	return &Tailer{
		path:         path,
		pollInterval: pollInterval,
		offset:       offset,
		onEvents:     onEvents,
		stop:         make(chan struct{}),
	}
}

// Start begins watching. Content between the resume offset and the current
// end of file is read as the first batch; content before the offset was
// consumed by a previous run and is never re-delivered.
func (t *Tailer) Start() error {
	t.readNew()

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		// Watch the directory: the transcript may not exist yet, and
		// editors replace files rather than appending in place.
		_ = fsw.Add(filepath.Dir(t.path))

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for {
				select {
				case event, ok := <-fsw.Events:
					if !ok {
						return
					}
					if event.Name == t.path &&
						(event.Op&fsnotify.Write != 0 || event.Op&fsnotify.Create != 0) {
						t.readNew()
					}
				case <-t.stop:
					_ = fsw.Close()
					return
				}
			}
		}()
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.readNew()
			case <-t.stop:
				return
			}
		}
	}()

	return nil
}

// Stop signals goroutines to exit and waits for them to finish.
func (t *Tailer) Stop() {
	close(t.stop)
	t.wg.Wait()
}

// readNew consumes complete lines appended since the last read. The mutex
// serializes the fsnotify and polling paths so batches never interleave
// and arrival order is preserved.
func (t *Tailer) readNew() {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < t.offset {
		// Truncated or replaced: start over from the top.
		t.offset = 0
	}
	if info.Size() == t.offset {
		return
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}

	var events []Event
	pos := t.offset

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// Partial trailing line: leave it for the next read.
			break
		}
		lineStart := pos
		pos += int64(len(line))

		if ev, ok := parseLine(line, lineStart); ok {
			events = append(events, ev)
		}
	}
	t.offset = pos

	if len(events) > 0 {
		t.onEvents(events, pos)
	}
}
