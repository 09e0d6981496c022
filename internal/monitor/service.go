// Package monitor hosts the long-running usage accounting engine: it
// wires the transcript source through detection, estimation, the ledger
// and the lifecycle resetter, and exposes the resulting state over a
// local HTTP API with an SSE stream.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/theirongolddev/convgauge/internal/alert"
	"github.com/theirongolddev/convgauge/internal/detect"
	"github.com/theirongolddev/convgauge/internal/estimate"
	"github.com/theirongolddev/convgauge/internal/ledger"
	"github.com/theirongolddev/convgauge/internal/lifecycle"
	"github.com/theirongolddev/convgauge/internal/store"
	"github.com/theirongolddev/convgauge/internal/transcript"
)

// transcriptOffsetKey is the monitor's own durable key: the transcript
// byte offset already consumed into the counters. Resuming from it keeps
// restarts from re-pricing content a previous run has counted.
const transcriptOffsetKey = "transcriptOffset"

// Config controls the monitor runtime behavior.
type Config struct {
	TranscriptPath  string
	StatePath       string
	Addr            string
	PollInterval    time.Duration
	RefreshInterval time.Duration
	AlertsBuffer    int
	DefaultPlan     ledger.Plan
}

// Snapshot is the compact usage state served to consumers.
type Snapshot struct {
	At       time.Time       `json:"at"`
	Counters ledger.Counters `json:"counters"`
	Ratios   ledger.Ratios   `json:"ratios"`
	Alerts   []alert.Alert   `json:"alerts"`
}

// Event is emitted whenever the usage snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"` // "snapshot", "usage" or "alert"
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	TranscriptPath  string    `json:"transcript_path"`
	Fragments       int64     `json:"fragments"`
	Summary         Snapshot  `json:"summary"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service runs the accounting engine and its HTTP API.
type Service struct {
	cfg Config

	st       *store.Store
	led      *ledger.Ledger
	det      *detect.Detector
	resetter *lifecycle.Resetter

	mu          sync.RWMutex
	startedAt   time.Time
	fragments   int64
	hasSnapshot bool
	snapshot    Snapshot
	active      map[alert.Dimension]alert.Alert
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New opens the state store and ledger and returns a ready service.
// When no plan has ever been selected, the configured default is persisted
// so the plan survives restarts.
func New(cfg Config) (*Service, error) {
	if cfg.PollInterval < time.Second {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.RefreshInterval < time.Second {
		cfg.RefreshInterval = 2 * time.Second
	}
	if cfg.AlertsBuffer < 1 {
		cfg.AlertsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8791"
	}
	if cfg.StatePath == "" {
		cfg.StatePath = store.DefaultPath()
	}

	st, err := store.Open(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	led := ledger.Open(st)
	if cfg.DefaultPlan != "" {
		if rec, err := st.Get(ledger.KeySelectedPlan); err == nil {
			if _, ok := rec[ledger.KeySelectedPlan]; !ok {
				if err := led.SetPlan(cfg.DefaultPlan); err != nil {
					log.Printf("convgauge: persisting default plan: %v", err)
				}
			}
		}
	}

	return &Service{
		cfg:       cfg,
		st:        st,
		led:       led,
		det:       detect.New(),
		resetter:  lifecycle.New(led),
		startedAt: time.Now(),
		active:    make(map[alert.Dimension]alert.Alert),
		subs:      make(map[int]chan Event),
	}, nil
}

// Close releases the state store.
func (s *Service) Close() error {
	return s.st.Close()
}

// Ledger exposes the underlying ledger for in-process consumers.
func (s *Service) Ledger() *ledger.Ledger {
	return s.led
}

// Run starts the transcript tailer, HTTP endpoints and periodic checks
// until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/alerts", s.handleAlerts)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Day boundary is checked at startup, then hourly.
	s.resetter.CheckDay()

	tailer := s.newTailer()
	if err := tailer.Start(); err != nil {
		return fmt.Errorf("starting transcript tailer: %w", err)
	}
	defer tailer.Stop()

	// Seed the initial snapshot so status is useful immediately.
	s.refresh()

	dayTicker := time.NewTicker(lifecycle.DayCheckInterval)
	defer dayTicker.Stop()
	refreshTicker := time.NewTicker(s.cfg.RefreshInterval)
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-dayTicker.C:
			s.resetter.CheckDay()
			s.refresh()
		case <-refreshTicker.C:
			s.refresh()
		case err := <-errCh:
			return fmt.Errorf("monitor http server: %w", err)
		}
	}
}

// newTailer builds the transcript tailer, resuming at the durable offset
// so content counted by a previous run is never re-delivered.
func (s *Service) newTailer() *transcript.Tailer {
	return transcript.NewTailer(s.cfg.TranscriptPath, s.cfg.PollInterval, s.loadOffset(), s.handleTranscript)
}

// loadOffset returns the persisted transcript offset, or zero when unset
// or unreadable.
func (s *Service) loadOffset() int64 {
	rec, err := s.st.Get(transcriptOffsetKey)
	if err != nil {
		log.Printf("convgauge: reading transcript offset: %v", err)
		return 0
	}
	n, err := strconv.ParseInt(rec[transcriptOffsetKey], 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// handleTranscript applies one ordered batch of transcript events, then
// persists the consumed offset. The tailer serializes batches, so fragment
// costs and conversation resets are applied in arrival order, and the
// offset is written only after the batch it covers has reached the ledger.
func (s *Service) handleTranscript(events []transcript.Event, offset int64) {
	applied := 0
	for _, ev := range events {
		if ev.Location != "" {
			s.resetter.HandleLocation(ev.Location)
			continue
		}
		if ev.Node == nil {
			continue
		}
		for _, frag := range s.det.Detect([]detect.Node{*ev.Node}) {
			if _, err := s.led.ApplyFragmentCost(fragmentCost(frag)); err != nil {
				// Non-fatal: in-memory counters carry the value forward.
				log.Printf("convgauge: %v", err)
			}
			applied++
		}
	}

	if applied > 0 {
		s.mu.Lock()
		s.fragments += int64(applied)
		s.mu.Unlock()
	}

	if err := s.st.Set(map[string]string{transcriptOffsetKey: strconv.FormatInt(offset, 10)}); err != nil {
		log.Printf("convgauge: persisting transcript offset: %v", err)
	}
	s.refresh()
}

func fragmentCost(f detect.Fragment) int64 {
	if f.Kind == detect.KindImage {
		return estimate.ImageCost(f.Width, f.Height)
	}
	return estimate.TextCost(f.Text)
}

// refresh recomputes the snapshot and alert set, publishing events for
// usage changes and alert transitions. Within a dimension a new alert
// replaces the previous one; it never stacks.
func (s *Service) refresh() {
	counters := s.led.Counters()
	ratios := s.led.Ratios()
	alerts := alert.Evaluate(ratios)
	now := time.Now()

	snap := Snapshot{At: now, Counters: counters, Ratios: ratios, Alerts: alerts}

	var toPublish []Event

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot
	s.hasSnapshot = true
	s.snapshot = snap

	alertsChanged := s.updateActiveLocked(alerts)

	switch {
	case !prevExists:
		s.nextEventID++
		toPublish = append(toPublish, Event{
			ID: s.nextEventID, Type: "snapshot", Timestamp: now, Snapshot: snap,
		})
	case alertsChanged:
		s.nextEventID++
		toPublish = append(toPublish, Event{
			ID: s.nextEventID, Type: "alert", Timestamp: now, Snapshot: snap,
		})
	case countersChanged(prev.Counters, counters):
		s.nextEventID++
		toPublish = append(toPublish, Event{
			ID: s.nextEventID, Type: "usage", Timestamp: now, Snapshot: snap,
		})
	}
	s.mu.Unlock()

	for _, ev := range toPublish {
		s.publishEvent(ev)
	}
}

// updateActiveLocked replaces the per-dimension active alerts and reports
// whether anything changed. Callers hold s.mu.
func (s *Service) updateActiveLocked(alerts []alert.Alert) bool {
	next := make(map[alert.Dimension]alert.Alert, len(alerts))
	for _, a := range alerts {
		next[a.Dimension] = a
	}

	changed := len(next) != len(s.active)
	if !changed {
		for dim, a := range next {
			if prev, ok := s.active[dim]; !ok || prev.Severity != a.Severity {
				changed = true
				break
			}
		}
	}

	s.active = next
	return changed
}

func countersChanged(prev, curr ledger.Counters) bool {
	return prev != curr
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.AlertsBuffer {
		s.events = s.events[len(s.events)-s.cfg.AlertsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		TranscriptPath:  s.cfg.TranscriptPath,
		Fragments:       s.fragments,
		Summary:         s.snapshot,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
