// Package ledger owns the durable usage counters and evaluates capacity
// ratios against tier-scaled limits. It is the only writer of the counter
// keys: all mutations go through one mutex so increments are never lost to
// read-modify-write races, and the in-memory counters stay authoritative
// when a persist attempt fails.
package ledger

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/theirongolddev/convgauge/internal/store"
)

// Durable state keys.
const (
	KeyConversationTokens = "currentConversationTokens"
	KeyMessageCount       = "currentMessageCount"
	KeyDailyTokens        = "dailyTokens"
	KeyLastResetDate      = "lastResetDate"
	KeyLastURL            = "lastUrl"
	KeySelectedPlan       = "selectedPlan"
	KeyLastUpdate         = "lastUpdate"
)

// Ratios is the usage snapshot the alert evaluator and display consume.
// Values may exceed 1.0 when a limit has been blown through.
type Ratios struct {
	Daily   float64 `json:"daily"`
	Context float64 `json:"context"`
	Message float64 `json:"message"`
}

// Counters holds the raw counter values for display.
type Counters struct {
	ConversationTokens   int64  `json:"conversation_tokens"`
	ConversationMessages int64  `json:"conversation_messages"`
	DailyTokens          int64  `json:"daily_tokens"`
	LastResetDate        string `json:"last_reset_date"`
	LastURL              string `json:"last_url"`
	Plan                 Plan   `json:"plan"`
}

// Ledger tracks per-conversation and daily usage against plan limits.
type Ledger struct {
	mu sync.Mutex
	st *store.Store

	convTokens   int64
	convMessages int64
	dailyTokens  int64

	lastResetDate string
	lastURL       string
	plan          Plan

	now func() time.Time
}

// Open loads durable counters from the store. A read failure degrades to
// zero-valued counters so tracking restarts rather than failing the host.
func Open(st *store.Store) *Ledger {
	l := &Ledger{st: st, plan: PlanPro, now: time.Now}

	rec, err := st.Get(
		KeyConversationTokens, KeyMessageCount, KeyDailyTokens,
		KeyLastResetDate, KeyLastURL, KeySelectedPlan,
	)
	if err != nil {
		log.Printf("convgauge: state read failed, starting from zero: %v", err)
		return l
	}

	l.convTokens = parseCounter(rec[KeyConversationTokens])
	l.convMessages = parseCounter(rec[KeyMessageCount])
	l.dailyTokens = parseCounter(rec[KeyDailyTokens])
	l.lastResetDate = rec[KeyLastResetDate]
	l.lastURL = rec[KeyLastURL]
	l.plan = ParsePlan(rec[KeySelectedPlan])

	return l
}

func parseCounter(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ApplyFragmentCost adds one fragment's cost to the conversation and daily
// token counters, increments the message count, and persists the new
// absolute values. The returned ratios reflect the update even when the
// persist fails; the error is informational and the next successful write
// carries the full cumulative values.
func (l *Ledger) ApplyFragmentCost(cost int64) (Ratios, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.convTokens += cost
	l.dailyTokens += cost
	l.convMessages++

	err := l.persistCounters()
	return l.ratiosLocked(), err
}

// Ratios computes the three capacity ratios under the current plan.
func (l *Ledger) Ratios() Ratios {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ratiosLocked()
}

func (l *Ledger) ratiosLocked() Ratios {
	limits := LimitsFor(l.plan)
	return Ratios{
		Daily:   float64(l.dailyTokens) / float64(limits.DailyTokens),
		Context: float64(l.convTokens) / float64(ContextWindowTokens),
		Message: float64(l.convMessages) / float64(limits.ConversationMessages),
	}
}

// Counters returns a copy of the raw counter values.
func (l *Ledger) Counters() Counters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Counters{
		ConversationTokens:   l.convTokens,
		ConversationMessages: l.convMessages,
		DailyTokens:          l.dailyTokens,
		LastResetDate:        l.lastResetDate,
		LastURL:              l.lastURL,
		Plan:                 l.plan,
	}
}

// SetPlan updates the subscription tier and persists it. Stored counters
// are not rescaled; only subsequent ratio computations change.
func (l *Ledger) SetPlan(p Plan) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.plan = p
	if err := l.st.Set(map[string]string{KeySelectedPlan: string(p)}); err != nil {
		return fmt.Errorf("persisting plan: %w", err)
	}
	return nil
}

// Plan returns the active subscription tier.
func (l *Ledger) Plan() Plan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.plan
}

// ResetConversation zeroes the conversation counters and records the new
// conversation location. Prior conversation usage is not kept per-ID:
// revisiting a conversation starts it from zero.
func (l *Ledger) ResetConversation(url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.convTokens = 0
	l.convMessages = 0
	l.lastURL = url

	err := l.st.Set(map[string]string{
		KeyConversationTokens: "0",
		KeyMessageCount:       "0",
		KeyLastURL:            url,
	})
	if err != nil {
		return fmt.Errorf("persisting conversation reset: %w", err)
	}
	return nil
}

// ResetDaily zeroes the daily token counter and records the reset date.
func (l *Ledger) ResetDaily(today string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dailyTokens = 0
	l.lastResetDate = today

	err := l.st.Set(map[string]string{
		KeyDailyTokens:   "0",
		KeyLastResetDate: today,
	})
	if err != nil {
		return fmt.Errorf("persisting daily reset: %w", err)
	}
	return nil
}

// LastResetDate returns the calendar date of the most recent daily reset.
func (l *Ledger) LastResetDate() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastResetDate
}

// LastURL returns the location of the conversation currently tracked.
func (l *Ledger) LastURL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastURL
}

// persistCounters writes the absolute counter values plus the update
// timestamp. Callers hold l.mu. Writing absolute values, never deltas, is
// what lets a failed write self-heal on the next successful one.
func (l *Ledger) persistCounters() error {
	err := l.st.Set(map[string]string{
		KeyConversationTokens: strconv.FormatInt(l.convTokens, 10),
		KeyMessageCount:       strconv.FormatInt(l.convMessages, 10),
		KeyDailyTokens:        strconv.FormatInt(l.dailyTokens, 10),
		KeyLastUpdate:         l.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("persisting counters: %w", err)
	}
	return nil
}
