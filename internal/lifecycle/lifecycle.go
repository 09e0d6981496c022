// Package lifecycle drives the two reset state machines: a level-triggered
// daily check against the device-local calendar date, and a
// conversation-boundary reset on location change.
package lifecycle

import (
	"context"
	"log"
	"net/url"
	"regexp"
	"time"

	"github.com/theirongolddev/convgauge/internal/ledger"
)

// DayCheckInterval is how often the daily reset condition is polled.
const DayCheckInterval = time.Hour

// conversationPath matches locations that are inside a conversation view.
var conversationPath = regexp.MustCompile(`^/chat/[A-Za-z0-9_-]+$`)

// Resetter watches for day and conversation boundaries and clears the
// relevant ledger counters when one is crossed.
type Resetter struct {
	ledger *ledger.Ledger
	now    func() time.Time
}

// New returns a Resetter bound to the given ledger.
func New(l *ledger.Ledger) *Resetter {
	return &Resetter{ledger: l, now: time.Now}
}

// CheckDay resets the daily counter when the stored reset date is not
// today. It is level-triggered: any number of checks on the same day after
// the first reset are no-ops, so calling it hourly and at init is safe.
func (r *Resetter) CheckDay() {
	today := r.now().Format("2006-01-02")
	if r.ledger.LastResetDate() == today {
		return
	}
	if err := r.ledger.ResetDaily(today); err != nil {
		log.Printf("convgauge: daily reset persist failed: %v", err)
	}
}

// HandleLocation processes a location-change signal. Only transitions
// between distinct conversation identities reset the conversation
// counters; locations outside a conversation view are ignored.
func (r *Resetter) HandleLocation(location string) {
	path := conversationPathOf(location)
	if path == "" {
		return
	}
	if path == r.ledger.LastURL() {
		return
	}
	if err := r.ledger.ResetConversation(path); err != nil {
		log.Printf("convgauge: conversation reset persist failed: %v", err)
	}
}

// Run checks the day boundary immediately and then on every tick until ctx
// is canceled.
func (r *Resetter) Run(ctx context.Context) {
	r.CheckDay()

	ticker := time.NewTicker(DayCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.CheckDay()
		}
	}
}

// conversationPathOf extracts the conversation path from a location
// string, which may be a bare path or a full URL. Returns "" when the
// location is not a conversation view.
func conversationPathOf(location string) string {
	path := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		path = u.Path
	}
	if !conversationPath.MatchString(path) {
		return ""
	}
	return path
}
