// Package alert decides which capacity alerts to surface for a usage
// snapshot. It is a pure function of the ratio triple; rendering is the
// caller's concern.
package alert

import (
	"fmt"

	"github.com/theirongolddev/convgauge/internal/ledger"
)

// Dimension identifies the capacity dimension an alert belongs to.
type Dimension string

const (
	DimensionDaily        Dimension = "daily"
	DimensionConversation Dimension = "conversation"
)

// Severity grades an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert thresholds per dimension.
const (
	dailyWarning  = 0.80
	dailyCritical = 0.95
	convWarning   = 0.70
	convCritical  = 0.90
)

// Alert is one active capacity alert. A newly computed alert for a
// dimension replaces any previously shown alert for that dimension.
type Alert struct {
	Dimension Dimension `json:"dimension"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// Evaluate returns the active alerts for a ratio snapshot: at most one per
// dimension, most severe wins within a dimension, dimensions independent.
// Result order is daily first, then conversation.
func Evaluate(r ledger.Ratios) []Alert {
	var alerts []Alert

	switch {
	case r.Daily >= dailyCritical:
		alerts = append(alerts, Alert{
			Dimension: DimensionDaily,
			Severity:  SeverityCritical,
			Message:   fmt.Sprintf("daily quota at %.0f%%", r.Daily*100),
		})
	case r.Daily >= dailyWarning:
		alerts = append(alerts, Alert{
			Dimension: DimensionDaily,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("daily quota at %.0f%%", r.Daily*100),
		})
	}

	conv := r.Context
	if r.Message > conv {
		conv = r.Message
	}
	switch {
	case conv >= convCritical:
		alerts = append(alerts, Alert{
			Dimension: DimensionConversation,
			Severity:  SeverityCritical,
			Message:   fmt.Sprintf("conversation capacity at %.0f%%", conv*100),
		})
	case conv >= convWarning:
		alerts = append(alerts, Alert{
			Dimension: DimensionConversation,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("conversation capacity at %.0f%%", conv*100),
		})
	}

	return alerts
}
