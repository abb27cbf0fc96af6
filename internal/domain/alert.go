package domain

import (
	"fmt"
	"time"
)

// AlertFeedLimit is the number of alerts returned by the alert feed.
const AlertFeedLimit = 50

// AlertRecord is the persisted, append-only record of a raised alert.
type AlertRecord struct {
	ID            uint64    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	State         string    `json:"state"`
	Message       string    `json:"message"`
	RiskLevel     RiskLevel `json:"risk_level"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildAlert returns the alert for a resolved risk level, and false when the
// level does not warrant one. Only HIGH raises an alert.
func BuildAlert(level RiskLevel, state string) (AlertRecord, bool) {
	if level != RiskHigh {
		return AlertRecord{}, false
	}
	state = NormalizeState(state)
	return AlertRecord{
		State:     state,
		Message:   AlertMessage(state),
		RiskLevel: RiskHigh,
	}, true
}

// AlertMessage is the human-readable text stored with an alert.
func AlertMessage(state string) string {
	return fmt.Sprintf("High outbreak risk detected in %s", NormalizeState(state))
}
