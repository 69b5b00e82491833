package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budgeteer/internal/core"
)

// LedgerChangedMessage says which of an owner's months need their summary
// recomputed. It carries no amounts; consumers read the store.
type LedgerChangedMessage struct {
	OwnerID   string           `json:"owner_id"`
	Months    []core.YearMonth `json:"months"`
	Reason    string           `json:"reason"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewLedgerChangedMessage(ownerID string, months []core.YearMonth, reason string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		OwnerID:   ownerID,
		Months:    months,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) Validate() error {
	if m.OwnerID == "" {
		return errors.New("missing owner_id")
	}
	for _, ym := range m.Months {
		if ym.Month < 1 || ym.Month > 12 {
			return fmt.Errorf("month %s: %w", ym, core.ErrInvalidMonth)
		}
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and validates a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
