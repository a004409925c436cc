package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fundreport/internal/core"
)

// MissedTransferMessage announces a scheduled occurrence that never
// materialized.
type MissedTransferMessage struct {
	MessageID      string          `json:"messageId"`
	ScheduleID     string          `json:"scheduleId"`
	Description    string          `json:"description,omitempty"`
	OccurrenceDate time.Time       `json:"occurrenceDate"`
	Amount         decimal.Decimal `json:"amount"`
	DetectedAt     time.Time       `json:"detectedAt"`
}

// NewMissedTransferMessage builds the message for a Failed occurrence of
// schedule.
func NewMissedTransferMessage(schedule core.RecurringSchedule, occurrence core.ReconciledOccurrence, detectedAt time.Time) *MissedTransferMessage {
	return &MissedTransferMessage{
		MessageID:      uuid.NewString(),
		ScheduleID:     schedule.ID,
		Description:    schedule.Description,
		OccurrenceDate: occurrence.OccurrenceDate,
		Amount:         occurrence.Amount,
		DetectedAt:     detectedAt,
	}
}

// DedupKey identifies the occurrence regardless of message id.
func (m *MissedTransferMessage) DedupKey() string {
	return m.ScheduleID + "@" + m.OccurrenceDate.Format("2006-01-02")
}

func (m *MissedTransferMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MissedTransferMessageFromJSON(data []byte) (*MissedTransferMessage, error) {
	var msg MissedTransferMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
