package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// AlertEvent is the Kafka message published for every wind alert delivery attempt
type AlertEvent struct {
	EventID        string    `json:"event_id"`
	RunID          string    `json:"run_id"`
	Type           string    `json:"type"` // ALERT_DELIVERED, ALERT_FAILED
	RecipientID    int64     `json:"recipient_id"`
	Locale         string    `json:"locale"`
	Location       string    `json:"location,omitempty"`
	WindKnots      float64   `json:"wind_knots"`
	WindMS         float64   `json:"wind_ms"`
	GustKnots      *float64  `json:"gust_knots,omitempty"`
	ThresholdKnots float64   `json:"threshold_knots"`
	ObservedAt     time.Time `json:"observed_at"`
	SentAt         time.Time `json:"sent_at"`
	Error          string    `json:"error,omitempty"`
}

const (
	AlertTypeDelivered = "ALERT_DELIVERED"
	AlertTypeFailed    = "ALERT_FAILED"
)

// Key partitions events by recipient so one chat's history stays ordered
func (e *AlertEvent) Key() string {
	return fmt.Sprintf("recipient-%d", e.RecipientID)
}

// EncodeAlertEvent encodes an AlertEvent to JSON
func EncodeAlertEvent(event *AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeAlertEvent decodes JSON to AlertEvent
func DecodeAlertEvent(data []byte) (*AlertEvent, error) {
	var event AlertEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.Type != AlertTypeDelivered && event.Type != AlertTypeFailed {
		return nil, fmt.Errorf("unknown alert event type: %q", event.Type)
	}
	return &event, nil
}
