package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAlertEvent(t *testing.T) {
	data := []byte(`{"event_id":"e1","type":"ALERT_DELIVERED","recipient_id":42,"wind_knots":21.4,"threshold_knots":15}`)

	event, err := DecodeAlertEvent(data)
	require.NoError(t, err)

	assert.Equal(t, int64(42), event.RecipientID)
	assert.Nil(t, event.GustKnots)
	assert.Equal(t, "recipient-42", event.Key())
}

func TestDecodeAlertEvent_RejectsUnknownType(t *testing.T) {
	_, err := DecodeAlertEvent([]byte(`{"type":"ALARM_CLEARED"}`))
	assert.ErrorContains(t, err, "unknown alert event type")
}

func TestDecodeAlertEvent_BadJSON(t *testing.T) {
	_, err := DecodeAlertEvent([]byte(`{`))
	assert.Error(t, err)
}
