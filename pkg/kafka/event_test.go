package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resetRequestedPayload struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

func TestNewEvent_PopulatesEnvelope(t *testing.T) {
	event, err := NewEvent("user.registered", "42", "user", "problemboard", resetRequestedPayload{
		UserID: 42,
		Email:  "alice@example.com",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "user.registered", event.EventType)
	assert.Equal(t, "42", event.AggregateID)
	assert.Equal(t, "user", event.AggregateType)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, "problemboard", event.Source)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	event, err := NewEvent("user.password_reset_requested", "7", "user", "problemboard", resetRequestedPayload{
		UserID: 7,
		Email:  "bob@example.com",
	})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	data, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "corr-1", decoded.CorrelationID)

	var payload resetRequestedPayload
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, int64(7), payload.UserID)
	assert.Equal(t, "bob@example.com", payload.Email)
}
