package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event, err := NewEvent(EventTenantSchemaDetected, "tenant-service", "req-1", TenantSchemaDetectedEvent{
		Mode:       "legacy",
		ProbeTable: "tenant_family_members",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err)
	assert.Equal(t, EventTenantSchemaDetected, event.Type)
	assert.Equal(t, "req-1", event.CorrelationID)

	var data TenantSchemaDetectedEvent
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, "legacy", data.Mode)
	assert.False(t, data.Inconclusive)
}

func TestNewEvent_UnencodableData(t *testing.T) {
	_, err := NewEvent(EventSchemaChanged, "admin-service", "", map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, getCorrelationID(context.Background()))
	assert.Equal(t, "req-9", getCorrelationID(WithCorrelationID(context.Background(), "req-9")))
}
