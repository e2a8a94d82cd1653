package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordedEventShape(t *testing.T) {
	log := New()
	log.Record("node", Body{Kind: KindStart, Tool: "node"})
	log.Record("node", Body{Kind: KindArgs, Tool: "node", Args: []string{"--version"}})
	log.Record("node", Body{Kind: KindToolEnd, Tool: "node", ExitCode: 0})

	log.mu.Lock()
	events := log.events
	log.mu.Unlock()
	require.Len(t, events, 3)

	data, err := json.Marshal(events)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	first := decoded[0]
	assert.Equal(t, "node", first["name"])
	assert.NotZero(t, first["timestamp"])
	body, ok := first["event"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "start", body["kind"])

	second := decoded[1]
	body = second["event"].(map[string]interface{})
	assert.Equal(t, "args", body["kind"])
	assert.Equal(t, []interface{}{"--version"}, body["args"])
}

func TestPublishNoHookIsNoop(t *testing.T) {
	log := New()
	log.Record("node", Body{Kind: KindStart})
	assert.NoError(t, log.Publish(nil, nil))
}

func TestPublishEmptyLogIsNoop(t *testing.T) {
	log := New()
	assert.NoError(t, log.Publish(nil, nil))
}
