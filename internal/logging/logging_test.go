package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("decision recorded", map[string]interface{}{
		"project": "webapp",
		"count":   3,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "decision recorded", entry["message"])
	fields := entry["fields"].(map[string]interface{})
	assert.Equal(t, "webapp", fields["project"])
}

func TestHumanFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: DebugLevel, Output: &buf})

	logger.Warn("index rebuild failed", map[string]interface{}{"error": "boom"})

	out := buf.String()
	assert.Contains(t, out, "[warn]")
	assert.Contains(t, out, "index rebuild failed")
	assert.Contains(t, out, "boom")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("hidden", nil)
	logger.Info("hidden too", nil)
	assert.Empty(t, buf.String())

	logger.Error("visible", nil)
	assert.Contains(t, buf.String(), "visible")
}

func TestDiscard(t *testing.T) {
	// must not panic or write anywhere
	Discard().Error("nothing", map[string]interface{}{"k": "v"})
}
