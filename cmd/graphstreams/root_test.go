package graphstreams

import (
	"bytes"
	"testing"

	"github.com/edgeflare/graphstreams/pkg/config"
	"github.com/edgeflare/graphstreams/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger("loud")
	require.Error(t, err)
}

func TestStreamsProperties(t *testing.T) {
	cfg = &config.Config{Streams: map[string]string{
		"kafka.group.id":         "from-file",
		"kafka.sasl.password":    "secret",
		"streams.sink.topic.cud": "changes",
	}}
	overrides = map[string]string{"kafka.group.id": "from-flag"}
	t.Cleanup(func() { cfg, overrides = nil, nil })

	props := streamsProperties()
	assert.Equal(t, "from-flag", props["group.id"])
	assert.Equal(t, sink.ClientID("from-flag"), props["client.id"])
	assert.Equal(t, "changes", props["sink.topic.cud"])
	assert.Equal(t, "from-file", cfg.Streams["kafka.group.id"])

	var out bytes.Buffer
	configCmd.SetOut(&out)
	require.NoError(t, configCmd.RunE(configCmd, nil))
	assert.Contains(t, out.String(), "group.id=from-flag\n")
	assert.Contains(t, out.String(), "sasl.password=********\n")
	assert.NotContains(t, out.String(), "secret")
}
