package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("debug", "json", &buf)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	Component(l, "ws").WithField("actor", "staff").Info("connected")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ws", line["component"])
	assert.Equal(t, "staff", line["actor"])
	assert.Equal(t, "connected", line["msg"])
}

func TestNewWithOutputFallbacks(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("loud", "xml", &buf)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	_, ok := l.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestComponentNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Component(nil, "gateway").Info("dropped")
	})
}
