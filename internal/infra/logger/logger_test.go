package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"meet_link_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	initWith(&config.AppConfig{LogLevel: "debug", Environment: "production"}, &buf)
	buf.Reset()

	For("scheduler").WithField("chat_id", 555).Info("Trigger armed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "scheduler", line["component"])
	assert.Equal(t, "Trigger armed", line["msg"])
	assert.EqualValues(t, 555, line["chat_id"])
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
}

func TestInitFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	initWith(&config.AppConfig{LogLevel: "chatty", Environment: "development"}, &buf)

	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level")
}
