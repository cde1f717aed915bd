package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/career-consultant/internal/config"
)

func TestSetupLogger_DevAndProd(t *testing.T) {
	assert.NotNil(t, SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"}))
	assert.NotNil(t, SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"}))
}

func TestSetupLoggerTo_Fields(t *testing.T) {
	var buf bytes.Buffer
	lg := SetupLoggerTo(config.Config{AppEnv: "prod", OTELServiceName: "career-consultant"}, &buf)
	lg.Debug("hidden")
	lg.Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "career-consultant", line["service"])
	assert.Equal(t, "prod", line["env"])
}

func TestSetupLoggerTo_LevelOverride(t *testing.T) {
	var buf bytes.Buffer
	lg := SetupLoggerTo(config.Config{AppEnv: "dev", LogLevel: "warn"}, &buf)
	lg.Info("dropped")
	assert.Zero(t, buf.Len())
	lg.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}
