package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"cloud.google.com/go/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLevelToSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level    zerolog.Level
		severity logging.Severity
	}{
		{zerolog.TraceLevel, logging.Debug},
		{zerolog.DebugLevel, logging.Debug},
		{zerolog.InfoLevel, logging.Info},
		{zerolog.WarnLevel, logging.Warning},
		{zerolog.ErrorLevel, logging.Error},
		{zerolog.FatalLevel, logging.Alert},
		{zerolog.PanicLevel, logging.Emergency},
		{zerolog.NoLevel, logging.Info},
	}
	for _, tc := range tests {
		require.Equal(t, tc.severity, levelToSeverity(tc.level), tc.level.String())
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, "abc123", false)
	logger.Warn().Str("address", "0x01").Msg("checking allowance")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "autopay", line["service"])
	require.Equal(t, "abc123", line["version"])
	require.Equal(t, "WARNING", line["severity"])
	require.Equal(t, "0x01", line["address"])
	require.Equal(t, "checking allowance", line["message"])
	require.Contains(t, line, zerolog.TimestampFieldName)
}
