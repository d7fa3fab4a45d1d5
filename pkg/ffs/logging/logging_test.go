package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactedAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.New(slog.NewTextHandler(&buf, nil)))
	logger.Info(context.Background(), "response computed", Redacted("y"), "round", 2)

	out := buf.String()
	require.Contains(t, out, "y=")
	require.Contains(t, out, Placeholder())
	require.Contains(t, out, "round=2")
	require.Equal(t, "[redacted]", Placeholder())
}

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.New(slog.NewTextHandler(&buf, nil))).With("role", "prover")
	logger.Warn(context.Background(), "round abandoned")
	require.Contains(t, buf.String(), "role=prover")
}

func TestNewHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewHandler(&buf, "warn", "json")
	require.NoError(t, err)
	logger := New(l)
	logger.Info(context.Background(), "hidden")
	logger.Error(context.Background(), "shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewHandler(&buf, "loud", "text")
	require.Error(t, err)
	_, err = NewHandler(&buf, "info", "xml")
	require.Error(t, err)
}

func TestNopDropsEverything(t *testing.T) {
	logger := Nop()
	logger.Error(context.Background(), "nothing to see")
	require.NotNil(t, logger.With("k", "v"))
}
