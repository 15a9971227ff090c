package zerolog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hellotelle/payments/pkg/payments"
)

func TestNewLogger(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
}

func TestLogLevels(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	logger.Debug("debug message", payments.Field{Key: "key", Value: "value"})
	logger.Info("info message", payments.Field{Key: "key", Value: "value"})
	logger.Warn("warn message", payments.Field{Key: "key", Value: "value"})
	logger.Error("error message", payments.Field{Key: "key", Value: "value"})

	out := output.String()
	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output).Level(zerolog.WarnLevel))

	logger.Debug("debug message")
	logger.Info("info message")

	if output.Len() != 0 {
		t.Error("expected debug and info to be filtered out")
	}

	logger.Warn("warn message")
	logger.Error("error message")

	if output.Len() == 0 {
		t.Error("expected warn and error to be logged")
	}
}

func TestFieldsAppearInOutput(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	logger.Info("synced subscription",
		payments.Field{Key: "customer_id", Value: "cus_1"},
		payments.Field{Key: "status", Value: "active"},
		payments.Field{Key: "attempt", Value: 2},
	)

	out := output.String()
	for _, want := range []string{"customer_id", "cus_1", "status", "active"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %s", want, out)
		}
	}
}
