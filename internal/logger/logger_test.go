package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level by default, got %s", log.GetLevel())
	}
}

func TestNew_LevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if got := New().GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %s", got)
	}

	t.Setenv("LOG_LEVEL", "not-a-level")
	if got := New().GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("Expected fallback to info level, got %s", got)
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	output := buf.String()
	if output == "" {
		t.Error("Expected log output, got empty string")
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
}

func TestWithContext_RoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrieved := FromContext(ctx)
	retrieved.Info().Msg("through context")

	if !strings.Contains(buf.String(), "through context") {
		t.Errorf("Expected retrieved logger to write to the original buffer, got: %s", buf.String())
	}
}

func TestFromContextOr(t *testing.T) {
	stashed := &bytes.Buffer{}
	fallbackBuf := &bytes.Buffer{}
	fallback := NewWithWriter(fallbackBuf)

	// Empty context: the fallback logger is used.
	got := FromContextOr(context.Background(), fallback)
	got.Info().Msg("fell back")
	if !strings.Contains(fallbackBuf.String(), "fell back") {
		t.Errorf("Expected fallback logger output, got: %s", fallbackBuf.String())
	}

	// Context with a logger: the stashed one wins.
	ctx := WithContext(context.Background(), NewWithWriter(stashed))
	scoped := FromContextOr(ctx, fallback)
	scoped.Info().Msg("request scoped")
	if !strings.Contains(stashed.String(), "request scoped") {
		t.Errorf("Expected stashed logger output, got: %s", stashed.String())
	}
	if strings.Contains(fallbackBuf.String(), "request scoped") {
		t.Error("Fallback logger must not receive request-scoped output")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	logWithFields := WithFields(log, map[string]interface{}{
		"account_id": "acc-1",
		"file":       "extrato.csv",
	})
	logWithFields.Info().Msg("import started")

	output := buf.String()
	if !strings.Contains(output, "account_id") || !strings.Contains(output, "acc-1") {
		t.Errorf("Expected output to contain account_id field, got: %s", output)
	}
	if !strings.Contains(output, "file") || !strings.Contains(output, "extrato.csv") {
		t.Errorf("Expected output to contain file field, got: %s", output)
	}
}
