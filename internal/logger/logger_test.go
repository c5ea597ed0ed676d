package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Запись лога не является JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	ctx := context.Background()

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		Info(ctx, "Тестовое сообщение")
		entry := decodeLine(t, &buf)
		if entry["message"] != "Тестовое сообщение" || entry["severity"] != "info" {
			t.Errorf("Неверный формат лога Info: %s", buf.String())
		}
		if _, ok := entry["timestamp"]; !ok {
			t.Errorf("Нет поля timestamp: %s", buf.String())
		}
	})

	t.Run("Error with error", func(t *testing.T) {
		buf.Reset()
		Error(ctx, errors.New("тестовая ошибка"), "Дополнительное сообщение")
		entry := decodeLine(t, &buf)
		if entry["message"] != "Дополнительное сообщение" || entry["error"] != "тестовая ошибка" {
			t.Errorf("Неверный формат лога Error: %s", buf.String())
		}
	})

	t.Run("Error without error", func(t *testing.T) {
		buf.Reset()
		Error(ctx, nil, "Сообщение без ошибки")
		entry := decodeLine(t, &buf)
		if _, ok := entry["error"]; ok {
			t.Errorf("Поле error не ожидалось: %s", buf.String())
		}
	})

	t.Run("Debug with level", func(t *testing.T) {
		buf.Reset()
		SetLevel(LevelDebug)
		defer SetLevel(LevelInfo)

		Debug(ctx, "Тестовое debug-сообщение")
		if !strings.Contains(buf.String(), "Тестовое debug-сообщение") {
			t.Errorf("Debug сообщение не записано: %s", buf.String())
		}
	})

	t.Run("Debug without level", func(t *testing.T) {
		buf.Reset()
		SetLevel(LevelInfo)

		Debug(ctx, "Это не должно логироваться")
		if buf.String() != "" {
			t.Errorf("Debug сообщение не должно логироваться при LevelInfo: %s", buf.String())
		}
	})
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	ctx := WithRequestID(context.Background(), "req-1")
	Info(ctx, "Сообщение с полями", "key1", "value1", "key2", 42, "dangling")

	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-1" {
		t.Errorf("Ожидался request_id=req-1: %s", buf.String())
	}
	if entry["key1"] != "value1" || entry["key2"] != float64(42) {
		t.Errorf("Поля не попали в запись: %s", buf.String())
	}
	if entry["dangling"] != "(MISSING)" {
		t.Errorf("Непарный ключ должен логироваться как (MISSING): %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":  LevelDebug,
		" warn ": LevelWarn,
		"error":  LevelError,
		"bogus":  LevelInfo,
		"":       LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, ожидалось %v", in, got, want)
		}
	}
}
