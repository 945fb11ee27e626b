package common

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"", LogLevelInfo, false},
		{"info", LogLevelInfo, false},
		{" WARN ", LogLevelWarn, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"debug", LogLevelDebug, false},
		{"verbose", LogLevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q)=%v want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Fatalf("json: got %v, %v", f, err)
	}
	if f, err := ParseFormat("colour"); err != nil || f != FormatColor {
		t.Fatalf("colour: got %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml format")
	}
}

func TestLogLevelToSlog(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  slog.Level
	}{
		{LogLevelError, slog.LevelError},
		{LogLevelWarn, slog.LevelWarn},
		{LogLevelInfo, slog.LevelInfo},
		{LogLevelDebug, slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := tt.level.ToSlogLevel(); got != tt.want {
			t.Errorf("%s: got %v want %v", tt.level, got, tt.want)
		}
	}
}

func TestLoggerWritesContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LogLevelInfo, FormatText).WithComponent("executor").WithMigration("00001_init")
	logger.Info("applying migration")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=executor") || !strings.Contains(out, "migration=00001_init") {
		t.Fatalf("missing context in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
}

func TestLoggerMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LogLevelInfo, FormatJSON)
	logger.Info("connecting",
		"password", "hunter2",
		"dsn", "Server=db;Database=app;User Id=sa;Password=hunter2;TrustServerCertificate=True",
		"error", errors.New("dial postgres://app:hunter2@db:5432/app failed"),
	)
	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked: %s", out)
	}
	if !strings.Contains(out, "TrustServerCertificate=True") {
		t.Fatalf("non-secret segment lost: %s", out)
	}
}

func TestDefaultLogger(t *testing.T) {
	prev := GetLogger()
	defer SetDefaultLogger(prev)

	l := Discard()
	SetDefaultLogger(l)
	if GetLogger() != l {
		t.Fatal("SetDefaultLogger did not replace the default logger")
	}
}
