package logging

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		parsed, err := ParseLevel(LevelString(level))
		if err != nil || parsed != level {
			t.Errorf("level %v does not round trip: %v %v", level, parsed, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("expected json, got %v %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("expected text, got %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelWarn {
		t.Errorf("expected default level Warn, got %v", cfg.Level)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if cfg.Component != "shopctl" {
		t.Errorf("expected component shopctl, got %s", cfg.Component)
	}
}

func TestJSONOutputAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: LevelInfo, Format: FormatJSON, Writer: &buf, Component: "shopctl"})
	if err != nil {
		t.Fatal(err)
	}

	l.WithComponent("mirror").Info("persisted slice", "key", "cart", "bytes", 42)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "persisted slice" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	if entry["component"] != "shopctl" || entry["subsystem"] != "mirror" {
		t.Errorf("missing component attrs: %v", entry)
	}
	if entry["key"] != "cart" {
		t.Errorf("key attribute must not be redacted: %v", entry["key"])
	}
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: LevelDebug, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	l.Info("login", "email", "asha@example.com", "password", "hunter22", "api_key", "gsk-1", "backend_dsn", "postgres://u:p@h/db")

	out := buf.String()
	for _, secret := range []string{"hunter22", "gsk-1", "u:p@h"} {
		if strings.Contains(out, secret) {
			t.Errorf("secret %q leaked: %s", secret, out)
		}
	}
	if !strings.Contains(out, "asha@example.com") {
		t.Errorf("non-sensitive attribute missing: %s", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: LevelWarn, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	child := l.WithComponent("store")

	child.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}

	l.SetLevel(LevelDebug)
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("derived logger did not follow the level change")
	}
	if child.Level() != LevelDebug {
		t.Errorf("expected debug, got %v", child.Level())
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("dropped")
	if err := l.Close(); err != nil {
		t.Error(err)
	}
}

func TestFileOutput(t *testing.T) {
	var stream bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "shopctl.log")
	l, err := New(&Config{Level: LevelInfo, Output: "both", FilePath: path, Writer: &stream})
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hello file")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") || !strings.Contains(stream.String(), "hello file") {
		t.Error("both outputs should receive the record")
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopctl.log")
	r, err := NewFileRotator(&Config{FilePath: path, MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	chunk := bytes.Repeat([]byte("x"), 700*1024)
	for i := 0; i < 4; i++ {
		if _, err := r.Write(chunk); err != nil {
			t.Fatal(err)
		}
	}

	files := r.Files()
	if len(files) != 3 {
		t.Fatalf("expected live file and 2 backups, got %v", files)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backups beyond MaxBackups must be removed")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len(chunk)) {
		t.Errorf("live file should hold one chunk, got %d bytes", info.Size())
	}
}

func TestRotationCompress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopctl.log")
	r, err := NewFileRotator(&Config{FilePath: path, MaxSizeMB: 1, MaxBackups: 1, Compress: true})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	first := bytes.Repeat([]byte("a"), 900*1024)
	if _, err := r.Write(first); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Write(bytes.Repeat([]byte("b"), 200*1024)); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path + ".1.gz")
	if err != nil {
		t.Fatalf("compressed backup missing: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, first) {
		t.Error("compressed backup does not hold the rotated content")
	}
}
