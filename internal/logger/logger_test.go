package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if filepath.Base(filepath.Dir(got)) != defaultLogDirName {
		t.Fatalf("unexpected log dir: %s", filepath.Dir(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestNewReleaseWritesEventToFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Sugar().Infow("stock_deducted", "product_id", 7)
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), `"event":"stock_deducted"`) {
		t.Fatalf("expected event key in json log, got=%s", string(content))
	}
	if !strings.Contains(string(content), `"product_id":7`) {
		t.Fatalf("expected kv field in json log, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestResolveLevel(t *testing.T) {
	cases := []struct {
		debug bool
		raw   string
		want  zapcore.Level
	}{
		{debug: true, raw: "", want: zapcore.DebugLevel},
		{debug: false, raw: "", want: zapcore.InfoLevel},
		{debug: true, raw: "warn", want: zapcore.WarnLevel},
		{debug: false, raw: "bogus", want: zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := resolveLevel(tc.debug, tc.raw).Level(); got != tc.want {
			t.Fatalf("resolveLevel(%v,%q) want %s got %s", tc.debug, tc.raw, tc.want, got)
		}
	}
}

func TestStockOmitsEmptyDimensions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	previous := L
	L = zap.New(core)
	t.Cleanup(func() { L = previous })

	Stock(5, "M", "").Infow("inventory_stock_low", "available", 1)
	Stock(6, "", "red").Infow("inventory_stock_low")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("want 2 entries got %d", len(entries))
	}
	first := entries[0].ContextMap()
	if first["product_id"] != uint64(5) || first["size"] != "M" {
		t.Fatalf("unexpected fields: %v", first)
	}
	if _, ok := first["color"]; ok {
		t.Fatalf("empty color should be omitted: %v", first)
	}
	second := entries[1].ContextMap()
	if _, ok := second["size"]; ok || second["color"] != "red" {
		t.Fatalf("unexpected fields: %v", second)
	}
}
