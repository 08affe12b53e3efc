package config

import (
	"os"
	"testing"
)

func TestSplitListTrimsAndSplits(t *testing.T) {
	got := splitList([]string{" a@x.test, b@x.test ", "", "c@x.test"})
	want := []string{"a@x.test", "b@x.test", "c@x.test"}
	if len(got) != len(want) {
		t.Fatalf("want %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v got %v", want, got)
		}
	}
}

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("INVENTORY_RESERVATION_TTL_MINUTES", "30")

	cfg := Load()
	if cfg.Server.Port != "9191" {
		t.Fatalf("server port want 9191 got %s", cfg.Server.Port)
	}
	if cfg.Inventory.ReservationTTLMinutes != 30 {
		t.Fatalf("reservation ttl want 30 got %d", cfg.Inventory.ReservationTTLMinutes)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("default driver want sqlite got %s", cfg.Database.Driver)
	}
	if cfg.Payment.Currency != "KES" {
		t.Fatalf("default currency want KES got %s", cfg.Payment.Currency)
	}
	if cfg.Kafka.Enabled {
		t.Fatalf("kafka should be disabled by default")
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "127.0.0.1:9092" {
		t.Fatalf("unexpected default brokers: %v", cfg.Kafka.Brokers)
	}
}
