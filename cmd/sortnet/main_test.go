package main

import (
	"os"
	"path/filepath"
	test "testing"
)

func resetFlags() {
	toolConfigPath, popConfigPath, dbPath, metricsAddr, cpuProfilePath = "", "", "", "", ""
	logLevel, seedFlag = "info", 0
}

func writeToolConfig(t *test.T) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "seed = 5\nmetrics_addr = \":9100\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write tool config: %v", err)
	}
	return path
}

func TestFlagsOverrideToolConfig(t *test.T) {
	defer resetFlags()
	root := newRootCommand()
	path := writeToolConfig(t)
	if err := root.ParseFlags([]string{"--config", path, "--metrics-addr", ":9200", "--seed", "9"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	config := loadToolConfig(root)
	if config.MetricsAddr != ":9200" {
		t.Errorf("Expected --metrics-addr to win, got %q", config.MetricsAddr)
	}
	if config.Seed != 9 {
		t.Errorf("Expected --seed to win, got %d", config.Seed)
	}
}

func TestToolConfigKeptWithoutFlags(t *test.T) {
	defer resetFlags()
	root := newRootCommand()
	if err := root.ParseFlags([]string{"--config", writeToolConfig(t)}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	config := loadToolConfig(root)
	if config.MetricsAddr != ":9100" || config.Seed != 5 {
		t.Errorf("Expected the file values, got %q and %d", config.MetricsAddr, config.Seed)
	}
	if config.Persistence != nil {
		t.Errorf("Expected no persistence without --db")
	}
}
