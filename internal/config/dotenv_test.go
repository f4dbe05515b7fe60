package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TABLESAFE_A=from-file\nTABLESAFE_B=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TABLESAFE_A", "from-env")
	t.Setenv("TABLESAFE_B", "")
	os.Unsetenv("TABLESAFE_B")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := os.Getenv("TABLESAFE_A"); got != "from-env" {
		t.Errorf("TABLESAFE_A = %q, want from-env", got)
	}
	if got := os.Getenv("TABLESAFE_B"); got != "from-file" {
		t.Errorf("TABLESAFE_B = %q, want from-file", got)
	}
}
