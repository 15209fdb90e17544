package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateConfigValidFile(t *testing.T) {
	cfgFile = writeTestConfig(t, t.TempDir())

	if err := validateConfig(nil, nil); err != nil {
		t.Errorf("validateConfig() with valid file returned error: %v", err)
	}
}

func TestValidateConfigMissingFile(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")

	if err := validateConfig(nil, nil); err == nil {
		t.Error("validateConfig() with missing file should return error")
	}
}

func TestValidateConfigValidationFailure(t *testing.T) {
	dir := t.TempDir()
	content := `quotas:
  sk-live-abcdef123456:
    per_minute: -1
`
	path := filepath.Join(dir, "tally.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfgFile = path

	if err := validateConfig(nil, nil); err == nil {
		t.Error("validateConfig() with negative quota should return error")
	}
}

func TestValidateConfigBadCronSchedule(t *testing.T) {
	dir := t.TempDir()
	content := `retention:
  schedule: "not a cron expression"
`
	path := filepath.Join(dir, "tally.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfgFile = path

	if err := validateConfig(nil, nil); err == nil {
		t.Error("validateConfig() with bad cron schedule should return error")
	}
}
