package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_BadFlag(t *testing.T) {
	if code := run([]string{"--no-such-flag"}); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRun_MissingConfigIsLogged(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "agent.log")

	code := run([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--log-file", logPath,
	})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "unable to load configuration") {
		t.Errorf("log file does not record the failure: %q", data)
	}
}
