package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "errsight dev") {
		t.Errorf("expected output to contain 'errsight dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "errsight 1.0.0") {
		t.Errorf("expected output to contain 'errsight 1.0.0', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"serve", "db", "project", "keygen", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help missing subcommand %q", sub)
		}
	}
}

func TestKeygenCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"keygen"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	key := strings.TrimSpace(buf.String())
	if len(key) != 64 {
		t.Fatalf("key length = %d, want 64 hex chars", len(key))
	}
	if _, err := hex.DecodeString(key); err != nil {
		t.Errorf("key %q is not hex: %v", key, err)
	}
}

func TestProjectDeleteRequiresConfirmation(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"project", "delete", "some-id"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("delete without --yes succeeded, want refusal")
	}
}
