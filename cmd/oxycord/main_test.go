package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/oxycord/internal/credstore"
	"pkt.systems/oxycord/schema"
)

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"login": false, "status": false, "logout": false, "config": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected root command to include %s", name)
		}
	}
	if root.RunE == nil {
		t.Fatalf("expected root command to run login by default")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "pkt.systems/oxycord ") && !strings.Contains(out, "oxycord") {
		t.Fatalf("unexpected version output %q", out)
	}

	out, err = execute(t, "version", "--verbose")
	if err != nil {
		t.Fatalf("version --verbose: %v", err)
	}
	if !strings.Contains(out, "module:") || !strings.Contains(out, "go:") {
		t.Fatalf("expected yaml build details, got %q", out)
	}
}

func TestConfigCommandPrintsEffectiveConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	out, err := execute(t, "-c", cfgPath, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "data_dir: "+dir) {
		t.Fatalf("expected data dir in output, got %q", out)
	}
	if !strings.Contains(out, "encrypt: false") {
		t.Fatalf("expected store override in output, got %q", out)
	}
}

func TestConfigInitWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	out, err := execute(t, "-c", path, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("expected written path in output, got %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if _, err := execute(t, "-c", path, "config", "init"); err == nil {
		t.Fatalf("expected init to refuse overwrite")
	}
	if _, err := execute(t, "-c", path, "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestStatusAndLogout(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	store, err := credstore.New(filepath.Join(dir, "data"), nil, nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Save(schema.SessionData{}.WithToken("tok")); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := execute(t, "-c", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if strings.TrimSpace(out) != "session: stored" {
		t.Fatalf("unexpected status %q", out)
	}

	out, err = execute(t, "-c", cfgPath, "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if strings.TrimSpace(out) != "session cleared" {
		t.Fatalf("unexpected logout output %q", out)
	}

	out, err = execute(t, "-c", cfgPath, "status")
	if err != nil {
		t.Fatalf("status after logout: %v", err)
	}
	if strings.TrimSpace(out) != "session: none" {
		t.Fatalf("unexpected status %q", out)
	}
}

func TestLoginReusesStoredSession(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	store, err := credstore.New(filepath.Join(dir, "data"), nil, nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := store.Save(schema.SessionData{}.WithToken("tok")); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := execute(t, "-c", cfgPath)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Signed in.") {
		t.Fatalf("expected signed in output, got %q", out)
	}
}

func TestBadConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("config_version: 99\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := execute(t, "-c", path, "status"); err == nil {
		t.Fatalf("expected unsupported config version to fail")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	path := filepath.Join(dataDir, "config.yaml")
	content := "config_version: 1\ndata_dir: " + dataDir + "\nstore:\n  encrypt: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
