package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings(New())
	if err != nil {
		t.Fatalf("LoadSettings() returned error: %v", err)
	}
	if s != DefaultSettings() {
		t.Errorf("LoadSettings() = %+v, want %+v", s, DefaultSettings())
	}
}

func TestLoadSettingsEnvironment(t *testing.T) {
	tests := []struct {
		envVar string
		value  string
		check  func(Settings) bool
	}{
		{"TIX_ACTOR", "alice", func(s Settings) bool { return s.Actor == "alice" }},
		{"TIX_GIT", "/usr/local/bin/git", func(s Settings) bool { return s.GitBinary == "/usr/local/bin/git" }},
		{"TIX_DEFAULT_PROJECT", "trunk", func(s Settings) bool { return s.DefaultProject == "trunk" }},
		{"TIX_GIT_RETRIES", "9", func(s Settings) bool { return s.GitRetries == 9 }},
		{"TIX_DEBUG", "true", func(s Settings) bool { return s.Debug }},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)
			s, err := LoadSettings(New())
			if err != nil {
				t.Fatalf("LoadSettings() returned error: %v", err)
			}
			if !tt.check(s) {
				t.Errorf("%s=%s not applied: %+v", tt.envVar, tt.value, s)
			}
		})
	}
}

func TestLoadSettingsUserConfigFile(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, "tix")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	content := "actor: bob\ngit-retries: 2\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(New())
	if err != nil {
		t.Fatalf("LoadSettings() returned error: %v", err)
	}
	if s.Actor != "bob" || s.GitRetries != 2 {
		t.Errorf("config file not applied: %+v", s)
	}

	t.Setenv("TIX_ACTOR", "carol")
	s, err = LoadSettings(New())
	if err != nil {
		t.Fatalf("LoadSettings() returned error: %v", err)
	}
	if s.Actor != "carol" {
		t.Errorf("environment should override the config file, got %q", s.Actor)
	}
}

func TestLoadSettingsBadConfigFile(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, "tix")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("actor: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(New()); err == nil {
		t.Error("expected an error for malformed config file")
	}
}
