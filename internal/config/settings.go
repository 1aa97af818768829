// Package config covers both kinds of tix configuration: runtime Settings
// for the engine process (viper: defaults, user config file, TIX_*
// environment) and the per-workspace Store of recognized keys kept in
// config.yaml and versioned with the tickets.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings are the runtime options of one engine instance.
type Settings struct {
	Actor          string // event log actor; falls back to $USER
	GitBinary      string // git executable
	DefaultProject string // branch created by init
	GitRetries     int    // index.lock retry bound
	Debug          bool
}

// Setting keys. Environment variables are TIX_ plus the upper-cased key
// with '-' replaced by '_'.
const (
	KeyActor          = "actor"
	KeyGit            = "git"
	KeyDefaultProject = "default-project"
	KeyGitRetries     = "git-retries"
	KeyDebug          = "debug"
)

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		GitBinary:      "git",
		DefaultProject: "main",
		GitRetries:     5,
	}
}

// New returns a viper instance with defaults, the user config file search
// path and environment binding configured.
func New() *viper.Viper {
	v := viper.New()
	d := DefaultSettings()
	v.SetDefault(KeyActor, d.Actor)
	v.SetDefault(KeyGit, d.GitBinary)
	v.SetDefault(KeyDefaultProject, d.DefaultProject)
	v.SetDefault(KeyGitRetries, d.GitRetries)
	v.SetDefault(KeyDebug, d.Debug)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := userConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("TIX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tix")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tix")
}

// LoadSettings reads the user config file if one exists and decodes v.
func LoadSettings(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, err
		}
	}
	s := Settings{
		Actor:          v.GetString(KeyActor),
		GitBinary:      v.GetString(KeyGit),
		DefaultProject: v.GetString(KeyDefaultProject),
		GitRetries:     v.GetInt(KeyGitRetries),
		Debug:          v.GetBool(KeyDebug),
	}
	if s.GitBinary == "" {
		s.GitBinary = "git"
	}
	if s.DefaultProject == "" {
		s.DefaultProject = "main"
	}
	if s.GitRetries < 0 {
		s.GitRetries = 0
	}
	return s, nil
}
