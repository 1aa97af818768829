package config

import (
	"fmt"
	"sort"
	"strings"
)

// Key describes one recognized workspace configuration key.
type Key struct {
	Name     string
	Default  string
	Validate func(value string) error
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
	}
}

func email(v string) error {
	if v != "" && !strings.Contains(v, "@") {
		return fmt.Errorf("%q is not an email address", v)
	}
	return nil
}

// The closed set of workspace keys.
const (
	UserName   = "user.name"
	UserEmail  = "user.email"
	CoreEditor = "core.editor"
	ColorUI    = "color.ui"
	LogOneline = "log.oneline"
)

var recognized = map[string]Key{
	UserName:   {Name: UserName},
	UserEmail:  {Name: UserEmail, Validate: email},
	CoreEditor: {Name: CoreEditor, Default: "vi"},
	ColorUI:    {Name: ColorUI, Default: "auto", Validate: oneOf("auto", "always", "never")},
	LogOneline: {Name: LogOneline, Default: "false", Validate: oneOf("true", "false")},
}

// Lookup returns the definition of a recognized key.
func Lookup(name string) (Key, bool) {
	k, ok := recognized[name]
	return k, ok
}

// Keys returns every recognized key name, sorted.
func Keys() []string {
	names := make([]string, 0, len(recognized))
	for name := range recognized {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
