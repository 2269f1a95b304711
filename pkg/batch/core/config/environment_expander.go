package config

import (
	"os"
	"strings"
)

// EnvironmentExpander expands ${VAR} placeholders in raw configuration.
type EnvironmentExpander interface {
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands placeholders from the process environment.
// ${VAR:-default} falls back to default when VAR is unset or empty; a bare ${VAR} expands to "".
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates an OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand implements EnvironmentExpander.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return []byte(os.Expand(string(input), lookup)), nil
}

func lookup(placeholder string) string {
	name, fallback, _ := strings.Cut(placeholder, ":-")
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
