package textual

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Theme is a named map of style variables. Declarations reference
// variables as "$name"; substitution happens during resolution, so
// swapping the active theme re-resolves to different concrete values.
type Theme struct {
	Name      string            `yaml:"name"`
	Variables map[string]string `yaml:"variables"`
}

// NewTheme creates an empty theme.
func NewTheme(name string) *Theme {
	return &Theme{Name: name, Variables: make(map[string]string)}
}

// Set assigns a variable.
func (t *Theme) Set(name, value string) *Theme {
	t.Variables[name] = value
	return t
}

// Lookup resolves a variable name (without the leading '$').
func (t *Theme) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.Variables[name]
	return v, ok
}

// LoadTheme reads a theme from a YAML file:
//
//	name: nord
//	variables:
//	  primary: "#88c0d0"
//	  surface: "#2e3440"
func LoadTheme(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme: %w", err)
	}
	return ParseTheme(data)
}

// ParseTheme decodes YAML theme data.
func ParseTheme(data []byte) (*Theme, error) {
	var t Theme
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse theme: %w", err)
	}
	if t.Variables == nil {
		t.Variables = make(map[string]string)
	}
	return &t, nil
}

// DefaultTheme is the engine's built-in variable set.
var DefaultTheme = &Theme{
	Name: "default",
	Variables: map[string]string{
		"primary":    "#0178d4",
		"secondary":  "#004578",
		"accent":     "#ffa62b",
		"warning":    "#ffa62b",
		"error":      "#ba3c5b",
		"success":    "#4ebf71",
		"surface":    "#1e1e1e",
		"panel":      "#121212",
		"text":       "#e0e0e0",
		"text-muted": "#e0e0e0 60%",
	},
}
