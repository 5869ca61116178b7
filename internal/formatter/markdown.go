// Package formatter provides trak's output renderers: table, JSON, and YAML.
package formatter

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAML renders any value as YAML. Used for `-o yaml` across trak
// subcommands, matching the same `.trak/config.yaml` encoding used by
// internal/config.
type YAML struct{}

// NewYAML creates a YAML formatter.
func NewYAML() *YAML {
	return &YAML{}
}

// Format encodes v as YAML to w.
func (f *YAML) Format(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(v)
}
