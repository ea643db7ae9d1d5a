package sim

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML engine configuration file. Keys that are absent
// keep their DefaultConfig value; unknown keys are rejected.
//
//	substitution:
//	  sub_out_stamina: 35
//	injury:
//	  enabled: false
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading engine config: %w", err)
	}
	return ParseConfig(bytes.NewReader(data))
}

// ParseConfig decodes an engine configuration over DefaultConfig and validates it.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parsing engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return cfg, nil
}
