package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Settings is the engine-wide configuration: cache capacities and the
// TLD override, distinct from the per-template Parameters file
// (SPEC_FULL.md DOMAIN STACK). Unlike Parameters it is not part of the
// template language surface, so it is expressed as YAML, the format
// the teacher's own CLI config uses.
type Settings struct {
	ProgramCacheSize int    `yaml:"program_cache_size" validate:"gte=0"`
	DictCacheSize    int    `yaml:"dict_cache_size" validate:"gte=0"`
	ParamsCacheSize  int    `yaml:"params_cache_size" validate:"gte=0"`
	CtypeCacheSize   int    `yaml:"ctype_cache_size" validate:"gte=0"`
	TLD              string `yaml:"tld,omitempty"`
}

// DefaultCacheSize is substituted whenever a cache size is zero
// (spec.md §4.7: "zero in config is replaced by default").
const DefaultCacheSize = 50

// DefaultSettings returns the documented default cache capacities.
func DefaultSettings() *Settings {
	return &Settings{
		ProgramCacheSize: DefaultCacheSize,
		DictCacheSize:    DefaultCacheSize,
		ParamsCacheSize:  DefaultCacheSize,
		CtypeCacheSize:   DefaultCacheSize,
	}
}

var validate = validator.New()

// LoadSettings reads a YAML engine-settings file and validates it.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	s.Normalize()
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("config: invalid settings in %s: %w", path, err)
	}
	return s, nil
}

// Normalize replaces zero cache sizes with DefaultCacheSize
// (spec.md §4.7: "zero in config is replaced by default"). Every
// caller that accepts a caller-built *Settings rather than one routed
// through LoadSettings must call this before handing the sizes to
// NewStore, since a zero capacity makes hashicorp/golang-lru's
// lru.New return a nil cache.
func (s *Settings) Normalize() {
	if s.ProgramCacheSize == 0 {
		s.ProgramCacheSize = DefaultCacheSize
	}
	if s.DictCacheSize == 0 {
		s.DictCacheSize = DefaultCacheSize
	}
	if s.ParamsCacheSize == 0 {
		s.ParamsCacheSize = DefaultCacheSize
	}
	if s.CtypeCacheSize == 0 {
		s.CtypeCacheSize = DefaultCacheSize
	}
}

// ResolveTLD returns the configured TLD, falling back to TENG_TLD and
// then the local hostname, mirroring the process-wide TLD helper
// described in spec.md §5.
func (s *Settings) ResolveTLD() string {
	if s != nil && s.TLD != "" {
		return s.TLD
	}
	if v := os.Getenv("TENG_TLD"); v != "" {
		return v
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return ""
}
