// Package manifest decodes a project manifest -- name, target, main
// source file, sources glob list, includes path list, defines map, and
// a configurations map of per-configuration overrides -- into the flat
// CompilerOptions a compilation actually consumes. Grounded on
// lookbusy1344-arm_emulator/config/config.go's "decode TOML into a
// tagged struct" shape, generalized from that emulator's single flat
// config file to poppy's base-plus-named-overrides structure.
package manifest

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/TheAnsarya/poppy/target"
)

// Manifest is the on-disk project file shape, decoded with
// github.com/BurntSushi/toml the way config.LoadFrom decodes its
// emulator config.
type Manifest struct {
	Name     string            `toml:"name"`
	Target   string            `toml:"target"`
	Main     string            `toml:"main"`
	Sources  []string          `toml:"sources"`
	Includes []string          `toml:"includes"`
	Defines  map[string]int64  `toml:"defines"`

	// Configurations holds named override blocks; each one merges onto
	// the base fields above the same way config.go's sections each
	// decode independently but share one struct.
	Configurations map[string]Override `toml:"configurations"`
}

// Override is a named configuration's partial overlay onto the base
// Manifest. Zero-valued fields here leave the base value untouched,
// mirroring config.go's DefaultConfig-then-decode-over-it approach.
type Override struct {
	Target   string           `toml:"target"`
	Main     string           `toml:"main"`
	Sources  []string         `toml:"sources"`
	Includes []string         `toml:"includes"`
	Defines  map[string]int64 `toml:"defines"`
}

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to parse project manifest %q: %w", path, err)
	}
	if m.Defines == nil {
		m.Defines = map[string]int64{}
	}
	return &m, nil
}

// LoadBytes decodes manifest content already read into memory (used by
// tests and any caller that already owns the file's bytes).
func LoadBytes(data []byte) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("failed to parse project manifest: %w", err)
	}
	if m.Defines == nil {
		m.Defines = map[string]int64{}
	}
	return &m, nil
}

// CompilerOptions is the flat, resolved view of one configuration a
// build actually runs with.
type CompilerOptions struct {
	Target   target.Tag
	Main     string
	Sources  []string
	Includes []string
	Defines  map[string]int64
}

// Resolve merges configName's Override (if any) onto m's base fields
// and resolves the target tag, producing the CompilerOptions a
// compilation runs with. An empty configName resolves the base
// manifest with no overrides applied.
func (m *Manifest) Resolve(configName string) (*CompilerOptions, error) {
	targetName := m.Target
	main := m.Main
	sources := m.Sources
	includes := m.Includes
	defines := mergeDefines(m.Defines, nil)

	if configName != "" {
		ov, ok := m.Configurations[configName]
		if !ok {
			return nil, fmt.Errorf("unknown configuration %q", configName)
		}
		if ov.Target != "" {
			targetName = ov.Target
		}
		if ov.Main != "" {
			main = ov.Main
		}
		if len(ov.Sources) > 0 {
			sources = ov.Sources
		}
		if len(ov.Includes) > 0 {
			includes = ov.Includes
		}
		defines = mergeDefines(m.Defines, ov.Defines)
	}

	tag, ok := target.ParseTag(targetName)
	if !ok {
		return nil, fmt.Errorf("unrecognized target %q", targetName)
	}

	return &CompilerOptions{
		Target:   tag,
		Main:     main,
		Sources:  sources,
		Includes: includes,
		Defines:  defines,
	}, nil
}

// mergeDefines layers override on top of base, leaving base untouched.
func mergeDefines(base, override map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Exists reports whether path looks like a manifest file present on
// disk, used by cmd/poppy to decide whether -p was actually given a
// real file before trying to decode it.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
