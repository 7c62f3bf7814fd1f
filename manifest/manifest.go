// Package manifest handles fuzzyvm.toml controller configuration.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/fuzzyvm/pkg/fuzzy"
	"github.com/chazu/fuzzyvm/pkg/rewrite"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "fuzzyvm.toml"

// ErrInvalid reports a manifest that parses but cannot describe a
// controller.
var ErrInvalid = errors.New("invalid manifest")

// Manifest represents a fuzzyvm.toml controller configuration.
type Manifest struct {
	Controller Controller          `toml:"controller"`
	Cache      Cache               `toml:"cache"`
	Inputs     map[string]Variable `toml:"inputs"`
	Outputs    map[string]Variable `toml:"outputs"`

	// Dir is the directory containing the fuzzyvm.toml file (set at load time).
	Dir string `toml:"-"`
	// Raw is the file content, used to key compiled chunks.
	Raw []byte `toml:"-"`
}

// Controller names the rule sources and compilation limits.
type Controller struct {
	Name       string `toml:"name"`
	Rules      string `toml:"rules"`
	Transforms string `toml:"transforms"`
	MaxStack   int    `toml:"max-stack"`
	MaxRounds  int    `toml:"max-rounds"`
}

// Cache configures the compiled chunk cache.
type Cache struct {
	Path string `toml:"path"`
}

// Variable declares one input or output: either a preset with its level
// spans, or free-form levels.
type Variable struct {
	Preset string                `toml:"preset"`
	Levels map[string]fuzzy.Span `toml:"levels"`
}

// Presets maps preset names to their level names, in argument order.
var Presets = map[string][]string{
	"five":           fuzzy.FiveLevelNames,
	"three":          fuzzy.ThreeLevelNames,
	"three-positive": fuzzy.ThreeLevelPositiveNames,
}

// Load parses a fuzzyvm.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates manifest text. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	m.Raw = data

	// Defaults
	if m.Controller.Name == "" {
		m.Controller.Name = "controller"
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Controller.Rules == "" {
		return fmt.Errorf("%w: controller.rules is not set", ErrInvalid)
	}
	if m.Controller.MaxStack < 0 || m.Controller.MaxRounds < 0 {
		return fmt.Errorf("%w: negative controller limit", ErrInvalid)
	}
	if len(m.Outputs) == 0 {
		return fmt.Errorf("%w: no outputs declared", ErrInvalid)
	}
	for name, v := range m.Inputs {
		if err := v.validate(); err != nil {
			return fmt.Errorf("%w: input %s: %v", ErrInvalid, name, err)
		}
	}
	for name, v := range m.Outputs {
		if err := v.validate(); err != nil {
			return fmt.Errorf("%w: output %s: %v", ErrInvalid, name, err)
		}
	}
	return nil
}

func (v Variable) validate() error {
	if v.Preset == "" {
		if len(v.Levels) == 0 {
			return errors.New("no levels")
		}
		return nil
	}
	names, ok := Presets[v.Preset]
	if !ok {
		return fmt.Errorf("unknown preset %q", v.Preset)
	}
	if len(v.Levels) != len(names) {
		return fmt.Errorf("preset %s needs exactly levels %v", v.Preset, names)
	}
	for _, n := range names {
		if _, ok := v.Levels[n]; !ok {
			return fmt.Errorf("preset %s is missing level %s", v.Preset, n)
		}
	}
	return nil
}

// Build constructs the level set. Free-form levels are added in name order.
func (v Variable) Build() *fuzzy.Levels {
	s := func(name string) fuzzy.Span { return v.Levels[name] }
	switch v.Preset {
	case "five":
		return fuzzy.FiveLevels(s("NM"), s("NS"), s("Z"), s("PS"), s("PM"))
	case "three":
		return fuzzy.ThreeLevels(s("NM"), s("Z"), s("PM"))
	case "three-positive":
		return fuzzy.ThreeLevelsPositive(s("Z"), s("PS"), s("PM"))
	}
	names := make([]string, 0, len(v.Levels))
	for n := range v.Levels {
		names = append(names, n)
	}
	sort.Strings(names)
	l := fuzzy.NewLevels()
	for _, n := range names {
		// Map keys are distinct.
		_ = l.Add(n, fuzzy.NewTriangle(v.Levels[n][0], v.Levels[n][1]))
	}
	return l
}

func build(decls map[string]Variable) map[string]fuzzy.Variable {
	out := make(map[string]fuzzy.Variable, len(decls))
	for name, v := range decls {
		out[name] = v.Build()
	}
	return out
}

// InputVariables builds the declared inputs.
func (m *Manifest) InputVariables() map[string]fuzzy.Variable {
	return build(m.Inputs)
}

// OutputVariables builds the declared outputs.
func (m *Manifest) OutputVariables() map[string]fuzzy.Variable {
	return build(m.Outputs)
}

// FindAndLoad walks up from startDir to find a fuzzyvm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Path resolves p against the manifest directory.
func (m *Manifest) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// RulesPath returns the absolute path of the rule source.
func (m *Manifest) RulesPath() string {
	return m.Path(m.Controller.Rules)
}

// TransformsPath returns the absolute path of the transform override, or
// "" when the embedded rule set is used.
func (m *Manifest) TransformsPath() string {
	return m.Path(m.Controller.Transforms)
}

// CachePath returns the absolute path of the chunk cache, or "" when
// caching is off.
func (m *Manifest) CachePath() string {
	return m.Path(m.Cache.Path)
}

// Transforms loads the transform override. It returns a nil rule set when
// none is configured, which selects the embedded rules.
func (m *Manifest) Transforms() (*rewrite.RuleSet, []byte, error) {
	path := m.TransformsPath()
	if path == "" {
		return nil, nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read transforms: %w", err)
	}
	rs, err := rewrite.ReadRuleSet(bytes.NewReader(data), path)
	if err != nil {
		return nil, nil, err
	}
	return rs, data, nil
}
