package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/fuzzyvm/cache"
	"github.com/chazu/fuzzyvm/compiler"
	"github.com/chazu/fuzzyvm/compiler/hash"
	"github.com/chazu/fuzzyvm/manifest"
	"github.com/chazu/fuzzyvm/pkg/bytecode"
	"github.com/chazu/fuzzyvm/pkg/fuzzy"
	"github.com/chazu/fuzzyvm/vm"
)

var errNoManifest = errors.New("no " + manifest.FileName + " found")

// project is a loaded controller manifest with its compiler.
type project struct {
	manifest   *manifest.Manifest
	compiler   *compiler.Compiler
	ruleSource []byte // lowering rules the compiler was built from
	inputs     map[string]fuzzy.Variable
	outputs    map[string]fuzzy.Variable
}

// openProject finds the manifest at or above dir and prepares a compiler
// for it.
func openProject(dir string) (*project, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w in %s or its parents", errNoManifest, dir)
	}

	rules, transforms, err := m.Transforms()
	if err != nil {
		return nil, err
	}
	c, err := compiler.New(rules,
		compiler.WithMaxStack(m.Controller.MaxStack),
		compiler.WithMaxRounds(m.Controller.MaxRounds))
	if err != nil {
		return nil, err
	}
	if transforms == nil {
		transforms = compiler.DefaultRuleSource()
	}

	return &project{
		manifest:   m,
		compiler:   c,
		ruleSource: transforms,
		inputs:     m.InputVariables(),
		outputs:    m.OutputVariables(),
	}, nil
}

// build compiles the rule source, going through the chunk cache when one
// is configured. Cache failures are logged and the source is compiled.
func (p *project) build() (*vm.Machine, error) {
	path := p.manifest.RulesPath()
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read rules: %w", err)
	}

	// Keyed on the parsed tree, so layout and comment edits still hit.
	sum, program, err := hash.Source(bytes.NewReader(src), path)
	if err != nil {
		return nil, err
	}
	var store *cache.Cache
	key := p.cacheKey(sum)
	if cachePath := p.manifest.CachePath(); cachePath != "" {
		store, err = cache.Open(cachePath)
		if err != nil {
			log.Warningf("cache disabled: %v", err)
		} else {
			defer store.Close()
			chunk, ok, err := store.Get(key)
			if err != nil {
				log.Warningf("cache read: %v", err)
			}
			if ok {
				m, err := vm.Load(chunk, p.inputs, p.outputs)
				if err == nil {
					return m, nil
				}
				log.Warningf("cached chunk %s rejected: %v", key, err)
			}
		}
	}

	chunk, err := p.compiler.Compile(program, p.inputs, p.outputs)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.Put(key, chunk); err != nil {
			log.Warningf("cache write: %v", err)
		}
	}
	return vm.Load(chunk, p.inputs, p.outputs)
}

// cacheKey identifies the chunk compiled from program by everything else
// that shapes it: the chunk format, the lowering rules and the manifest.
func (p *project) cacheKey(program [32]byte) cache.Key {
	var version [2]byte
	binary.BigEndian.PutUint16(version[:], bytecode.Version)
	return cache.NewKey(version[:], program[:], p.ruleSource, p.manifest.Raw)
}

// parseAssignment splits "name=value".
func parseAssignment(arg string) (string, int64, error) {
	name, value, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return "", 0, fmt.Errorf("expected name=value, got %q", arg)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("input %s: %w", name, err)
	}
	return strings.TrimSpace(name), v, nil
}

// setInputs applies every name=value argument to m.
func setInputs(m *vm.Machine, args []string) error {
	for _, arg := range args {
		name, v, err := parseAssignment(arg)
		if err != nil {
			return err
		}
		if err := m.Input(name, v); err != nil {
			return err
		}
	}
	return nil
}

// formatOutputs renders every output as "name = value", one per line, in
// defuzzer order.
func formatOutputs(m *vm.Machine) string {
	var b strings.Builder
	for _, name := range m.Outputs() {
		v, _ := m.Output(name)
		fmt.Fprintf(&b, "%s = %d\n", name, v)
	}
	return b.String()
}
