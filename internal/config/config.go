// Package config loads compiler features and the known-API registry from
// forget.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"forget/internal/hir"
)

// FileName is the configuration file looked up by Find.
const FileName = "forget.toml"

// Config is the resolved configuration of one compilation.
type Config struct {
	// Path is empty for the built-in defaults.
	Path     string
	Features hir.Features
	Registry *hir.Registry
}

type fileConfig struct {
	Features map[string]bool `toml:"features"`
	// ReplaceRegistry drops the built-in entries instead of extending them.
	ReplaceRegistry bool        `toml:"replace_registry"`
	Registry        []entrySpec `toml:"registry"`
}

type entrySpec struct {
	Name   string    `toml:"name"`
	Kind   string    `toml:"kind"`
	Effect string    `toml:"effect"`
	Arity  *int      `toml:"arity"`
	Memo   *memoSpec `toml:"memo"`
}

type memoSpec struct {
	Callback int `toml:"callback"`
	Deps     int `toml:"deps"`
}

// Find walks up from startDir to locate forget.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses a forget.toml file. Registry entries extend the built-in
// ones unless replace_registry is set; an entry with a built-in name
// overrides it.
func Load(path string) (Config, error) {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	features := hir.DefaultFeatures()
	if meta.IsDefined("features") {
		for name, value := range fc.Features {
			f, err := hir.ParseFeature(name)
			if err != nil {
				return Config{}, fmt.Errorf("%s: [features]: %w", path, err)
			}
			features = features.With(f, value)
		}
	}

	var entries []hir.Entry
	if !fc.ReplaceRegistry {
		entries = DefaultEntries()
	}
	for i, re := range fc.Registry {
		e, err := re.entry()
		if err != nil {
			return Config{}, fmt.Errorf("%s: registry[%d]: %w", path, i, err)
		}
		entries = overrideEntry(entries, e)
	}
	reg, err := hir.NewRegistry(entries...)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return Config{Path: path, Features: features, Registry: reg}, nil
}

// LoadFrom loads the forget.toml found from startDir, or the defaults.
func LoadFrom(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

func (s entrySpec) entry() (hir.Entry, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return hir.Entry{}, errors.New("missing name")
	}
	kind, err := hir.ParseEntryKind(s.Kind)
	if err != nil {
		return hir.Entry{}, fmt.Errorf("%s: %w", name, err)
	}
	effect, err := hir.ParseEffect(s.Effect)
	if err != nil {
		return hir.Entry{}, fmt.Errorf("%s: %w", name, err)
	}
	e := hir.Entry{Name: name, Kind: kind, Effect: effect, Arity: -1}
	if s.Arity != nil {
		e.Arity = *s.Arity
	}
	if s.Memo != nil {
		if kind != hir.EntryHook {
			return hir.Entry{}, fmt.Errorf("%s: memo shape on a %s entry", name, kind)
		}
		e.Memo = &hir.MemoShape{Callback: s.Memo.Callback, Deps: s.Memo.Deps}
	}
	return e, nil
}

func overrideEntry(entries []hir.Entry, e hir.Entry) []hir.Entry {
	for i := range entries {
		if entries[i].Name == e.Name {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}

// ApplyFeatureFlags applies command-line overrides of the form name=bool
// or a bare name meaning true.
func ApplyFeatureFlags(fs hir.Features, flags []string) (hir.Features, error) {
	for _, flag := range flags {
		name, raw, hasValue := strings.Cut(flag, "=")
		f, err := hir.ParseFeature(name)
		if err != nil {
			return fs, err
		}
		value := true
		if hasValue {
			value, err = strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return fs, fmt.Errorf("feature %s: invalid value %q", f, raw)
			}
		}
		fs = fs.With(f, value)
	}
	return fs, nil
}
