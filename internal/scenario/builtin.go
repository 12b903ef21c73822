package scenario

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// BuiltinNames lists the scenarios compiled into the binary.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Builtin returns a compiled-in scenario by file name (without extension).
func Builtin(name string) (*File, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown builtin scenario %q (have %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse builtin scenario %s: %w", name, err)
	}
	return f, nil
}

// Resolve treats references ending in .yaml or .yml as file paths and
// anything else as a builtin name.
func Resolve(ref string) (*File, error) {
	if !strings.HasSuffix(ref, ".yaml") && !strings.HasSuffix(ref, ".yml") {
		return Builtin(ref)
	}
	return Load(ref)
}
