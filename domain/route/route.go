// Package route provides the compiled route table and pure lookup functions.
// A Table maps (version, module path) to the module that serves it.
package route

import (
	"sort"

	"github.com/artpar/modgate/domain/apiconfig"
)

// Entry is a resolved route (immutable value type).
type Entry struct {
	Version string // normalized version id
	Path    string // normalized module path
	Script  string // registry key of the implementation
	Index   int    // position of the module in its version's module list
}

// Table is the read-only index built from a manifest.
// Safe for concurrent use once built.
type Table struct {
	entries map[string]map[string]Entry
}

// Build compiles the manifest into a Table.
// Keys are normalized; when two modules normalize to the same key
// the one declared last wins.
func Build(m apiconfig.Main) *Table {
	t := &Table{entries: make(map[string]map[string]Entry, len(m.Versions))}
	for _, v := range m.Versions {
		version := Normalize(v.Version)
		paths, ok := t.entries[version]
		if !ok {
			paths = make(map[string]Entry, len(v.Modules))
			t.entries[version] = paths
		}
		for i, mod := range v.Modules {
			path := Normalize(mod.Path)
			paths[path] = Entry{
				Version: version,
				Path:    path,
				Script:  mod.Script,
				Index:   i,
			}
		}
	}
	return t
}

// Normalize folds a version id or path into table key form.
func Normalize(s string) string {
	return apiconfig.NormalizeKey(s)
}

// Resolve looks up the module serving path under version.
// Both inputs are normalized before lookup.
func (t *Table) Resolve(version, path string) (Entry, bool) {
	paths, ok := t.entries[Normalize(version)]
	if !ok {
		return Entry{}, false
	}
	e, ok := paths[Normalize(path)]
	return e, ok
}

// HasVersion reports whether version has an entry in the table.
func (t *Table) HasVersion(version string) bool {
	_, ok := t.entries[Normalize(version)]
	return ok
}

// Versions returns the normalized version ids, sorted.
func (t *Table) Versions() []string {
	out := make([]string, 0, len(t.entries))
	for v := range t.entries {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Entries returns every entry of version sorted by path.
func (t *Table) Entries(version string) []Entry {
	paths := t.entries[Normalize(version)]
	out := make([]Entry, 0, len(paths))
	for _, e := range paths {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the total number of entries.
func (t *Table) Len() int {
	n := 0
	for _, paths := range t.entries {
		n += len(paths)
	}
	return n
}
