// Package apiconfig provides the gateway manifest value types and pure
// validation functions. This package has NO dependencies on I/O.
package apiconfig

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Main is the top-level gateway manifest (immutable after load).
type Main struct {
	Name             string    `yaml:"name" json:"name"`
	BasePath         string    `yaml:"base_path" json:"base_path"`
	DocumentationURL string    `yaml:"documentation_url" json:"documentation_url"`
	Versions         []Version `yaml:"versions" json:"versions"`
}

// Version groups the modules served under one API version.
type Version struct {
	Version            string    `yaml:"version" json:"version"`
	Available          bool      `yaml:"available" json:"available"`
	UnavailableMessage string    `yaml:"unavailable_message" json:"unavailable_message"`
	Modules            []Module  `yaml:"modules" json:"modules"`
	Libraries          []Library `yaml:"libraries" json:"libraries"`
}

// Module binds a request path to a registered implementation.
type Module struct {
	Path                   string `yaml:"path" json:"path"`
	Script                 string `yaml:"script" json:"script"`
	Available              bool   `yaml:"available" json:"available"`
	UnavailableMessage     string `yaml:"unavailable_message" json:"unavailable_message"`
	AuthenticationRequired bool   `yaml:"authentication_required" json:"authentication_required"`
}

// Library is a version-scoped startup hook.
type Library struct {
	Name string `yaml:"name" json:"name"`
}

// Version returns the version whose id matches v case-insensitively.
func (m Main) Version(v string) (Version, bool) {
	want := NormalizeKey(v)
	for _, ver := range m.Versions {
		if NormalizeKey(ver.Version) == want {
			return ver, true
		}
	}
	return Version{}, false
}

// ModuleCount returns the number of modules across all versions.
func (m Main) ModuleCount() int {
	n := 0
	for _, v := range m.Versions {
		n += len(v.Modules)
	}
	return n
}

// NormalizeKey folds a version id or module path into its lookup form:
// surrounding slashes trimmed, lowercased.
func NormalizeKey(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	// Caser is stateful, one per call.
	return cases.Lower(language.Und).String(s)
}

// NormalizeBasePath returns p with a single leading slash and no trailing slash.
// An empty path becomes "/".
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p
}
