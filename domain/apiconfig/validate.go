package apiconfig

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every manifest validation failure.
var ErrInvalid = errors.New("invalid service configuration")

// Validate checks the manifest for structural errors.
// This is a PURE function.
func Validate(m Main) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(m.Name) == "" {
		add("name is required")
	}
	if m.BasePath != "" && !strings.HasPrefix(m.BasePath, "/") {
		add("base_path must start with /")
	}
	if len(m.Versions) == 0 {
		add("at least one version is required")
	}

	versions := make(map[string]bool)
	for i, v := range m.Versions {
		id := NormalizeKey(v.Version)
		switch {
		case id == "":
			add("versions[%d]: version is required", i)
			continue
		case !IsVersionID(id):
			add("versions[%d]: version %q must be alphanumeric", i, v.Version)
		case versions[id]:
			add("versions[%d]: duplicate version %q", i, v.Version)
		}
		versions[id] = true

		paths := make(map[string]bool)
		for j, mod := range v.Modules {
			p := NormalizeKey(mod.Path)
			if p == "" {
				add("versions[%d].modules[%d]: path is required", i, j)
			} else if paths[p] {
				add("versions[%d].modules[%d]: duplicate path %q in version %q", i, j, mod.Path, v.Version)
			}
			paths[p] = true
			if strings.TrimSpace(mod.Script) == "" {
				add("versions[%d].modules[%d]: script is required", i, j)
			}
		}

		for j, lib := range v.Libraries {
			if strings.TrimSpace(lib.Name) == "" {
				add("versions[%d].libraries[%d]: name is required", i, j)
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// CheckReserved rejects version ids that would shadow operational
// endpoints mounted next to a root base path.
func CheckReserved(m Main, reserved ...string) error {
	if NormalizeBasePath(m.BasePath) != "/" {
		return nil
	}
	for _, v := range m.Versions {
		id := NormalizeKey(v.Version)
		for _, r := range reserved {
			if id == NormalizeKey(r) {
				return fmt.Errorf("%w: version %q collides with reserved path /%s", ErrInvalid, v.Version, r)
			}
		}
	}
	return nil
}

// IsVersionID reports whether s is a routable version id.
func IsVersionID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
