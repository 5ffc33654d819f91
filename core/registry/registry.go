// Package registry maps configured (version, script) pairs to module
// factories and runs library startup hooks.
// Registration happens at startup; lookups are safe for concurrent use.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/modgate/domain/apiconfig"
	"github.com/artpar/modgate/domain/module"
)

// Load failures, matched with errors.Is against *LoadError.
var (
	ErrVersionNotRegistered = errors.New("version namespace not registered")
	ErrScriptNotRegistered  = errors.New("script not registered")
	ErrLibraryNotRegistered = errors.New("library not registered")
)

// LibraryHook is a one-time startup side effect of a library.
type LibraryHook func(ctx context.Context) error

// Registry holds module factories and library hooks.
type Registry struct {
	mu sync.RWMutex

	// factories by normalized version, then script
	factories map[string]map[string]module.Factory

	libraries map[string]LibraryHook
	activated map[string]bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]map[string]module.Factory),
		libraries: make(map[string]LibraryHook),
		activated: make(map[string]bool),
	}
}

// Register adds a factory for script under version.
// Returns an error if the pair is already registered.
func (r *Registry) Register(version, script string, f module.Factory) error {
	if f == nil {
		return fmt.Errorf("module %s/%s: nil factory", version, script)
	}
	v := apiconfig.NormalizeKey(version)

	r.mu.Lock()
	defer r.mu.Unlock()

	scripts, ok := r.factories[v]
	if !ok {
		scripts = make(map[string]module.Factory)
		r.factories[v] = scripts
	}
	if _, exists := scripts[script]; exists {
		return fmt.Errorf("module %s/%s already registered", v, script)
	}
	scripts[script] = f
	return nil
}

// MustRegister is Register that panics on error. For startup wiring only.
func (r *Registry) MustRegister(version, script string, f module.Factory) {
	if err := r.Register(version, script, f); err != nil {
		panic(err)
	}
}

// RegisterLibrary adds a named library hook.
func (r *Registry) RegisterLibrary(name string, hook LibraryHook) error {
	if hook == nil {
		return fmt.Errorf("library %q: nil hook", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.libraries[name]; exists {
		return fmt.Errorf("library %q already registered", name)
	}
	r.libraries[name] = hook
	return nil
}

// ActivateLibraries runs the hooks of v's libraries in declaration order.
// Each hook runs at most once per registry; later calls skip it.
// A library with no registered hook is an error.
func (r *Registry) ActivateLibraries(ctx context.Context, v apiconfig.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, lib := range v.Libraries {
		if r.activated[lib.Name] {
			continue
		}
		hook, ok := r.libraries[lib.Name]
		if !ok {
			return fmt.Errorf("version %s: library %q: %w", v.Version, lib.Name, ErrLibraryNotRegistered)
		}
		if err := hook(ctx); err != nil {
			return fmt.Errorf("version %s: activate library %q: %w", v.Version, lib.Name, err)
		}
		r.activated[lib.Name] = true
	}
	return nil
}

// Activated reports whether library name has been activated.
func (r *Registry) Activated(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activated[name]
}

// HasLibrary reports whether a hook is registered for name.
func (r *Registry) HasLibrary(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.libraries[name]
	return ok
}

// Instantiate creates a fresh module for m under version.
func (r *Registry) Instantiate(version string, m apiconfig.Module) (module.Handler, error) {
	f, err := r.lookup(version, m.Script)
	if err != nil {
		return nil, err
	}
	h := f()
	if h == nil {
		return nil, &LoadError{Version: version, Script: m.Script, Err: errors.New("factory returned nil")}
	}
	return h, nil
}

// Has reports whether script is registered under version.
func (r *Registry) Has(version, script string) bool {
	_, err := r.lookup(version, script)
	return err == nil
}

func (r *Registry) lookup(version, script string) (module.Factory, error) {
	v := apiconfig.NormalizeKey(version)

	r.mu.RLock()
	defer r.mu.RUnlock()

	scripts, ok := r.factories[v]
	if !ok {
		return nil, &LoadError{Version: v, Script: script, Err: ErrVersionNotRegistered}
	}
	f, ok := scripts[script]
	if !ok {
		return nil, &LoadError{Version: v, Script: script, Err: ErrScriptNotRegistered}
	}
	return f, nil
}

// Scripts returns the registered scripts of version, sorted.
func (r *Registry) Scripts(version string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scripts := r.factories[apiconfig.NormalizeKey(version)]
	out := make([]string, 0, len(scripts))
	for s := range scripts {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Missing returns "version/script" for every configured module without a factory,
// and "library:name" for every configured library without a hook.
func (r *Registry) Missing(m apiconfig.Main) []string {
	var out []string
	for _, v := range m.Versions {
		for _, mod := range v.Modules {
			if !r.Has(v.Version, mod.Script) {
				out = append(out, apiconfig.NormalizeKey(v.Version)+"/"+mod.Script)
			}
		}
		for _, lib := range v.Libraries {
			if !r.HasLibrary(lib.Name) {
				out = append(out, "library:"+lib.Name)
			}
		}
	}
	return out
}

// LoadError reports a module that could not be instantiated.
type LoadError struct {
	Version string
	Script  string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load module %s/%s: %v", e.Version, e.Script, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
