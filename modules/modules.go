// Package modules registers the built-in module implementations.
package modules

import (
	"fmt"

	"github.com/artpar/modgate/core/registry"
	v1 "github.com/artpar/modgate/modules/v1"
)

// Register adds every built-in version namespace to reg.
func Register(reg *registry.Registry) error {
	if err := v1.Register(reg); err != nil {
		return fmt.Errorf("register %s modules: %w", v1.Version, err)
	}
	return nil
}

// NewRegistry returns a registry holding the built-in modules.
func NewRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
