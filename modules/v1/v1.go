// Package v1 contains the built-in modules of API version v1.
package v1

import (
	"github.com/artpar/modgate/core/registry"
	"github.com/artpar/modgate/domain/module"
)

// Version is the namespace these modules are registered under.
const Version = "v1"

// Register adds every v1 module and library to reg.
func Register(reg *registry.Registry) error {
	factories := map[string]module.Factory{
		"ping":   NewPing,
		"whoami": NewWhoAmI,
		"echo":   NewEcho,
		"error":  NewError,
		"export": NewExport,
	}
	for script, f := range factories {
		if err := reg.Register(Version, script, f); err != nil {
			return err
		}
	}
	return reg.RegisterLibrary(MimeTypesLibrary, ActivateMimeTypes)
}
