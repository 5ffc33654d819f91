package modules_test

import (
	"context"
	"testing"

	"github.com/artpar/modgate/domain/apiconfig"
	"github.com/artpar/modgate/modules"
)

func TestNewRegistry(t *testing.T) {
	reg, err := modules.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}

	service := apiconfig.Main{
		Name: "Example API",
		Versions: []apiconfig.Version{{
			Version:   "v1",
			Available: true,
			Libraries: []apiconfig.Library{{Name: "mimetypes"}},
			Modules: []apiconfig.Module{
				{Path: "ping", Script: "ping", Available: true},
				{Path: "reports/export", Script: "export", Available: true},
				{Path: "missing", Script: "nope", Available: true},
			},
		}},
	}

	missing := reg.Missing(service)
	if len(missing) != 1 || missing[0] != "v1/nope" {
		t.Errorf("Missing = %v, want [v1/nope]", missing)
	}

	if err := reg.ActivateLibraries(context.Background(), service.Versions[0]); err != nil {
		t.Fatalf("ActivateLibraries error: %v", err)
	}
	if !reg.Activated("mimetypes") {
		t.Error("mimetypes not activated")
	}
}

func TestRegister_Twice(t *testing.T) {
	reg, err := modules.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if err := modules.Register(reg); err == nil {
		t.Error("registering built-ins twice should fail")
	}
}
