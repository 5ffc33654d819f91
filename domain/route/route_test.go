package route_test

import (
	"testing"

	"github.com/artpar/modgate/domain/apiconfig"
	"github.com/artpar/modgate/domain/route"
)

func manifest() apiconfig.Main {
	return apiconfig.Main{
		Name: "test",
		Versions: []apiconfig.Version{
			{
				Version: "V1",
				Modules: []apiconfig.Module{
					{Path: "Users/List", Script: "users_list"},
					{Path: "/ping/", Script: "ping"},
				},
			},
			{
				Version: "v2",
				Modules: []apiconfig.Module{
					{Path: "ping", Script: "ping2"},
				},
			},
		},
	}
}

func TestTable_Resolve(t *testing.T) {
	table := route.Build(manifest())

	tests := []struct {
		name       string
		version    string
		path       string
		wantScript string
		wantFound  bool
	}{
		{"exact", "v1", "users/list", "users_list", true},
		{"request casing differs", "V1", "USERS/LIST", "users_list", true},
		{"surrounding slashes", "v1", "/users/list/", "users_list", true},
		{"configured with slashes", "v1", "ping", "ping", true},
		{"other version", "v2", "Ping", "ping2", true},
		{"unknown path", "v1", "does-not-exist", "", false},
		{"unknown version", "v9", "ping", "", false},
		{"module of other version", "v2", "users/list", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := table.Resolve(tt.version, tt.path)
			if ok != tt.wantFound {
				t.Fatalf("Resolve(%q, %q) found = %v, want %v", tt.version, tt.path, ok, tt.wantFound)
			}
			if e.Script != tt.wantScript {
				t.Errorf("Script = %q, want %q", e.Script, tt.wantScript)
			}
		})
	}
}

func TestTable_EntryFields(t *testing.T) {
	table := route.Build(manifest())
	e, ok := table.Resolve("v1", "ping")
	if !ok {
		t.Fatal("ping not found")
	}
	if e.Version != "v1" || e.Path != "ping" || e.Index != 1 {
		t.Errorf("entry = %+v", e)
	}
}

func TestTable_DuplicateLastWins(t *testing.T) {
	m := apiconfig.Main{
		Versions: []apiconfig.Version{
			{
				Version: "v1",
				Modules: []apiconfig.Module{
					{Path: "echo", Script: "first"},
					{Path: "ECHO", Script: "second"},
				},
			},
		},
	}
	e, ok := route.Build(m).Resolve("v1", "echo")
	if !ok {
		t.Fatal("echo not found")
	}
	if e.Script != "second" || e.Index != 1 {
		t.Errorf("entry = %+v, want last declared module", e)
	}
}

func TestTable_Listing(t *testing.T) {
	table := route.Build(manifest())

	if got := table.Versions(); len(got) != 2 || got[0] != "v1" || got[1] != "v2" {
		t.Errorf("Versions() = %v", got)
	}
	if !table.HasVersion("V2") {
		t.Error("HasVersion(V2) = false")
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}
	entries := table.Entries("v1")
	if len(entries) != 2 || entries[0].Path != "ping" || entries[1].Path != "users/list" {
		t.Errorf("Entries(v1) = %+v", entries)
	}
}
