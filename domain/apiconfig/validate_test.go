package apiconfig_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/artpar/modgate/domain/apiconfig"
)

func validMain() apiconfig.Main {
	return apiconfig.Main{
		Name:     "Example API",
		BasePath: "/",
		Versions: []apiconfig.Version{
			{
				Version:   "v1",
				Available: true,
				Modules: []apiconfig.Module{
					{Path: "ping", Script: "ping", Available: true},
					{Path: "users/list", Script: "users", Available: true, AuthenticationRequired: true},
				},
				Libraries: []apiconfig.Library{{Name: "mimetypes"}},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *apiconfig.Main)
		wantErr string
	}{
		{name: "valid", mutate: func(m *apiconfig.Main) {}},
		{
			name:    "missing name",
			mutate:  func(m *apiconfig.Main) { m.Name = " " },
			wantErr: "name is required",
		},
		{
			name:    "relative base path",
			mutate:  func(m *apiconfig.Main) { m.BasePath = "api" },
			wantErr: "base_path must start with /",
		},
		{
			name:    "no versions",
			mutate:  func(m *apiconfig.Main) { m.Versions = nil },
			wantErr: "at least one version",
		},
		{
			name: "duplicate version differing in case",
			mutate: func(m *apiconfig.Main) {
				m.Versions = append(m.Versions, apiconfig.Version{Version: "V1"})
			},
			wantErr: "duplicate version",
		},
		{
			name: "non alphanumeric version",
			mutate: func(m *apiconfig.Main) {
				m.Versions[0].Version = "v-1"
			},
			wantErr: "must be alphanumeric",
		},
		{
			name: "duplicate module path after normalization",
			mutate: func(m *apiconfig.Main) {
				m.Versions[0].Modules = append(m.Versions[0].Modules,
					apiconfig.Module{Path: "/PING/", Script: "other"})
			},
			wantErr: "duplicate path",
		},
		{
			name: "missing script",
			mutate: func(m *apiconfig.Main) {
				m.Versions[0].Modules[0].Script = ""
			},
			wantErr: "script is required",
		},
		{
			name: "empty library name",
			mutate: func(m *apiconfig.Main) {
				m.Versions[0].Libraries = append(m.Versions[0].Libraries, apiconfig.Library{})
			},
			wantErr: "name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMain()
			tt.mutate(&m)
			err := apiconfig.Validate(m)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !errors.Is(err, apiconfig.ErrInvalid) {
				t.Errorf("error should wrap ErrInvalid: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestCheckReserved(t *testing.T) {
	m := validMain()
	m.Versions[0].Version = "Health"
	if err := apiconfig.CheckReserved(m, "health", "metrics"); err == nil {
		t.Error("expected reserved version to be rejected under root base path")
	}

	m.BasePath = "/api"
	if err := apiconfig.CheckReserved(m, "health", "metrics"); err != nil {
		t.Errorf("reserved check should not apply under /api: %v", err)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"v1", "v1"},
		{"V1", "v1"},
		{"/Users/List/", "users/list"},
		{"  ping ", "ping"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := apiconfig.NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"/api/", "/api"},
		{"api", "/api"},
	}
	for _, tt := range tests {
		if got := apiconfig.NormalizeBasePath(tt.in); got != tt.want {
			t.Errorf("NormalizeBasePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMainVersionLookup(t *testing.T) {
	m := validMain()
	v, ok := m.Version("V1")
	if !ok || v.Version != "v1" {
		t.Fatalf("Version(V1) = %+v, %v", v, ok)
	}
	if _, ok := m.Version("v2"); ok {
		t.Error("Version(v2) should not be found")
	}
	if m.ModuleCount() != 2 {
		t.Errorf("ModuleCount() = %d, want 2", m.ModuleCount())
	}
}
