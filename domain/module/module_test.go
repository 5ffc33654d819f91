package module_test

import (
	"context"
	"testing"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/domain/module"
)

type stub struct {
	module.Base
}

func (s *stub) ProcessRequest(ctx context.Context, req dispatch.Request) error {
	return s.WriteJSON(201, map[string]string{"ok": "yes"})
}

var _ module.Handler = (*stub)(nil)

func TestBase_Defaults(t *testing.T) {
	s := &stub{Base: module.NewBase(module.Info{Name: "stub", Version: "1.0"})}

	if s.Info().Name != "stub" {
		t.Errorf("Info().Name = %q", s.Info().Name)
	}
	if s.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q", s.ContentType())
	}
	if s.ResponseCode() != 200 {
		t.Errorf("ResponseCode() = %d", s.ResponseCode())
	}
	if s.IsFile() || s.FileName() != "" || s.Body() != nil {
		t.Error("fresh module should have no output")
	}
	if !s.AccessRecord().IsAnonymous() {
		t.Error("fresh module should have the anonymous record")
	}
}

func TestBase_WriteJSON(t *testing.T) {
	s := &stub{}
	s.SetAccessRecord(access.Record{ID: 5})
	if err := s.ProcessRequest(context.Background(), dispatch.Request{}); err != nil {
		t.Fatalf("ProcessRequest() error = %v", err)
	}
	if s.ResponseCode() != 201 || string(s.Body()) != `{"ok":"yes"}` {
		t.Errorf("output = %d %s", s.ResponseCode(), s.Body())
	}
	if s.AccessRecord().ID != 5 {
		t.Errorf("AccessRecord().ID = %d", s.AccessRecord().ID)
	}
}

func TestBase_WriteFile(t *testing.T) {
	s := &stub{}
	s.WriteFile("report.csv", "text/csv", []byte("a,b\n"))
	if !s.IsFile() || s.FileName() != "report.csv" || s.ContentType() != "text/csv" {
		t.Errorf("file output = %v %q %q", s.IsFile(), s.FileName(), s.ContentType())
	}

	s.Write(202, "text/plain", []byte("x"))
	if s.IsFile() || s.FileName() != "" {
		t.Error("Write should clear file state")
	}
}
