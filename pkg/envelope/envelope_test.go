package envelope_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/modgate/pkg/envelope"
)

func TestDocument_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		doc  envelope.Document
		want string
	}{
		{
			name: "root",
			doc:  envelope.Root("Example API", "https://docs.example.com"),
			want: `{"success":true,"response_code":200,"payload":{"service_name":"Example API","documentation":"https://docs.example.com"},"reference_code":null}`,
		},
		{
			name: "listing",
			doc: envelope.ModuleListing(map[string]envelope.ModuleInfo{
				"/ping": {Name: "ping", Version: "1.0.0", Description: "Liveness"},
			}),
			want: `{"success":true,"response_code":200,"modules":{"/ping":{"name":"ping","version":"1.0.0","description":"Liveness"}},"reference_code":null}`,
		},
		{
			name: "empty listing keeps modules key",
			doc:  envelope.ModuleListing(nil),
			want: `{"success":true,"response_code":200,"modules":{},"reference_code":null}`,
		},
		{
			name: "unsupported version",
			doc:  envelope.UnsupportedVersion(),
			want: `{"success":false,"response_code":404,"error":{"error_code":-2,"type":"SERVER","message":"This version of the API is not supported or does not exist"},"reference_code":null}`,
		},
		{
			name: "internal error with reference",
			doc:  envelope.InternalServerError("boom").WithReference("req-1"),
			want: `{"success":false,"response_code":500,"error":{"error_code":-5,"type":"SERVER","message":"boom"},"reference_code":"req-1"}`,
		},
		{
			name: "null payload",
			doc:  envelope.Success(200, nil),
			want: `{"success":true,"response_code":200,"payload":null,"reference_code":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.doc)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name    string
		doc     envelope.Document
		code    int
		errCode int
		typ     string
		message string
	}{
		{"not found", envelope.ResourceNotFound(), 404, envelope.CodeResourceNotFound, envelope.TypeClient, envelope.MessageResourceNotFound},
		{"unavailable custom", envelope.ResourceNotAvailable("down for maintenance"), 503, envelope.CodeResourceNotAvailable, envelope.TypeServer, "down for maintenance"},
		{"unavailable default", envelope.ResourceNotAvailable(""), 503, envelope.CodeResourceNotAvailable, envelope.TypeServer, envelope.MessageResourceNotAvailable},
		{"unauthorized", envelope.Unauthorized(), 401, envelope.CodeUnauthorized, envelope.TypeClient, envelope.MessageUnauthorized},
		{"internal default", envelope.InternalServerError(""), 500, envelope.CodeInternalServerError, envelope.TypeServer, envelope.MessageInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.doc.Success {
				t.Error("error document should not be successful")
			}
			if tt.doc.ResponseCode != tt.code {
				t.Errorf("ResponseCode = %d, want %d", tt.doc.ResponseCode, tt.code)
			}
			e := tt.doc.Error
			if e == nil {
				t.Fatal("Error is nil")
			}
			if e.ErrorCode != tt.errCode || e.Type != tt.typ || e.Message != tt.message {
				t.Errorf("Error = %+v", e)
			}
		})
	}
}

func TestFromDocument(t *testing.T) {
	r := envelope.FromDocument(envelope.Unauthorized())
	if r.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", r.Status)
	}
	if r.ContentType != "application/json" {
		t.Errorf("ContentType = %q", r.ContentType)
	}
	if r.Document == nil || r.Document.ResponseCode != 401 {
		t.Errorf("Document = %+v", r.Document)
	}

	bad := envelope.FromDocument(envelope.Success(200, func() {}))
	if bad.Document == nil || bad.Document.Error == nil || bad.Document.Error.ErrorCode != envelope.CodeInternalServerError {
		t.Errorf("unencodable payload should fall back to an internal error, got %s", bad.Body)
	}
}

func TestResponse_Headers(t *testing.T) {
	r := envelope.FromModule(201, "text/csv", []byte("a,b\n"), true, "/tmp/reports/out.csv")
	h := r.Headers()

	if h.Get("Content-Type") != "text/csv" {
		t.Errorf("Content-Type = %q", h.Get("Content-Type"))
	}
	if h.Get("Content-Size") != "4" {
		t.Errorf("Content-Size = %q", h.Get("Content-Size"))
	}
	if h.Get("Content-Disposition") != `attachment; filename="out.csv"` {
		t.Errorf("Content-Disposition = %q", h.Get("Content-Disposition"))
	}

	plain := envelope.FromModule(0, "text/plain", []byte("hi"), false, "")
	if plain.Status != 200 {
		t.Errorf("default status = %d", plain.Status)
	}
	if plain.Headers().Get("Content-Disposition") != "" {
		t.Error("non-file response should not carry Content-Disposition")
	}

	if len(envelope.NotFound().Headers()) != 0 {
		t.Error("NotFound should carry no headers")
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	envelope.Write(rec, envelope.FromModule(202, "text/plain", []byte("accepted"), false, ""))

	if rec.Code != 202 {
		t.Errorf("Code = %d", rec.Code)
	}
	if rec.Body.String() != "accepted" {
		t.Errorf("Body = %q", rec.Body.String())
	}
	if rec.Header().Get("Content-Size") != "8" {
		t.Errorf("Content-Size = %q", rec.Header().Get("Content-Size"))
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.csv", "report.csv"},
		{"/var/data/report.csv", "report.csv"},
		{`C:\exports\report.csv`, "report.csv"},
		{"", ""},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := envelope.BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
