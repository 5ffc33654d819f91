package dispatch_test

import (
	"net/url"
	"testing"

	"github.com/artpar/modgate/domain/dispatch"
)

func TestMergeParams(t *testing.T) {
	query := url.Values{
		"access_key": {"from-query"},
		"page":       {"2", "3"},
	}
	body := url.Values{
		"access_key": {"from-body"},
		"name":       {"alice"},
		"empty":      {},
	}

	got := dispatch.MergeParams(query, body)

	want := map[string]string{
		"access_key": "from-body",
		"page":       "2",
		"name":       "alice",
	}
	if len(got) != len(want) {
		t.Fatalf("MergeParams() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestRequest_AccessKey(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]string
		wantKey string
		wantOK  bool
	}{
		{"present", map[string]string{"access_key": "ak_1"}, "ak_1", true},
		{"empty counts as absent", map[string]string{"access_key": ""}, "", false},
		{"missing", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := dispatch.Request{Params: tt.params}.AccessKey()
			if key != tt.wantKey || ok != tt.wantOK {
				t.Errorf("AccessKey() = (%q, %v), want (%q, %v)", key, ok, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestRequest_ParamNames(t *testing.T) {
	r := dispatch.Request{Params: map[string]string{"b": "1", "a": "2"}}
	names := r.ParamNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("ParamNames() = %v", names)
	}
	if r.Param("a") != "2" {
		t.Errorf("Param(a) = %q", r.Param("a"))
	}
}

func TestTarget_String(t *testing.T) {
	tests := map[dispatch.Target]string{
		dispatch.TargetRoot:      "root",
		dispatch.TargetVersion:   "version",
		dispatch.TargetModule:    "module",
		dispatch.TargetUnmatched: "unmatched",
	}
	for target, want := range tests {
		if got := target.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", target, got, want)
		}
	}
}
