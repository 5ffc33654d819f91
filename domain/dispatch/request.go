// Package dispatch provides the request value type handed from the
// transport layer to the gateway pipeline and on to modules.
package dispatch

import (
	"net/url"
	"sort"
	"time"
)

// Target is the route shape a request matched.
type Target int

const (
	TargetUnmatched Target = iota // no gateway route
	TargetRoot                    // {base}/
	TargetVersion                 // {base}/{version}
	TargetModule                  // {base}/{version}/{path...}
)

func (t Target) String() string {
	switch t {
	case TargetRoot:
		return "root"
	case TargetVersion:
		return "version"
	case TargetModule:
		return "module"
	default:
		return "unmatched"
	}
}

// AccessKeyParam is the request parameter carrying an access key.
const AccessKeyParam = "access_key"

// BasicAuth holds HTTP basic-auth credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Request represents an incoming gateway request (value type).
// This is extracted from HTTP and passed to the pipeline.
type Request struct {
	Target     Target
	Version    string // raw version segment
	ModulePath string // raw remainder after the version segment

	// HTTP request details
	Method  string
	Path    string
	Params  map[string]string // query merged with form body, body wins
	Headers map[string]string
	Body    []byte

	// Credentials
	BasicAuth *BasicAuth

	// Metadata
	RemoteIP   string
	UserAgent  string
	RequestID  string
	ReceivedAt time.Time
}

// Param returns a merged request parameter.
func (r Request) Param(name string) string {
	return r.Params[name]
}

// AccessKey returns the access_key parameter when present and non-empty.
func (r Request) AccessKey() (string, bool) {
	v := r.Params[AccessKeyParam]
	return v, v != ""
}

// ParamNames returns the parameter names sorted.
func (r Request) ParamNames() []string {
	names := make([]string, 0, len(r.Params))
	for k := range r.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MergeParams flattens query and body values into one map.
// The first value of each key is used; body values override query values.
// This is a PURE function.
func MergeParams(query, body url.Values) map[string]string {
	out := make(map[string]string, len(query)+len(body))
	for k, vs := range query {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	for k, vs := range body {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
