package v1

import (
	"context"
	"net/http"

	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/domain/module"
	"github.com/artpar/modgate/pkg/envelope"
)

// EchoPayload is the payload returned by Echo.
type EchoPayload struct {
	Method     string            `json:"method"`
	Version    string            `json:"version"`
	Path       string            `json:"path"`
	Parameters map[string]string `json:"parameters"`
}

// Echo returns the merged request parameters.
type Echo struct {
	module.Base
}

// NewEcho is the factory for the echo module.
func NewEcho() module.Handler {
	return &Echo{Base: module.NewBase(module.Info{
		Name:        "echo",
		Version:     "1.0.0",
		Description: "Returns the request parameters",
	})}
}

// ProcessRequest answers with the method, version, path and parameters it received.
func (m *Echo) ProcessRequest(ctx context.Context, req dispatch.Request) error {
	params := make(map[string]string, len(req.Params))
	for k, v := range req.Params {
		if k == dispatch.AccessKeyParam {
			continue
		}
		params[k] = v
	}
	return m.WriteJSON(http.StatusOK, envelope.Success(http.StatusOK, EchoPayload{
		Method:     req.Method,
		Version:    req.Version,
		Path:       req.ModulePath,
		Parameters: params,
	}))
}
