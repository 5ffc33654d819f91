package v1

import (
	"context"
	"net/http"

	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/domain/module"
	"github.com/artpar/modgate/pkg/envelope"
)

// WhoAmI returns the access record the gateway attached to the request.
// Without authentication the record is the anonymous placeholder.
type WhoAmI struct {
	module.Base
}

// NewWhoAmI is the factory for the whoami module.
func NewWhoAmI() module.Handler {
	return &WhoAmI{Base: module.NewBase(module.Info{
		Name:        "whoami",
		Version:     "1.0.0",
		Description: "Returns the caller's access record",
	})}
}

// ProcessRequest answers with the injected access record.
func (m *WhoAmI) ProcessRequest(ctx context.Context, req dispatch.Request) error {
	return m.WriteJSON(http.StatusOK, envelope.Success(http.StatusOK, m.AccessRecord()))
}
