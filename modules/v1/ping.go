package v1

import (
	"context"
	"net/http"

	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/domain/module"
	"github.com/artpar/modgate/pkg/envelope"
)

// Ping answers with a fixed success envelope.
type Ping struct {
	module.Base
}

// NewPing is the factory for the ping module.
func NewPing() module.Handler {
	return &Ping{Base: module.NewBase(module.Info{
		Name:        "ping",
		Version:     "1.0.0",
		Description: "Returns pong",
	})}
}

// ProcessRequest answers "pong".
func (m *Ping) ProcessRequest(ctx context.Context, req dispatch.Request) error {
	return m.WriteJSON(http.StatusOK, envelope.Success(http.StatusOK, "pong"))
}
