package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/domain/module"
	"github.com/artpar/modgate/pkg/envelope"
)

// ErrRaised is returned by every Error invocation.
var ErrRaised = errors.New("error module raised an uncaught failure")

// Error writes a payload and then fails, leaving the gateway to replace
// its output with an internal server error.
type Error struct {
	module.Base
}

// NewError is the factory for the error module.
func NewError() module.Handler {
	return &Error{Base: module.NewBase(module.Info{
		Name:        "error",
		Version:     "1.0.0.0",
		Description: "Raises an error without catching",
	})}
}

// ProcessRequest writes the access record as a success payload, then returns ErrRaised.
func (m *Error) ProcessRequest(ctx context.Context, req dispatch.Request) error {
	if err := m.WriteJSON(http.StatusOK, envelope.Success(http.StatusOK, m.AccessRecord())); err != nil {
		return err
	}
	return ErrRaised
}
