// Package module defines the contract between the gateway pipeline and
// the handlers it dispatches to.
package module

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/domain/dispatch"
)

// Info is the static description of a module.
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Handler is one module instance. A fresh instance serves each request.
type Handler interface {
	Info() Info
	SetAccessRecord(access.Record)
	ProcessRequest(ctx context.Context, req dispatch.Request) error

	ContentType() string
	Body() []byte
	ResponseCode() int
	IsFile() bool
	FileName() string
}

// Factory creates a new Handler.
type Factory func() Handler

// Base implements the output half of Handler. Embed it in concrete modules.
type Base struct {
	info         Info
	record       access.Record
	contentType  string
	body         []byte
	responseCode int
	isFile       bool
	fileName     string
}

// NewBase returns a Base with the given static info.
func NewBase(info Info) Base {
	return Base{info: info}
}

func (b *Base) Info() Info { return b.info }
func (b *Base) SetAccessRecord(r access.Record) { b.record = r }
func (b *Base) AccessRecord() access.Record { return b.record }
func (b *Base) Body() []byte { return b.body }
func (b *Base) IsFile() bool { return b.isFile }
func (b *Base) FileName() string { return b.fileName }

// ContentType defaults to application/json.
func (b *Base) ContentType() string {
	if b.contentType == "" {
		return "application/json"
	}
	return b.contentType
}

// ResponseCode defaults to 200.
func (b *Base) ResponseCode() int {
	if b.responseCode == 0 {
		return http.StatusOK
	}
	return b.responseCode
}

// Write sets a raw response.
func (b *Base) Write(code int, contentType string, body []byte) {
	b.responseCode = code
	b.contentType = contentType
	b.body = body
	b.isFile = false
	b.fileName = ""
}

// WriteJSON sets a JSON response.
func (b *Base) WriteJSON(code int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Write(code, "application/json", data)
	return nil
}

// WriteFile sets an attachment response.
func (b *Base) WriteFile(name, contentType string, body []byte) {
	b.Write(http.StatusOK, contentType, body)
	b.isFile = true
	b.fileName = name
}
