// Package envelope builds the gateway's structured JSON documents and
// the wire responses that carry them or a module's raw output.
package envelope

import (
	"encoding/json"
	"net/http"
)

// Error types.
const (
	TypeClient = "CLIENT"
	TypeServer = "SERVER"
)

// Error codes carried in the error variant.
const (
	CodeResourceNotFound     = -1
	CodeUnsupportedVersion   = -2
	CodeResourceNotAvailable = -3
	CodeUnauthorized         = -4
	CodeInternalServerError  = -5
)

// Default messages.
const (
	MessageResourceNotFound     = "The requested resource or action was not found"
	MessageUnsupportedVersion   = "This version of the API is not supported or does not exist"
	MessageResourceNotAvailable = "This resource is currently not available"
	MessageUnauthorized         = "The request requires authentication, the access key is missing or invalid"
	MessageInternalServerError  = "There was an unexpected error while trying to handle your request"
)

// Error is the error variant of a Document.
type Error struct {
	ErrorCode int    `json:"error_code"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// ModuleInfo describes one module in a version listing.
type ModuleInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// RootPayload is the payload of the root document.
type RootPayload struct {
	ServiceName   string `json:"service_name"`
	Documentation string `json:"documentation"`
}

// Document is a structured gateway response body.
// Exactly one of Payload, Modules or Error is serialized.
type Document struct {
	Success       bool
	ResponseCode  int
	Payload       any
	Modules       map[string]ModuleInfo
	Error         *Error
	ReferenceCode *string
}

// MarshalJSON emits the document with its single variant key.
func (d Document) MarshalJSON() ([]byte, error) {
	type base struct {
		Success      bool `json:"success"`
		ResponseCode int  `json:"response_code"`
	}
	b := base{Success: d.Success, ResponseCode: d.ResponseCode}

	switch {
	case d.Error != nil:
		return json.Marshal(struct {
			base
			Error         *Error  `json:"error"`
			ReferenceCode *string `json:"reference_code"`
		}{b, d.Error, d.ReferenceCode})
	case d.Modules != nil:
		return json.Marshal(struct {
			base
			Modules       map[string]ModuleInfo `json:"modules"`
			ReferenceCode *string               `json:"reference_code"`
		}{b, d.Modules, d.ReferenceCode})
	default:
		return json.Marshal(struct {
			base
			Payload       any     `json:"payload"`
			ReferenceCode *string `json:"reference_code"`
		}{b, d.Payload, d.ReferenceCode})
	}
}

// WithReference returns a copy of d carrying a reference code.
func (d Document) WithReference(code string) Document {
	if code != "" {
		d.ReferenceCode = &code
	}
	return d
}

// Success builds a success document with a payload.
func Success(code int, payload any) Document {
	return Document{Success: true, ResponseCode: code, Payload: payload}
}

// Root builds the service description document.
func Root(serviceName, documentationURL string) Document {
	return Success(http.StatusOK, RootPayload{
		ServiceName:   serviceName,
		Documentation: documentationURL,
	})
}

// ModuleListing builds a version listing keyed by "/path".
func ModuleListing(modules map[string]ModuleInfo) Document {
	if modules == nil {
		modules = map[string]ModuleInfo{}
	}
	return Document{Success: true, ResponseCode: http.StatusOK, Modules: modules}
}

// Failure builds an error document.
func Failure(responseCode, errorCode int, typ, message string) Document {
	return Document{
		ResponseCode: responseCode,
		Error:        &Error{ErrorCode: errorCode, Type: typ, Message: message},
	}
}

// UnsupportedVersion is returned for a version id that is not configured.
func UnsupportedVersion() Document {
	return Failure(http.StatusNotFound, CodeUnsupportedVersion, TypeServer, MessageUnsupportedVersion)
}

// ResourceNotFound is returned when no module is mapped to the path.
func ResourceNotFound() Document {
	return Failure(http.StatusNotFound, CodeResourceNotFound, TypeClient, MessageResourceNotFound)
}

// ResourceNotAvailable uses message, or the default when empty.
func ResourceNotAvailable(message string) Document {
	if message == "" {
		message = MessageResourceNotAvailable
	}
	return Failure(http.StatusServiceUnavailable, CodeResourceNotAvailable, TypeServer, message)
}

// Unauthorized is returned when a required access key is missing or invalid.
func Unauthorized() Document {
	return Failure(http.StatusUnauthorized, CodeUnauthorized, TypeClient, MessageUnauthorized)
}

// InternalServerError carries detail as its message, or the default when empty.
func InternalServerError(detail string) Document {
	if detail == "" {
		detail = MessageInternalServerError
	}
	return Failure(http.StatusInternalServerError, CodeInternalServerError, TypeServer, detail)
}
