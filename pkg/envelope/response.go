package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
)

// ContentTypeJSON is the content type of structured documents.
const ContentTypeJSON = "application/json"

// Response is a finalized wire response (value type).
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	IsFile      bool
	FileName    string

	// Document is set when the body is a structured envelope.
	Document *Document
}

// FromDocument serializes doc. Structured documents always use
// transport status 200; the outcome is carried in response_code.
func FromDocument(doc Document) Response {
	body, err := json.Marshal(doc)
	if err != nil {
		// Payloads are gateway-owned values; only a bad module payload can land here.
		fallback := InternalServerError(fmt.Sprintf("encode response: %v", err))
		body, _ = json.Marshal(fallback)
		doc = fallback
	}
	return Response{
		Status:      http.StatusOK,
		ContentType: ContentTypeJSON,
		Body:        body,
		Document:    &doc,
	}
}

// FromModule wraps a module's raw output.
func FromModule(status int, contentType string, body []byte, isFile bool, fileName string) Response {
	if status == 0 {
		status = http.StatusOK
	}
	return Response{
		Status:      status,
		ContentType: contentType,
		Body:        body,
		IsFile:      isFile,
		FileName:    fileName,
	}
}

// NotFound is the bodyless response for requests outside the route space.
func NotFound() Response {
	return Response{Status: http.StatusNotFound}
}

// Headers returns the headers to emit with r.
func (r Response) Headers() http.Header {
	h := make(http.Header)
	if r.ContentType != "" {
		h.Set("Content-Type", r.ContentType)
	}
	if r.Body != nil || r.ContentType != "" {
		h.Set("Content-Size", strconv.Itoa(len(r.Body)))
	}
	if r.IsFile {
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", BaseName(r.FileName)))
	}
	return h
}

// Write emits r on w.
func Write(w http.ResponseWriter, r Response) {
	for k, vs := range r.Headers() {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(r.Status)
	if len(r.Body) > 0 {
		w.Write(r.Body)
	}
}

// BaseName strips any directory part from name, for either separator.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
