package v1

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/artpar/modgate/domain/dispatch"
	"github.com/artpar/modgate/domain/module"
	"github.com/artpar/modgate/pkg/envelope"
	"gopkg.in/yaml.v3"
)

// DefaultExportName is used when the filename parameter is missing.
const DefaultExportName = "export.json"

// ErrUnsupportedFormat is returned for a filename extension Export cannot encode.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportRow is one exported request parameter.
type ExportRow struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Export returns the request parameters as a file attachment.
// The format follows the extension of the filename parameter.
type Export struct {
	module.Base
}

// NewExport is the factory for the export module.
func NewExport() module.Handler {
	return &Export{Base: module.NewBase(module.Info{
		Name:        "export",
		Version:     "1.0.0",
		Description: "Exports the request parameters as a file",
	})}
}

// ProcessRequest encodes the request parameters as a file download.
// The format follows the extension of the filename parameter.
func (m *Export) ProcessRequest(ctx context.Context, req dispatch.Request) error {
	name := envelope.BaseName(req.Param("filename"))
	if name == "" {
		name = DefaultExportName
	}
	ext := strings.ToLower(filepath.Ext(name))

	body, err := encodeRows(ext, exportRows(req))
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	m.WriteFile(name, contentType, body)
	return nil
}

func exportRows(req dispatch.Request) []ExportRow {
	rows := make([]ExportRow, 0, len(req.Params))
	for _, k := range req.ParamNames() {
		if k == dispatch.AccessKeyParam || k == "filename" {
			continue
		}
		rows = append(rows, ExportRow{Name: k, Value: req.Params[k]})
	}
	return rows
}

func encodeRows(ext string, rows []ExportRow) ([]byte, error) {
	switch ext {
	case ".json":
		return json.Marshal(rows)
	case ".ndjson":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil
	case ".csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		w.Write([]string{"name", "value"})
		for _, r := range rows {
			w.Write([]string{r.Name, r.Value})
		}
		w.Flush()
		return buf.Bytes(), w.Error()
	case ".yaml", ".yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
