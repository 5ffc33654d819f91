package v1

import (
	"context"
	"fmt"
	"mime"
)

// MimeTypesLibrary names the library that installs the export content types.
const MimeTypesLibrary = "mimetypes"

var exportTypes = map[string]string{
	".csv":    "text/csv; charset=utf-8",
	".ndjson": "application/x-ndjson",
	".yaml":   "application/yaml",
	".yml":    "application/yaml",
}

// ActivateMimeTypes registers the extension to content type mappings used by Export.
func ActivateMimeTypes(ctx context.Context) error {
	for ext, typ := range exportTypes {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			return fmt.Errorf("register %s: %w", ext, err)
		}
	}
	return nil
}
