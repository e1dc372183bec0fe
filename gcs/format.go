package gcs

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies how object content is encoded on the wire.
type Format int

const (
	// FormatAuto defers to the URI extension, then the client default.
	FormatAuto Format = iota
	FormatRaw
	FormatCSV
	FormatJSON
	FormatYAML
)

var formatNames = map[Format]string{
	FormatAuto: "auto",
	FormatRaw:  "raw",
	FormatCSV:  "csv",
	FormatJSON: "json",
	FormatYAML: "yaml",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFromName parses a format name as accepted by --default_file_type.
func FormatFromName(name string) (Format, error) {
	for format, n := range formatNames {
		if n == strings.ToLower(name) && format != FormatAuto {
			return format, nil
		}
	}
	return FormatAuto, fmt.Errorf("unknown format %q", name)
}

// FormatFromURI infers the format from the URI's file extension, falling back
// to the given default when the extension is not recognised.
func FormatFromURI(uri string, fallback Format) Format {
	switch strings.ToLower(path.Ext(uri)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".txt":
		return FormatRaw
	default:
		return fallback
	}
}

// Prefix is the URI scheme for Google Cloud Storage objects.
const Prefix = "gs://"

// ParseURI splits a gs://bucket/path/filename URI into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, Prefix)
	if !ok {
		return "", "", fmt.Errorf("%q is not a %s URI", uri, Prefix)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%q does not name a bucket and an object", uri)
	}
	return bucket, object, nil
}

func encode(content any, format Format) (data []byte, contentType string, err error) {
	switch format {
	case FormatRaw:
		switch v := content.(type) {
		case []byte:
			return v, "application/octet-stream", nil
		case string:
			return []byte(v), "text/plain", nil
		default:
			return nil, "", fmt.Errorf("raw content must be []byte or string, got %T", content)
		}

	case FormatCSV:
		records, ok := content.([][]string)
		if !ok {
			return nil, "", fmt.Errorf("csv content must be [][]string, got %T", content)
		}
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.WriteAll(records); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil

	case FormatJSON:
		data, err := json.Marshal(content)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil

	case FormatYAML:
		data, err := yaml.Marshal(content)
		if err != nil {
			return nil, "", err
		}
		return data, "application/yaml", nil

	default:
		return nil, "", fmt.Errorf("cannot encode with format %s", format)
	}
}

func decode(data []byte, format Format) (any, error) {
	switch format {
	case FormatRaw:
		return data, nil

	case FormatCSV:
		return csv.NewReader(bytes.NewReader(data)).ReadAll()

	case FormatJSON:
		var content any
		if err := json.Unmarshal(data, &content); err != nil {
			return nil, err
		}
		return content, nil

	case FormatYAML:
		var content any
		if err := yaml.Unmarshal(data, &content); err != nil {
			return nil, err
		}
		return content, nil

	default:
		return nil, fmt.Errorf("cannot decode with format %s", format)
	}
}
