package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/colpal/dataeng-container-tools/internal/redact"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound indicates a secret file or folder does not exist.
	ErrNotFound = errors.New("secret not found")

	// ErrParse indicates a structured secret file could not be parsed. The
	// file's raw content has still been registered as one opaque secret.
	ErrParse = errors.New("secret file is malformed")
)

// ParseSecret reads the credential file at path and registers its sensitive
// content.
//
// Files with a .json, .yaml or .yml extension are parsed as documents and
// every leaf string value is registered individually; the parsed document is
// returned. Other files are sniffed: JSON object content is treated the same
// way, anything else is registered whole and returned as a string.
//
// A missing file returns an error wrapping ErrNotFound. A malformed document
// registers the entire raw text (over-registering beats leaking) and returns
// it alongside an error wrapping ErrParse. Other filesystem errors propagate
// as-is.
func (r *Registry) ParseSecret(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(raw))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return r.parseDocument(path, raw, text, json.Unmarshal)
	case ".yaml", ".yml":
		return r.parseDocument(path, raw, text, yaml.Unmarshal)
	default:
		// No structured extension. Take JSON content if it happens to be
		// JSON, otherwise the whole file is one opaque secret.
		var content map[string]any
		if json.Unmarshal(raw, &content) == nil {
			r.Register(redact.Flatten(content)...)
			return content, nil
		}
		r.Register(text)
		return text, nil
	}
}

func (r *Registry) parseDocument(path string, raw []byte, text string, unmarshal func([]byte, any) error) (any, error) {
	var content map[string]any
	if err := unmarshal(raw, &content); err != nil {
		r.Register(text)
		r.log.Warn("%s is not a properly formatted secret file; censoring its entire content", path)
		return text, fmt.Errorf("parsing %s: %w", path, ErrParse)
	}
	r.Register(redact.Flatten(content)...)
	return content, nil
}

// ProcessSecretFolder parses every file directly inside dir (non-recursive)
// and returns the parsed content keyed by path. A missing folder means no
// secrets are configured: the result is empty and no error is returned, so
// containers without mounted credentials run unhindered. Malformed files are
// censored whole and skipped.
func (r *Registry) ProcessSecretFolder(dir string) (map[string]any, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.log.Info("no secret files found in %s; this is normal when running locally", dir)
			return map[string]any{}, nil
		}
		return nil, err
	}

	found := make(map[string]any)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := r.ParseSecret(path)
		switch {
		case errors.Is(err, ErrParse):
			// Raw content is already registered; keep going.
			found[path] = content
		case err != nil:
			return nil, err
		default:
			found[path] = content
		}
	}

	r.log.Info("processed %d secret file(s) from %s", len(found), dir)
	return found, nil
}
