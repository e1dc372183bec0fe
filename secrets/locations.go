package secrets

import (
	"path/filepath"
	"strings"
	"sync"
)

// Locations maps a logical collaborator name ("GCS", "DB", or a caller-chosen
// name) to the path of its credential file. It is usually built from the
// --secret_locations command-line argument.
type Locations map[string]string

var (
	defaultsMu   sync.Mutex
	defaultPaths = make(map[string]string)
)

// RegisterDefaultPaths declares the default credential file locations for a
// collaborator module. Collaborator packages call this from init so their
// defaults are visible before any command-line parsing happens.
func RegisterDefaultPaths(paths map[string]string) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	for name, path := range paths {
		defaultPaths[name] = path
	}
}

// RegisteredPaths returns the default credential locations declared by all
// collaborator modules.
func RegisteredPaths() map[string]string {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()

	paths := make(map[string]string, len(defaultPaths))
	for name, path := range defaultPaths {
		paths[name] = path
	}
	return paths
}

// RegisteredPaths exposes the collaborator defaults through the registry for
// callers that already hold one. The registry does not own this state.
func (r *Registry) RegisteredPaths() map[string]string {
	return RegisteredPaths()
}

// Lookup resolves the credential path for a logical name. Resolution order:
// an explicit entry in l, then a collaborator-declared default, then a file
// named after the collaborator in the well-known secret folder.
func (l Locations) Lookup(name string) string {
	if path, ok := l[name]; ok {
		return path
	}
	if path, ok := RegisteredPaths()[name]; ok {
		return path
	}
	return filepath.Join(DefaultSecretFolder, strings.ToLower(name)+".json")
}
