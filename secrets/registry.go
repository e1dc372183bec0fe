// Package secrets maintains the set of sensitive values discovered by a
// container script and censors them from wrapped output streams.
//
// A Registry is the authoritative set of secret literals for the process.
// Writers created from it mask every registered value on the way to their
// underlying sink, including values registered after the writer was built:
//
//	reg := secrets.NewRegistry(l)
//	out := reg.NewWriter(os.Stdout)
//	fmt.Fprintln(out, "hunter2")  // prints "hunter2"
//	reg.Register("hunter2")
//	fmt.Fprintln(out, "hunter2")  // prints "*******"
package secrets

import (
	"strings"
	"sync"

	"github.com/colpal/dataeng-container-tools/internal/redact"
	"github.com/colpal/dataeng-container-tools/logger"
)

// DefaultSecretFolder is where the platform mounts credential files when no
// explicit location is supplied.
const DefaultSecretFolder = "/vault/secrets"

// Registry is the process-wide set of secret values. Values only ever
// accumulate; nothing is un-registered for the life of the process.
type Registry struct {
	log logger.Logger

	mu      sync.Mutex
	words   map[string]struct{}
	order   []string // registration order, for seeding new writers
	writers []*Writer
}

// NewRegistry returns an empty registry. Tests should construct their own
// registry rather than share one across cases.
func NewRegistry(l logger.Logger) *Registry {
	if l == nil {
		l = logger.Discard
	}
	return &Registry{
		log:   l,
		words: make(map[string]struct{}),
	}
}

// Register adds values to the censored set, along with their encoded variants
// (a secret printed through a JSON encoder must be caught too). Values
// already present are ignored. Empty and whitespace-only values are rejected:
// an empty "secret" matches everywhere and would blank entire streams.
func (r *Registry) Register(words ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []string
	for _, word := range words {
		if strings.TrimSpace(word) == "" {
			continue
		}
		for _, variant := range redact.Variants(word) {
			if _, ok := r.words[variant]; ok {
				continue
			}
			r.words[variant] = struct{}{}
			r.order = append(r.order, variant)
			added = append(added, variant)
		}
	}
	if len(added) == 0 {
		return
	}

	for _, w := range r.writers {
		w.rep.Add(added...)
	}
}

// Words returns a snapshot of the registered values in registration order.
func (r *Registry) Words() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]string, len(r.order))
	copy(snapshot, r.order)
	return snapshot
}
