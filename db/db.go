// Package db keeps task bookkeeping entries in a document store, so
// containers can record per-run status that survives the pod.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/colpal/dataeng-container-tools/logger"
	"github.com/colpal/dataeng-container-tools/secrets"
	"google.golang.org/api/option"
)

// ModuleName is the logical name this collaborator registers its default
// secret path under.
const ModuleName = "DB"

// DefaultSecretPath is where the platform mounts the document store
// credentials by default.
const DefaultSecretPath = "/vault/secrets/gcp-credentials.json"

func init() {
	secrets.RegisterDefaultPaths(map[string]string{ModuleName: DefaultSecretPath})
}

// Entry is one stored document: its fields plus an opaque store key. A nil
// Key marks an entry that has not been stored yet.
type Entry struct {
	Key    any
	Fields map[string]any
}

// Ordering sorts query results by a list of field keys.
type Ordering struct {
	Keys       []string
	Descending bool
}

// store is the narrow surface the document store must provide. Tests swap in
// a fake; production uses Google Cloud Datastore.
type store interface {
	query(ctx context.Context, kind string, filter map[string]any) ([]Entry, error)
	put(ctx context.Context, kind string, entry Entry) (Entry, error)
}

// Config controls TaskStore construction.
type Config struct {
	// SecretLocation is the path of the credentials JSON. When empty,
	// Locations resolves the path for ModuleName.
	SecretLocation string

	// Locations is the logical-name to path mapping, usually from the
	// command line. May be nil.
	Locations secrets.Locations

	// Registry, when set, receives the credential file's values so they are
	// censored from output.
	Registry *secrets.Registry
}

// TaskStore records and updates task entries of one kind.
type TaskStore struct {
	log   logger.Logger
	kind  string
	store store
}

// New connects to the document store using the credentials resolved through
// conf and returns a TaskStore for taskKind entries.
func New(ctx context.Context, l logger.Logger, taskKind string, conf Config) (*TaskStore, error) {
	if l == nil {
		l = logger.Discard
	}

	path := conf.SecretLocation
	if path == "" {
		path = conf.Locations.Lookup(ModuleName)
	}
	if conf.Registry != nil {
		if _, err := conf.Registry.ParseSecret(path); err != nil {
			return nil, fmt.Errorf("document store credentials: %w", err)
		}
	}

	creds, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document store credentials: %w: %s", secrets.ErrNotFound, path)
		}
		return nil, err
	}
	var account struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(creds, &account); err != nil || account.ProjectID == "" {
		return nil, fmt.Errorf("document store credentials at %s carry no project_id", path)
	}

	client, err := datastore.NewClient(ctx, account.ProjectID, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("creating document store client: %w", err)
	}
	l.Info("document store client ready for project %s", account.ProjectID)

	return &TaskStore{
		log:   l,
		kind:  taskKind,
		store: &datastoreStore{client: client},
	}, nil
}

// Query returns the entries of kind matching every filter field, optionally
// sorted. An ordering key absent from any entry is an error.
func (t *TaskStore) Query(ctx context.Context, kind string, filter map[string]any, order *Ordering) ([]Entry, error) {
	entries, err := t.store.query(ctx, kind, filter)
	if err != nil {
		return nil, err
	}
	if order == nil || len(entries) <= 1 {
		return entries, nil
	}

	for _, key := range order.Keys {
		for _, entry := range entries {
			if _, ok := entry.Fields[key]; !ok {
				return nil, fmt.Errorf("cannot order entries by %q: an entry is missing it", key)
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		for _, key := range order.Keys {
			c := compareValues(entries[i].Fields[key], entries[j].Fields[key])
			if c == 0 {
				continue
			}
			if order.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return entries, nil
}

// CreateOrUpdate updates the first entry of kind matching filter with fields,
// or creates a new one. New entries are stamped with created_at and the
// commit_id from GITHUB_SHA; every write refreshes modified_at.
func (t *TaskStore) CreateOrUpdate(ctx context.Context, kind string, filter, fields map[string]any, order *Ordering) (Entry, error) {
	existing, err := t.Query(ctx, kind, filter, order)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	if len(existing) > 0 {
		entry = existing[0]
	} else {
		entry = Entry{Fields: map[string]any{
			"commit_id":  os.Getenv("GITHUB_SHA"),
			"created_at": time.Now().UTC(),
		}}
	}

	for key, value := range fields {
		entry.Fields[key] = value
	}
	entry.Fields["modified_at"] = time.Now().UTC()

	t.log.Info("storing %s entry for %v", kind, filter)
	return t.store.put(ctx, kind, entry)
}

// HandleTask records the state of one orchestrated task run, keyed by the
// dag_id, run_id and airflow_task_id values in params.
func (t *TaskStore) HandleTask(ctx context.Context, params map[string]any, order *Ordering) error {
	filter := make(map[string]any, 3)
	for _, key := range []string{"dag_id", "run_id", "airflow_task_id"} {
		value, ok := params[key]
		if !ok {
			return fmt.Errorf("task params are missing %q", key)
		}
		filter[key] = value
	}

	_, err := t.CreateOrUpdate(ctx, t.kind, filter, params, order)
	return err
}

// compareValues orders the field types the store produces. Mixed or unknown
// types compare by their printed form.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	}

	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
