package db

import (
	"context"

	"cloud.google.com/go/datastore"
)

// unindexedFields holds values too large or too free-form for Datastore
// indexes.
var unindexedFields = map[string]bool{
	"exception_details": true,
}

// datastoreStore adapts the Google Cloud Datastore client to the store
// interface.
type datastoreStore struct {
	client *datastore.Client
}

func (d *datastoreStore) query(ctx context.Context, kind string, filter map[string]any) ([]Entry, error) {
	q := datastore.NewQuery(kind)
	for key, value := range filter {
		q = q.FilterField(key, "=", value)
	}

	var props []datastore.PropertyList
	keys, err := d.client.GetAll(ctx, q, &props)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(keys))
	for i, key := range keys {
		fields := make(map[string]any, len(props[i]))
		for _, p := range props[i] {
			fields[p.Name] = p.Value
		}
		entries = append(entries, Entry{Key: key, Fields: fields})
	}
	return entries, nil
}

func (d *datastoreStore) put(ctx context.Context, kind string, entry Entry) (Entry, error) {
	key, _ := entry.Key.(*datastore.Key)
	if key == nil {
		key = datastore.IncompleteKey(kind, nil)
	}

	props := make(datastore.PropertyList, 0, len(entry.Fields))
	for name, value := range entry.Fields {
		props = append(props, datastore.Property{
			Name:    name,
			Value:   value,
			NoIndex: unindexedFields[name],
		})
	}

	stored, err := d.client.Put(ctx, key, &props)
	if err != nil {
		return Entry{}, err
	}
	entry.Key = stored
	return entry, nil
}
