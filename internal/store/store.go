// Package store is the document persistence layer. Records are grouped in
// named collections and addressed by a generated id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	FieldID        = "_id"
	FieldCreatedAt = "created_at"
)

var ErrInvalidCollection = errors.New("store: collection name is required")

// Document is a stored record. Documents returned by Query carry FieldID
// and FieldCreatedAt in addition to their data fields.
type Document map[string]any

// Filter selects documents whose fields equal every given value.
type Filter map[string]any

// Store is implemented by Postgres and Memory. Query returns newest
// documents first; limit <= 0 means no limit. Insert keeps a time.Time
// FieldCreatedAt supplied by the caller and stamps the current time
// otherwise.
type Store interface {
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	Query(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error)
	Ping(ctx context.Context) error
}

// ToDocument converts a JSON-tagged value into a Document.
func ToDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func normalizeFilter(filter Filter) (Filter, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	out := Filter{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func dataFields(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		out[k] = v
	}
	return out
}

func createdAt(doc Document, now func() time.Time) time.Time {
	if ts, ok := doc[FieldCreatedAt].(time.Time); ok && !ts.IsZero() {
		return ts.UTC()
	}
	return now()
}
