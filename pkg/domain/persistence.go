package domain

import "context"

// DefaultFindLimit caps the number of documents returned by a field lookup.
const DefaultFindLimit = 100

// Document is a schemaless record in JSON-normalized form: nested objects are
// map[string]any, arrays are []any and numbers are json.Number. The store's
// internal key is never part of a Document crossing the DocumentStore boundary.
type Document = map[string]any

// StoredDocument pairs a document with its store-assigned identifier.
type StoredDocument struct {
	ID  string
	Doc Document
}

// Filter selects documents whose value at Field equals Value. Field is a
// dotted path; arrays met along the path match when any element matches.
type Filter struct {
	Field string
	Value any
}

// DocumentStore is the minimal abstraction over the persistence backends.
// Every operation targets exactly one collection and, apart from FindMany,
// exactly one document.
type DocumentStore interface {
	// Insert stores doc and returns the identifier assigned to it.
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	// FindOne returns the document stored under id or ErrDocumentNotFound.
	FindOne(ctx context.Context, collection, id string) (Document, error)
	// FindMany returns up to limit matches in insertion order. A limit of
	// zero or less applies DefaultFindLimit.
	FindMany(ctx context.Context, collection string, filter Filter, limit int) ([]StoredDocument, error)
	// Replace overwrites the document stored under id. It never upserts and
	// returns ErrDocumentNotFound when id is absent.
	Replace(ctx context.Context, collection, id string, doc Document) error
	// Delete removes the document stored under id or returns ErrDocumentNotFound.
	Delete(ctx context.Context, collection, id string) error
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close(ctx context.Context) error
}
