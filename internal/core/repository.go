package core

import (
	"arquitectura/pkg/domain"
	"context"
	"errors"
	"fmt"
)

// Repository exposes create, read, update, delete and field lookups for one
// record kind over an injected document store. Returned records always carry
// their identifier in the kind's id field.
type Repository[T domain.Record] struct {
	store domain.DocumentStore
	kind  domain.Kind
}

// NewRepository binds a repository for kind to store.
func NewRepository[T domain.Record](store domain.DocumentStore, kind domain.Kind) *Repository[T] {
	return &Repository[T]{store: store, kind: kind}
}

// Kind returns the record kind served by the repository.
func (r *Repository[T]) Kind() domain.Kind { return r.kind }

// Create validates and inserts rec, then reads it back.
func (r *Repository[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	doc, err := r.encode(rec)
	if err != nil {
		return zero, err
	}
	id, err := r.store.Insert(ctx, r.kind.Collection, doc)
	if err != nil {
		return zero, domain.StoreUnavailable(r.kind, err)
	}
	stored, err := r.store.FindOne(ctx, r.kind.Collection, id)
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		// Deleted between insert and read-back; report what was written.
		return r.decode(id, doc)
	case err != nil:
		return zero, domain.StoreUnavailable(r.kind, err)
	}
	return r.decode(id, stored)
}

// Update replaces the record stored under id with rec. It never creates.
func (r *Repository[T]) Update(ctx context.Context, id string, rec T) (T, error) {
	var zero T
	oid, err := r.parseID(id)
	if err != nil {
		return zero, err
	}
	doc, err := r.encode(rec)
	if err != nil {
		return zero, err
	}
	if err := r.store.Replace(ctx, r.kind.Collection, oid, doc); err != nil {
		return zero, r.classify(oid, err)
	}
	stored, err := r.store.FindOne(ctx, r.kind.Collection, oid)
	if err != nil {
		return zero, r.classify(oid, err)
	}
	return r.decode(oid, stored)
}

// Delete removes the record stored under id. Referencing records are left untouched.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	oid, err := r.parseID(id)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, r.kind.Collection, oid); err != nil {
		return r.classify(oid, err)
	}
	return nil
}

// Get loads the record stored under id.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	oid, err := r.parseID(id)
	if err != nil {
		return zero, err
	}
	stored, err := r.store.FindOne(ctx, r.kind.Collection, oid)
	if err != nil {
		return zero, r.classify(oid, err)
	}
	return r.decode(oid, stored)
}

// FindByField returns up to domain.DefaultFindLimit records whose field
// equals value, in insertion order. An empty result is a non-nil slice.
func (r *Repository[T]) FindByField(ctx context.Context, field string, value any) ([]T, error) {
	docs, err := r.store.FindMany(ctx, r.kind.Collection, domain.Filter{Field: field, Value: value}, domain.DefaultFindLimit)
	if err != nil {
		return nil, domain.StoreUnavailable(r.kind, err)
	}
	if len(docs) > domain.DefaultFindLimit {
		docs = docs[:domain.DefaultFindLimit]
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		rec, err := r.decode(d.ID, d.Doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Repository[T]) parseID(id string) (string, error) {
	oid, ok := domain.ParseID(id)
	if !ok {
		return "", domain.InvalidIdentifier(r.kind, id)
	}
	return oid, nil
}

func (r *Repository[T]) encode(rec T) (domain.Document, error) {
	if err := rec.Validate(); err != nil {
		if domain.KindOf(err) != "" {
			return nil, err
		}
		return nil, domain.InvalidInput(r.kind, err)
	}
	doc, err := domain.EncodeDocument(rec)
	if err != nil {
		return nil, domain.InvalidInput(r.kind, err)
	}
	delete(doc, r.kind.IDField)
	return doc, nil
}

func (r *Repository[T]) decode(id string, doc domain.Document) (T, error) {
	var rec T
	annotated := domain.CloneDocument(doc)
	if annotated == nil {
		annotated = domain.Document{}
	}
	annotated[r.kind.IDField] = id
	if err := domain.DecodeDocument(annotated, &rec); err != nil {
		return rec, domain.StoreUnavailable(r.kind, fmt.Errorf("decode %s %s: %w", r.kind.Collection, id, err))
	}
	return rec, nil
}

func (r *Repository[T]) classify(id string, err error) error {
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return domain.NotFound(r.kind, id)
	}
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.StoreUnavailable(r.kind, err)
}
