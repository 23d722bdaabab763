// Package memory provides an in-memory implementation of the document store
// used for tests and ephemeral environments. The durable SQL backends reuse
// it as their working set and snapshot it after every mutation.
package memory

import (
	"arquitectura/pkg/domain"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.DocumentStore = (*Store)(nil)

type (
	// Document aliases domain.Document.
	Document = domain.Document
	// StoredDocument aliases domain.StoredDocument.
	StoredDocument = domain.StoredDocument
	// Filter aliases domain.Filter.
	Filter = domain.Filter
)

type collectionState struct {
	order []string
	docs  map[string]Document
}

func newCollectionState() *collectionState {
	return &collectionState{docs: make(map[string]Document)}
}

// remove deletes id and returns its former position in the insertion order.
func (c *collectionState) remove(id string) int {
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return i
		}
	}
	return -1
}

// restore puts doc back under id at position pos of the insertion order.
func (c *collectionState) restore(id string, doc Document, pos int) {
	c.docs[id] = doc
	if pos < 0 || pos > len(c.order) {
		pos = len(c.order)
	}
	c.order = append(c.order, "")
	copy(c.order[pos+1:], c.order[pos:])
	c.order[pos] = id
}

func (c *collectionState) export() []SnapshotDocument {
	out := make([]SnapshotDocument, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, SnapshotDocument{ID: id, Doc: domain.CloneDocument(c.docs[id])})
	}
	return out
}

// SnapshotDocument is one persisted document together with its identifier.
type SnapshotDocument struct {
	ID  string   `json:"_id"`
	Doc Document `json:"doc"`
}

// Snapshot captures a point-in-time clone of the store state keyed by
// collection. Documents are listed in insertion order.
type Snapshot map[string][]SnapshotDocument

// MutationHook receives the staged contents of a collection after a mutation,
// while the store is locked for writing. Returning an error rolls the
// mutation back and reports it to the caller, so the store only ever holds
// state the hook accepted.
type MutationHook func(ctx context.Context, collection string, docs []SnapshotDocument) error

// Store provides an in-memory document store. Zero value is not usable; use NewStore.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collectionState
	newID       func() string
	afterWrite  MutationHook
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithMutationHook registers a hook that must accept every mutation.
func WithMutationHook(hook MutationHook) Option {
	return func(s *Store) { s.afterWrite = hook }
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]*collectionState),
		newID:       domain.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) collection(name string) (*collectionState, bool) {
	c, ok := s.collections[name]
	if !ok {
		c = newCollectionState()
		s.collections[name] = c
	}
	return c, !ok
}

// commit offers the staged collection to the mutation hook. It must be called
// with s.mu held for writing; undo reverts the staged change on failure.
func (s *Store) commit(ctx context.Context, name string, c *collectionState, undo func()) error {
	if s.afterWrite == nil {
		return nil
	}
	if err := s.afterWrite(ctx, name, c.export()); err != nil {
		undo()
		return err
	}
	return nil
}

func checkCtx(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// Insert stores a copy of doc under a freshly generated identifier.
func (s *Store) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, created := s.collection(collection)
	id := s.newID()
	if _, exists := c.docs[id]; exists {
		return "", fmt.Errorf("document %q already exists in %s", id, collection)
	}
	c.docs[id] = domain.CloneDocument(doc)
	c.order = append(c.order, id)
	err := s.commit(ctx, collection, c, func() {
		c.remove(id)
		if created {
			delete(s.collections, collection)
		}
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// FindOne returns a copy of the document stored under id.
func (s *Store) FindOne(ctx context.Context, collection, id string) (Document, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return domain.CloneDocument(doc), nil
}

// FindMany scans the collection in insertion order and returns up to limit matches.
func (s *Store) FindMany(ctx context.Context, collection string, filter Filter, limit int) ([]StoredDocument, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = domain.DefaultFindLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StoredDocument, 0)
	c, ok := s.collections[collection]
	if !ok {
		return out, nil
	}
	for _, id := range c.order {
		doc := c.docs[id]
		if !domain.MatchFilter(doc, filter) {
			continue
		}
		out = append(out, StoredDocument{ID: id, Doc: domain.CloneDocument(doc)})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Replace overwrites an existing document in place, keeping its insertion position.
func (s *Store) Replace(ctx context.Context, collection, id string, doc Document) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	prev, ok := c.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	c.docs[id] = domain.CloneDocument(doc)
	return s.commit(ctx, collection, c, func() { c.docs[id] = prev })
}

// Delete removes the document stored under id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	prev, ok := c.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	pos := c.remove(id)
	return s.commit(ctx, collection, c, func() { c.restore(id, prev, pos) })
}

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error { return checkCtx(ctx) }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// Collections returns the names of collections that have been written to.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.collections))
	for name := range s.collections {
		out = append(out, name)
	}
	return out
}

// ExportCollection clones one collection for external persistence.
func (s *Store) ExportCollection(collection string) []SnapshotDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return []SnapshotDocument{}
	}
	return c.export()
}

// ExportState clones the whole store state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	s.mu.RUnlock()
	snapshot := make(Snapshot, len(names))
	for _, name := range names {
		snapshot[name] = s.ExportCollection(name)
	}
	return snapshot
}

// ImportState replaces the store state with the provided snapshot. Entries
// without an identifier or repeating an earlier identifier are dropped.
func (s *Store) ImportState(snapshot Snapshot) {
	collections := make(map[string]*collectionState, len(snapshot))
	for name, docs := range snapshot {
		c := newCollectionState()
		for _, entry := range docs {
			if entry.ID == "" {
				continue
			}
			if _, dup := c.docs[entry.ID]; dup {
				continue
			}
			doc := entry.Doc
			if doc == nil {
				doc = Document{}
			}
			c.docs[entry.ID] = domain.CloneDocument(doc)
			c.order = append(c.order, entry.ID)
		}
		collections[name] = c
	}
	s.mu.Lock()
	s.collections = collections
	s.mu.Unlock()
}

// EncodeCollection serializes one collection's snapshot as a JSON array.
func EncodeCollection(docs []SnapshotDocument) ([]byte, error) {
	if docs == nil {
		docs = []SnapshotDocument{}
	}
	return json.Marshal(docs)
}

// DecodeCollection parses a JSON array produced by EncodeCollection, keeping
// numbers as json.Number so documents stay in normalized form.
func DecodeCollection(payload []byte) ([]SnapshotDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var docs []SnapshotDocument
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return docs, nil
}
