// Package mongo implements the document store on top of a MongoDB database.
// Documents keep their identifier in the native _id field as an ObjectID; the
// rest of the document is stored as-is and read back in normalized JSON form.
package mongo

import (
	"arquitectura/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.DocumentStore = (*Store)(nil)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "arquitectura"
	defaultTimeout  = 10 * time.Second
	idKey           = "_id"
)

// Config holds the connection settings for Connect.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store is a MongoDB-backed document store.
type Store struct {
	db     *mongo.Database
	client *mongo.Client
	owned  bool
}

// Connect dials MongoDB, verifies the connection and returns a store bound to
// cfg.Database. The store owns the client and disconnects it on Close.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		cfg.URI = defaultURI
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout).
		SetConnectTimeout(cfg.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{db: client.Database(cfg.Database), client: client, owned: true}, nil
}

// New wraps an existing database handle. Close leaves the client connected.
func New(db *mongo.Database) *Store {
	return &Store{db: db, client: db.Client()}
}

// Database returns the wrapped database handle.
func (s *Store) Database() *mongo.Database { return s.db }

// Insert stores doc under a new ObjectID and returns its hex form.
func (s *Store) Insert(ctx context.Context, collection string, doc domain.Document) (string, error) {
	oid := primitive.NewObjectID()
	payload := toBSON(doc)
	payload[idKey] = oid
	if _, err := s.db.Collection(collection).InsertOne(ctx, payload); err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return oid.Hex(), nil
}

// FindOne loads the document stored under id.
func (s *Store) FindOne(ctx context.Context, collection, id string) (domain.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrDocumentNotFound
	}
	var raw bson.M
	err = s.db.Collection(collection).FindOne(ctx, bson.M{idKey: oid}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s in %s: %w", id, collection, err)
	}
	_, doc, err := fromBSON(raw)
	return doc, err
}

// FindMany runs an equality query on filter.Field, ordered by _id, returning at most limit documents.
func (s *Store) FindMany(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.StoredDocument, error) {
	if limit <= 0 {
		limit = domain.DefaultFindLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: idKey, Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{filter.Field: toBSONValue(filter.Value)}, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer func() { _ = cur.Close(context.Background()) }()

	out := make([]domain.StoredDocument, 0)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		id, doc, err := fromBSON(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.StoredDocument{ID: id, Doc: doc})
		if len(out) == limit {
			break
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

// Replace swaps the full document body stored under id. It never upserts.
func (s *Store) Replace(ctx context.Context, collection, id string, doc domain.Document) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrDocumentNotFound
	}
	payload := toBSON(doc)
	delete(payload, idKey)
	res, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{idKey: oid}, payload)
	if err != nil {
		return fmt.Errorf("replace %s in %s: %w", id, collection, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Delete removes the document stored under id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrDocumentNotFound
	}
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{idKey: oid})
	if err != nil {
		return fmt.Errorf("delete %s in %s: %w", id, collection, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client when the store created it.
func (s *Store) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// toBSON copies a normalized document into a bson.M. json.Number values are
// converted to int64 or float64 so they are stored as BSON numbers.
func toBSON(doc domain.Document) bson.M {
	out := make(bson.M, len(doc)+1)
	for k, v := range doc {
		out[k] = toBSONValue(v)
	}
	return out
}

func toBSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return toBSON(val)
	case []any:
		out := make(bson.A, len(val))
		for i, item := range val {
			out[i] = toBSONValue(item)
		}
		return out
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// fromBSON splits the _id out of a decoded document and normalizes the rest.
func fromBSON(raw bson.M) (string, domain.Document, error) {
	var id string
	switch v := raw[idKey].(type) {
	case primitive.ObjectID:
		id = v.Hex()
	case string:
		id = v
	case nil:
	default:
		id = fmt.Sprint(v)
	}
	delete(raw, idKey)
	payload, err := json.Marshal(plain(raw))
	if err != nil {
		return "", nil, fmt.Errorf("encode document %s: %w", id, err)
	}
	doc, err := domain.DecodeJSONDocument(payload)
	if err != nil {
		return "", nil, err
	}
	return id, doc, nil
}

// plain rewrites driver specific container and scalar types into values that
// encode as ordinary JSON.
func plain(v any) any {
	switch val := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case primitive.Decimal128:
		return json.Number(val.String())
	default:
		return v
	}
}
