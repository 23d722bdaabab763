package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh document identifier in its canonical hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ParseID validates id as a document-store key and returns its canonical form.
func ParseID(id string) (string, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return oid.Hex(), true
}

// EncodeDocument converts a typed value into a JSON-normalized Document.
// Numbers held by float fields keep a fractional part ("1500.0") so stores
// with typed numbers can tell them from integers.
func EncodeDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	doc, err := DecodeJSONDocument(raw)
	if err != nil {
		return nil, err
	}
	if v != nil {
		markFloats(map[string]any(doc), reflect.TypeOf(v))
	}
	return doc, nil
}

// markFloats rewrites whole float values under t in place and returns v.
func markFloats(v any, t reflect.Type) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		if n, ok := v.(json.Number); ok && !strings.ContainsAny(string(n), ".eE") {
			return n + ".0"
		}
	case reflect.Struct:
		obj, ok := v.(map[string]any)
		if !ok {
			return v
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, _ := jsonField(f)
			if val, ok := obj[name]; ok && name != "" {
				obj[name] = markFloats(val, f.Type)
			}
		}
	case reflect.Slice, reflect.Array:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		for i, item := range items {
			items[i] = markFloats(item, t.Elem())
		}
	}
	return v
}

// DecodeJSONDocument parses a JSON object into a Document, keeping numbers as json.Number.
func DecodeJSONDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode document: not a JSON object")
	}
	return doc, nil
}

// DecodeDocument populates v from doc.
func DecodeDocument(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}

// CloneDocument deep-copies doc so callers never share nested maps or slices.
func CloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneDocument(t)
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}

// MatchFilter reports whether doc satisfies f using document-store path
// semantics: dotted segments descend into objects, numeric segments index
// arrays, and any other segment applied to an array fans out over its elements.
// Values only match within the same JSON type: strings, numbers (compared
// numerically, so 5 equals 5.0), booleans and null. The string "5" never
// matches the number 5.
func MatchFilter(doc Document, f Filter) bool {
	if f.Field == "" {
		return false
	}
	return matchPath(doc, strings.Split(f.Field, "."), f.Value)
}

func matchPath(v any, segments []string, want any) bool {
	if len(segments) == 0 {
		if arr, ok := v.([]any); ok {
			for _, e := range arr {
				if valuesEqual(e, want) {
					return true
				}
			}
			return false
		}
		return valuesEqual(v, want)
	}
	switch t := v.(type) {
	case map[string]any:
		child, ok := t[segments[0]]
		if !ok {
			return false
		}
		return matchPath(child, segments[1:], want)
	case []any:
		if idx, err := strconv.Atoi(segments[0]); err == nil {
			if idx >= 0 && idx < len(t) && matchPath(t[idx], segments[1:], want) {
				return true
			}
		}
		for _, e := range t {
			if _, isObj := e.(map[string]any); isObj && matchPath(e, segments, want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// valuesEqual compares scalars of the same JSON type. Objects and arrays
// never match.
func valuesEqual(stored, want any) bool {
	if a, ok := numberOf(stored); ok {
		b, ok := numberOf(want)
		return ok && a.Cmp(b) == 0
	}
	switch x := stored.(type) {
	case nil:
		return want == nil
	case string:
		y, ok := want.(string)
		return ok && x == y
	case bool:
		y, ok := want.(bool)
		return ok && x == y
	default:
		return false
	}
}

func numberOf(v any) (*big.Rat, bool) {
	switch t := v.(type) {
	case json.Number:
		return new(big.Rat).SetString(t.String())
	case float64:
		r := new(big.Rat).SetFloat64(t)
		return r, r != nil
	case float32:
		r := new(big.Rat).SetFloat64(float64(t))
		return r, r != nil
	case int:
		return new(big.Rat).SetInt64(int64(t)), true
	case int32:
		return new(big.Rat).SetInt64(int64(t)), true
	case int64:
		return new(big.Rat).SetInt64(t), true
	case uint:
		return new(big.Rat).SetUint64(uint64(t)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(t)), true
	case uint64:
		return new(big.Rat).SetUint64(t), true
	default:
		return nil, false
	}
}
