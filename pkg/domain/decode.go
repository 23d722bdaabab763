package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// DecodeRecord parses a JSON object into a record of kind. Every field the
// record type declares must be present and non-null, at every nesting level,
// unless it is a pointer or tagged omitempty. Empty strings and empty lists
// count as present. The identifier field is ignored.
func DecodeRecord[T Record](raw []byte, kind Kind) (T, error) {
	var rec T
	doc, err := DecodeJSONDocument(raw)
	if err != nil {
		return rec, InvalidInput(kind, err)
	}
	delete(doc, kind.IDField)
	if missing := MissingFields(doc, reflect.TypeOf(rec)); len(missing) > 0 {
		return rec, InvalidInput(kind, errors.New("campos requeridos: "+strings.Join(missing, ", ")))
	}
	if err := DecodeDocument(doc, &rec); err != nil {
		return rec, InvalidInput(kind, err)
	}
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}

// MissingFields lists the required fields of t absent or null in doc, as
// dotted paths in declaration order with list indexes ("productos[0].nombre"). Values of the
// wrong JSON type are left to the decoder.
func MissingFields(doc Document, t reflect.Type) []string {
	return missingFields(map[string]any(doc), t, "")
}

func missingFields(v any, t reflect.Type, prefix string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	var missing []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, optional := jsonField(f)
		if name == "" {
			continue
		}
		val, present := obj[name]
		if !present || val == nil {
			if !optional {
				missing = append(missing, prefix+name)
			}
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.Struct:
			missing = append(missing, missingFields(val, ft, prefix+name+".")...)
		case reflect.Slice, reflect.Array:
			items, ok := val.([]any)
			if !ok {
				continue
			}
			for j, item := range items {
				missing = append(missing, missingFields(item, ft.Elem(), fmt.Sprintf("%s%s[%d].", prefix, name, j))...)
			}
		}
	}
	return missing
}

// jsonField returns the JSON key of f and whether it may be omitted.
func jsonField(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	optional := f.Type.Kind() == reflect.Pointer
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			optional = true
		}
	}
	return name, optional
}
