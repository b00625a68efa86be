package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// Well-known product fields. Everything else is caller-defined and stored as-is.
const (
	FieldID        = "id"
	FieldCategory  = "category"
	FieldStorageID = "_id"
)

// Product is a schema-less catalog document.
//
// Only "id" (integer, unique) carries meaning for the catalog. "category"
// is used for filtering when it is a string. "_id" is the storage
// identity and is set by stores on read.
type Product map[string]any

// ID returns the business id. ErrMissingID is returned for an absent or
// falsy id, ErrInvalidDocument for a non-integer one.
func (p Product) ID() (int64, error) {
	raw, ok := p[FieldID]
	if !ok || isFalsy(raw) {
		return 0, ErrMissingID
	}

	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if v != math.Trunc(v) || v >= 1<<63 || v < -(1<<63) {
			return 0, fmt.Errorf("%w: id %v is not an integer", ErrInvalidDocument, v)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: id %q is not an integer", ErrInvalidDocument, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: id must be an integer, got %T", ErrInvalidDocument, raw)
	}
}

// Category returns the category when it is a string.
func (p Product) Category() (string, bool) {
	c, ok := p[FieldCategory].(string)
	return c, ok
}

// Clone returns a shallow copy.
func (p Product) Clone() Product {
	out := make(Product, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// withoutIdentity drops the business id and the storage id. Used for
// update payloads, which may not change either.
func (p Product) withoutIdentity() Product {
	out := p.Clone()
	delete(out, FieldID)
	delete(out, FieldStorageID)
	return out
}

func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case int64:
		return x == 0
	case int:
		return x == 0
	case int32:
		return x == 0
	case float64:
		return x == 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	default:
		return false
	}
}

// DecodeProduct reads one JSON object. Numbers come back as int64 when
// they are integral and float64 otherwise, so documents compare and
// marshal the same regardless of which store held them.
func DecodeProduct(r io.Reader) (Product, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidDocument)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrInvalidDocument)
	}

	return Product(normalizeNumbers(obj).(map[string]any)), nil
}

// DecodeProductBytes is DecodeProduct for an in-memory document.
func DecodeProductBytes(b []byte) (Product, error) {
	return DecodeProduct(bytes.NewReader(b))
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalizeNumbers(item)
		}
		return x
	case json.Number:
		if !strings.ContainsAny(string(x), ".eE") {
			if n, err := x.Int64(); err == nil {
				return n
			}
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return string(x)
	default:
		return v
	}
}
