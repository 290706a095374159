// Package store provides a generic key-document store used for plugins,
// users, and plugin version history. Implementations exist for MongoDB
// (remote mode), SQLite (local-install mode), and in-memory (tests).
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Collections used by the application.
const (
	CollectionPlugins        = "plugins"
	CollectionUsers          = "users"
	CollectionPluginVersions = "plugin_versions"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a schemaless JSON-like document keyed by field name.
type Document map[string]any

// Clone returns a shallow copy of the document. Nested values are shared;
// callers treat documents as read-after-fetch snapshots.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// String returns the string value of a field, or "" when absent.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Bool returns the boolean value of a field, or false when absent.
func (d Document) Bool(field string) bool {
	b, _ := d[field].(bool)
	return b
}

// Int64 returns the numeric value of a field as int64, or 0 when absent.
// JSON decoding yields float64; store drivers may yield int32/int64.
func (d Document) Int64(field string) int64 {
	switch v := d[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	}
	return 0
}

// StringSlice returns the value of a field as a string slice.
func (d Document) StringSlice(field string) []string {
	switch v := d[field].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Filter is an equality condition on a document field.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// OrderBy describes result ordering for Query.
type OrderBy struct {
	Field string
	Desc  bool
}

// QueryOptions carries optional Query parameters.
type QueryOptions struct {
	OrderBy *OrderBy
	Limit   int64
}

// QueryOption configures a Query call.
type QueryOption func(*QueryOptions)

// WithOrderBy sorts results by field.
func WithOrderBy(field string, desc bool) QueryOption {
	return func(o *QueryOptions) {
		o.OrderBy = &OrderBy{Field: field, Desc: desc}
	}
}

// WithLimit caps the number of returned documents.
func WithLimit(n int64) QueryOption {
	return func(o *QueryOptions) {
		o.Limit = n
	}
}

// Store is the document store adapter. All blocking operations take a
// context; a call either completes or fails, no cancellation semantics
// beyond the context are defined.
type Store interface {
	// GetDocument fetches one document by id. Returns ErrNotFound when
	// the document does not exist.
	GetDocument(ctx context.Context, collection, id string) (Document, error)

	// SetDocument writes a document. With merge, unspecified fields of an
	// existing document are preserved; without, the document is replaced.
	// Creates the document when absent in both modes.
	SetDocument(ctx context.Context, collection, id string, fields Document, merge bool) error

	// UpdateDocument applies a partial update to an existing document.
	// Returns ErrNotFound when the document does not exist.
	UpdateDocument(ctx context.Context, collection, id string, fields Document) error

	// Query returns documents matching all filters. Without an explicit
	// order the result follows store-native order.
	Query(ctx context.Context, collection string, filters []Filter, opts ...QueryOption) ([]Document, error)

	// Close releases store resources.
	Close(ctx context.Context) error
}

func applyOptions(opts []QueryOption) QueryOptions {
	var o QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// matches reports whether the document satisfies every filter.
func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !valueEqual(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

// compareValues orders two field values. Numbers sort numerically,
// everything else by string form.
func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// sortDocuments sorts in place by the given ordering, stable so that
// equal keys keep store-native order.
func sortDocuments(docs []Document, order *OrderBy) {
	if order == nil {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i][order.Field], docs[j][order.Field])
		if order.Desc {
			return c > 0
		}
		return c < 0
	})
}
