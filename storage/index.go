// Package storage implements the name-addressable result store that
// mediates between an execution engine and a pluggable persistence
// backend: per-task lifecycle state and results, name-based lookup with
// structured sub-indexing, parameter injection, and an atomic
// read-merge-write persistence protocol.
package storage

import (
	"fmt"
	"reflect"

	"github.com/taskflow-go/taskflow"
)

// indexKind discriminates the three subscript shapes a result mapping
// entry can take: the whole result, a positional subscript, or a key
// subscript into a structured result.
type indexKind int

const (
	indexWhole indexKind = iota
	indexPosition
	indexKey
)

// Index names how a result mapping entry subscripts a task's result: the
// whole value, a positional subscript, or a key subscript.
type Index struct {
	kind indexKind
	pos  int
	key  string
}

// Whole returns an Index naming the entire result (the mapping's "null"
// index case).
func Whole() Index { return Index{kind: indexWhole} }

// Position returns an Index subscripting a sequence-like result at i.
func Position(i int) Index { return Index{kind: indexPosition, pos: i} }

// Key returns an Index subscripting a mapping-like result at key.
func Key(key string) Index { return Index{kind: indexKey, key: key} }

// String renders the index for diagnostics.
func (idx Index) String() string {
	switch idx.kind {
	case indexWhole:
		return "<whole>"
	case indexPosition:
		return fmt.Sprintf("[%d]", idx.pos)
	default:
		return fmt.Sprintf("[%q]", idx.key)
	}
}

// ResultMapping is the per-task name -> index table describing how each
// of a task's declared result names subscripts its actual result value.
type ResultMapping map[string]Index

// itemFromResult unifies the error surface across mapping-like and
// sequence-like result shapes, exactly as the original
// `_item_from_result(result, index, name)` does: any failure to subscript
// (missing key, bad type, out-of-range) becomes a *taskflow.NotFoundError
// naming name.
func itemFromResult(result any, idx Index, name string) (any, error) {
	if idx.kind == indexWhole {
		return result, nil
	}

	if result == nil {
		return nil, &taskflow.NotFoundError{Kind: "index", What: name}
	}

	switch idx.kind {
	case indexPosition:
		switch v := result.(type) {
		case []any:
			if idx.pos < 0 || idx.pos >= len(v) {
				return nil, &taskflow.NotFoundError{Kind: "index", What: name}
			}
			return v[idx.pos], nil
		}
		rv := reflect.ValueOf(result)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && idx.pos >= 0 && idx.pos < rv.Len() {
			return rv.Index(idx.pos).Interface(), nil
		}
		return nil, &taskflow.NotFoundError{Kind: "index", What: name}

	case indexKey:
		switch v := result.(type) {
		case map[string]any:
			val, ok := v[idx.key]
			if !ok {
				return nil, &taskflow.NotFoundError{Kind: "index", What: name}
			}
			return val, nil
		}
		rv := reflect.ValueOf(result)
		if rv.Kind() == reflect.Map {
			keyVal := reflect.ValueOf(idx.key)
			if !keyVal.Type().AssignableTo(rv.Type().Key()) {
				return nil, &taskflow.NotFoundError{Kind: "index", What: name}
			}
			val := rv.MapIndex(keyVal)
			if !val.IsValid() {
				return nil, &taskflow.NotFoundError{Kind: "index", What: name}
			}
			return val.Interface(), nil
		}
		return nil, &taskflow.NotFoundError{Kind: "index", What: name}
	}

	return nil, &taskflow.NotFoundError{Kind: "index", What: name}
}
