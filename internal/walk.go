package internal

import (
	"errors"
	"reflect"
)

var (
	ErrCyclicValue  = errors.New("value contains a reference cycle")
	ErrUnknownLevel = errors.New("unknown log level")
)

// refKey identifies a reference on the current path. The type is part of the
// key because a slice and a pointer to its first element share an address.
type refKey struct {
	ptr uintptr
	typ reflect.Type
}

// HasCycle reports whether v reaches itself through pointers, maps or slices.
// Only references on the current path count, so shared sub-values are fine.
// Traversal stops quietly at maxDepth.
func HasCycle(v any, maxDepth int) bool {
	if v == nil {
		return false
	}
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return false
	}
	onPath := make(map[refKey]struct{})
	return hasCycle(reflect.ValueOf(v), onPath, 0, maxDepth)
}

func hasCycle(val reflect.Value, onPath map[refKey]struct{}, depth, maxDepth int) bool {
	if !val.IsValid() || depth > maxDepth {
		return false
	}

	switch val.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if val.IsNil() {
			return false
		}
		if ptr := val.Pointer(); ptr != 0 {
			key := refKey{ptr: ptr, typ: val.Type()}
			if _, seen := onPath[key]; seen {
				return true
			}
			onPath[key] = struct{}{}
			defer delete(onPath, key)
		}
	}

	switch val.Kind() {
	case reflect.Ptr, reflect.Interface:
		if val.IsNil() {
			return false
		}
		return hasCycle(val.Elem(), onPath, depth+1, maxDepth)
	case reflect.Map:
		iter := val.MapRange()
		for iter.Next() {
			if hasCycle(iter.Value(), onPath, depth+1, maxDepth) {
				return true
			}
		}
	case reflect.Slice, reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return false
		}
		for i := 0; i < val.Len(); i++ {
			if hasCycle(val.Index(i), onPath, depth+1, maxDepth) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if !val.Type().Field(i).IsExported() {
				continue
			}
			if hasCycle(val.Field(i), onPath, depth+1, maxDepth) {
				return true
			}
		}
	}
	return false
}
