package pool

import (
	"reflect"

	"github.com/pkg/errors"
)

// elemLayout returns the size and alignment of T after checking that values
// of T can live in arena memory.
func elemLayout[T any]() (size, align int, err error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Size() == 0 {
		return 0, 0, errors.Wrapf(ErrZeroSize, "%v", typ)
	}
	if hasPointers(typ) {
		return 0, 0, errors.Wrapf(ErrPointerType, "%v", typ)
	}
	return int(typ.Size()), typ.Align(), nil
}

// hasPointers reports whether a value of type t holds anything the garbage
// collector must trace.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// Pointer, UnsafePointer, String, Slice, Map, Chan, Func, Interface.
		return true
	}
}
