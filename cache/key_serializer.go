package cache

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// DefaultMaxKeyLength is the key length above which keys are compacted.
const DefaultMaxKeyLength = 512

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// String values are written Go-quoted. Struct fields and map entries are emitted in sorted order and absent struct
// fields (nil pointers, empty strings, empty slices and maps) are skipped, so
// two sparse filter values with the same field to value mapping always
// produce the same key.
type defaultKeySerializer struct {
	maxLength int
}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return NewKeySerializer(DefaultMaxKeyLength)
}

// NewKeySerializer creates a serializer compacting keys longer than maxLength.
// The namespace prefix is preserved and the tail is replaced by an xxhash
// digest of the full key. Zero disables compaction.
func NewKeySerializer(maxLength int) KeySerializer {
	return &defaultKeySerializer{maxLength: maxLength}
}

// SerializeKey builds a cache key from namespace and args using reflection.
func (s *defaultKeySerializer) SerializeKey(namespace string, args ...any) string {
	if len(args) == 0 {
		return namespace
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, namespace)

	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}

	return s.compact(strings.Join(parts, KeySeparator))
}

func (s *defaultKeySerializer) compact(key string) string {
	if s.maxLength <= 0 || len(key) <= s.maxLength {
		return key
	}

	digest := strconv.FormatUint(xxhash.Sum64String(key), 16)
	keep := s.maxLength - len(digest) - 1
	if keep < 0 {
		keep = 0
	}
	return key[:keep] + "#" + digest
}

// serializeValue handles individual argument serialization based on type.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		// Function pointers are only stable within a single process
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			return "interface:nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.serializeList("slice", rv)
	case reflect.Array:
		return s.serializeList("array", rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)
	case reflect.Struct:
		if marshaler, ok := v.(encoding.TextMarshaler); ok {
			if text, err := marshaler.MarshalText(); err == nil {
				return strconv.Quote(string(text))
			}
		}
		return s.serializeStruct(rv)
	case reflect.String:
		// Quoted so separators inside values cannot forge another key.
		return strconv.Quote(rv.String())
	}

	if isBasicType(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

func (s *defaultKeySerializer) serializeList(kind string, rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)

	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}

	return fmt.Sprintf("%s[%d]:{%s}", kind, length, strings.Join(parts, ","))
}

// serializeMap handles map serialization with sorted keys for determinism
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		key := s.serializeValue(iter.Key().Interface())
		value := s.serializeValue(iter.Value().Interface())
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)

	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

// serializeStruct emits present exported fields as name:value, sorted by name.
// Embedded structs are flattened into the parent.
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value) string {
	fields := map[string]string{}
	s.collectFields(rv, fields)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ":" + fields[name]
	}

	return fmt.Sprintf("{%s}", strings.Join(parts, ","))
}

func (s *defaultKeySerializer) collectFields(rv reflect.Value, out map[string]string) {
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		value := rv.Field(i)

		if field.Anonymous && value.Kind() == reflect.Struct {
			s.collectFields(value, out)
			continue
		}
		if !field.IsExported() {
			continue
		}

		name, skip := fieldName(field)
		if skip || isAbsent(value) || !value.CanInterface() {
			continue
		}

		out[name] = s.serializeValue(value.Interface())
	}
}

func fieldName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return field.Name, false
}

// isAbsent reports whether a struct field should not contribute to a key.
func isAbsent(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.String:
		return v.Len() == 0
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	}
	return false
}

// isBasicType checks if a kind represents a basic Go type
func isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization as a last resort
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%T", v)
	}
	return "json:" + string(data)
}
