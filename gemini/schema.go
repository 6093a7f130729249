package gemini

import "reflect"

const (
	keyAdditionalProperties = "additionalProperties"
	keyType                 = "type"
	keyNullable             = "nullable"
	typeNull                = "null"
)

// NormalizeSchema returns a copy of a JSON Schema rewritten for Gemini:
//   - "additionalProperties" is dropped at every depth
//   - "type": [T, "null"] becomes "type": T with "nullable": true
//   - "null" is removed from type lists that keep two or more types
//
// Everything else is copied, with nested schemas in maps and lists
// normalized the same way. The input is not modified. Applying
// NormalizeSchema to its own output returns an equal tree.
func NormalizeSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}

	result := make(map[string]any, len(schema)+1)
	for k, v := range schema {
		if k == keyAdditionalProperties {
			continue
		}
		result[k] = normalizeValue(v)
	}

	if t, ok := result[keyType]; ok {
		if single, rest, changed := collapseNullType(t); changed {
			if single != nil {
				result[keyType] = single
				result[keyNullable] = true
			} else {
				result[keyType] = rest
			}
		}
	}

	return result
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return NormalizeSchema(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = NormalizeSchema(item)
		}
		return out
	case map[string]map[string]any:
		out := make(map[string]map[string]any, len(val))
		for k, item := range val {
			if k == keyAdditionalProperties {
				continue
			}
			out[k] = NormalizeSchema(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return normalizeReflect(v)
	}
}

// normalizeReflect handles maps and lists built from Go literals with
// element types other than any. String-keyed maps come back as
// map[string]any. Lists keep their element type unless a normalized element
// no longer fits it, in which case they come back as []any.
func normalizeReflect(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return NormalizeSchema(m)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return v
		}
		return normalizeList(rv)
	default:
		return v
	}
}

func normalizeList(rv reflect.Value) any {
	elemType := rv.Type().Elem()
	items := make([]any, rv.Len())
	fits := true
	for i := range items {
		items[i] = normalizeValue(rv.Index(i).Interface())
		if items[i] != nil && !reflect.TypeOf(items[i]).AssignableTo(elemType) {
			fits = false
		}
	}
	if !fits {
		return items
	}

	out := reflect.MakeSlice(reflect.SliceOf(elemType), len(items), len(items))
	for i, item := range items {
		if item != nil {
			out.Index(i).Set(reflect.ValueOf(item))
		}
	}
	return out.Interface()
}

// collapseNullType inspects a "type" value. When it is a list holding "null",
// changed is true and either single is the one remaining type or rest is the
// list without "null". A list that holds only "null" is left alone, as is
// anything that is not a list.
func collapseNullType(t any) (single any, rest any, changed bool) {
	switch types := t.(type) {
	case []any:
		kept := make([]any, 0, len(types))
		for _, item := range types {
			if s, ok := item.(string); ok && s == typeNull {
				continue
			}
			kept = append(kept, item)
		}
		return pickRemaining(kept, len(types))
	case []string:
		kept := make([]string, 0, len(types))
		for _, item := range types {
			if item != typeNull {
				kept = append(kept, item)
			}
		}
		return pickRemaining(kept, len(types))
	default:
		return nil, nil, false
	}
}

func pickRemaining[T any](kept []T, total int) (any, any, bool) {
	switch {
	case len(kept) == total, len(kept) == 0:
		return nil, nil, false
	case len(kept) == 1:
		return kept[0], nil, true
	default:
		return nil, kept, true
	}
}
