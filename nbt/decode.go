package nbt

import (
	"errors"
	"fmt"

	mcnbt "github.com/Tnze/go-mc/nbt"
)

var ErrNotCompound = errors.New("nbt: root tag is not a compound")

// Decode parses an uncompressed NBT stream whose root is a compound. The byte-level decoding is
// done by go-mc; its dynamic result is converted into the typed tree.
func Decode(data []byte) (Compound, error) {
	var raw interface{}
	if err := mcnbt.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	tag, err := FromValue(raw)
	if err != nil {
		return nil, err
	}
	root, ok := tag.(Compound)
	if !ok {
		return nil, ErrNotCompound
	}
	return root, nil
}

// FromValue converts the dynamic values produced by a reflection-based NBT decoder
// (map[string]interface{}, []interface{}, sized integers, floats, strings and typed arrays).
func FromValue(v interface{}) (Tag, error) {
	switch x := v.(type) {
	case Tag:
		return x, nil
	case int8:
		return Byte(x), nil
	case uint8:
		return Byte(int8(x)), nil
	case bool:
		if x {
			return Byte(1), nil
		}
		return Byte(0), nil
	case int16:
		return Short(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Long(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Double(x), nil
	case string:
		return String(x), nil
	case []byte:
		return ByteArray(x), nil
	case []int8:
		out := make(ByteArray, len(x))
		for i, b := range x {
			out[i] = byte(b)
		}
		return out, nil
	case []int32:
		return IntArray(x), nil
	case []int64:
		return LongArray(x), nil
	case []interface{}:
		return listFromValues(x)
	case []string:
		return listFromValues(toValues(x))
	case []int16:
		return listFromValues(toValues(x))
	case []float32:
		return listFromValues(toValues(x))
	case []float64:
		return listFromValues(toValues(x))
	case []map[string]interface{}:
		return listFromValues(toValues(x))
	case map[string]interface{}:
		c := make(Compound, len(x))
		for k, item := range x {
			t, err := FromValue(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			c[k] = t
		}
		return c, nil
	case nil:
		return nil, errors.New("nbt: nil value")
	}
	return nil, fmt.Errorf("nbt: unsupported value of type %T", v)
}

func toValues[T any](items []T) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func listFromValues(values []interface{}) (Tag, error) {
	l := List{Elem: TagEnd, Items: make([]Tag, 0, len(values))}
	for i, item := range values {
		t, err := FromValue(item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if i == 0 {
			l.Elem = t.Type()
		} else if t.Type() != l.Elem {
			return nil, fmt.Errorf("nbt: mixed types in list: found %d and %d", t.Type(), l.Elem)
		}
		l.Items = append(l.Items, t)
	}
	return l, nil
}
