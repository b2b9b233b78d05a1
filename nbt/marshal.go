package nbt

import (
	"errors"
	"io"
	"math"
	"sort"
)

// Marshal writes root as an unnamed root compound.
func Marshal(w io.Writer, root Compound) error {
	return NewEncoder(w).Encode("", root)
}

type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes a named root compound. Compound keys are written in sorted order so that the
// output for a given tree is stable.
func (e *Encoder) Encode(name string, root Compound) error {
	return e.marshal(root, name)
}

func (e *Encoder) marshal(tag Tag, tagName string) error {
	if tag == nil {
		return errors.New("nil tag whilst serializing " + tagName)
	}
	if err := e.writeTag(tag.Type(), tagName); err != nil {
		return err
	}
	return e.marshalPayload(tag)
}

func (e *Encoder) marshalPayload(tag Tag) error {
	switch v := tag.(type) {
	case Byte:
		_, err := e.w.Write([]byte{byte(v)})
		return err

	case Short:
		return e.writeInt16(int16(v))

	case Int:
		return e.writeInt32(int32(v))

	case Long:
		return e.writeInt64(int64(v))

	case Float:
		return e.writeInt32(int32(math.Float32bits(float32(v))))

	case Double:
		return e.writeInt64(int64(math.Float64bits(float64(v))))

	case String:
		return e.writeString(string(v))

	case ByteArray:
		if err := e.writeInt32(int32(len(v))); err != nil {
			return err
		}
		_, err := e.w.Write(v)
		return err

	case IntArray:
		if err := e.writeInt32(int32(len(v))); err != nil {
			return err
		}
		for _, n := range v {
			if err := e.writeInt32(n); err != nil {
				return err
			}
		}
		return nil

	case LongArray:
		if err := e.writeInt32(int32(len(v))); err != nil {
			return err
		}
		for _, n := range v {
			if err := e.writeInt64(n); err != nil {
				return err
			}
		}
		return nil

	case List:
		return e.marshalList(v)

	case Compound:
		return e.marshalCompound(v)
	}
	return errors.New("unknown tag type whilst serializing")
}

func (e *Encoder) marshalList(l List) error {
	elem := l.Elem
	if len(l.Items) > 0 && elem == TagEnd {
		elem = l.Items[0].Type()
	}
	if err := e.writeNamelessTag(elem); err != nil {
		return err
	}
	if err := e.writeInt32(int32(len(l.Items))); err != nil {
		return err
	}
	for _, item := range l.Items {
		if item == nil || item.Type() != elem {
			return errors.New("mixed types in list")
		}
		if err := e.marshalPayload(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) marshalCompound(c Compound) error {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := e.marshal(c[k], k); err != nil {
			return err
		}
	}
	_, err := e.w.Write([]byte{TagEnd})
	return err
}

func (e *Encoder) writeTag(tagType byte, tagName string) error {
	if _, err := e.w.Write([]byte{tagType}); err != nil {
		return err
	}
	return e.writeString(tagName)
}

func (e *Encoder) writeNamelessTag(tagType byte) error {
	_, err := e.w.Write([]byte{tagType})
	return err
}

func (e *Encoder) writeString(s string) error {
	if err := e.writeInt16(int16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, s)
	return err
}

func (e *Encoder) writeInt16(n int16) error {
	_, err := e.w.Write([]byte{byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt32(n int32) error {
	_, err := e.w.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}

func (e *Encoder) writeInt64(n int64) error {
	_, err := e.w.Write([]byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	return err
}
