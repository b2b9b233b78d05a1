package nbt

const (
	TagEnd byte = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

// Tag is a node of a decoded NBT tree. Every concrete tag kind implements it; callers switch on
// the concrete type or use the As* helpers, which never panic on an unexpected shape.
type Tag interface {
	Type() byte
}

type (
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	String    string
	ByteArray []byte
	IntArray  []int32
	LongArray []int64
	Compound  map[string]Tag
)

// List is a homogeneous sequence of tags. Elem is the tag type of every item (TagEnd for an
// empty list written without a type).
type List struct {
	Elem  byte
	Items []Tag
}

func (Byte) Type() byte      { return TagByte }
func (Short) Type() byte     { return TagShort }
func (Int) Type() byte       { return TagInt }
func (Long) Type() byte      { return TagLong }
func (Float) Type() byte     { return TagFloat }
func (Double) Type() byte    { return TagDouble }
func (String) Type() byte    { return TagString }
func (ByteArray) Type() byte { return TagByteArray }
func (IntArray) Type() byte  { return TagIntArray }
func (LongArray) Type() byte { return TagLongArray }
func (List) Type() byte      { return TagList }
func (Compound) Type() byte  { return TagCompound }

// Get returns the tag stored under key. A nil compound behaves as an empty one.
func (c Compound) Get(key string) (Tag, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c[key]
	return t, ok && t != nil
}

func (c Compound) Compound(key string) (Compound, bool) {
	t, _ := c.Get(key)
	return AsCompound(t)
}

func (c Compound) List(key string) (List, bool) {
	t, _ := c.Get(key)
	return AsList(t)
}

func (c Compound) String(key string) (string, bool) {
	t, _ := c.Get(key)
	return AsString(t)
}

// Path walks nested compounds, e.g. Path("Level", "Sections").
func (c Compound) Path(keys ...string) (Tag, bool) {
	var cur Tag = c
	for _, k := range keys {
		comp, ok := AsCompound(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = comp.Get(k); !ok {
			return nil, false
		}
	}
	return cur, true
}

func AsCompound(t Tag) (Compound, bool) {
	c, ok := t.(Compound)
	return c, ok
}

func AsList(t Tag) (List, bool) {
	l, ok := t.(List)
	return l, ok
}

func AsString(t Tag) (string, bool) {
	s, ok := t.(String)
	return string(s), ok
}

// AsInt widens any integral tag to int64.
func AsInt(t Tag) (int64, bool) {
	switch v := t.(type) {
	case Byte:
		return int64(v), true
	case Short:
		return int64(v), true
	case Int:
		return int64(v), true
	case Long:
		return int64(v), true
	}
	return 0, false
}

// AsLongs accepts either a long array or a list whose items are all longs.
func AsLongs(t Tag) ([]int64, bool) {
	switch v := t.(type) {
	case LongArray:
		return v, true
	case List:
		if v.Elem != TagLong && len(v.Items) > 0 {
			return nil, false
		}
		out := make([]int64, len(v.Items))
		for i, item := range v.Items {
			l, ok := item.(Long)
			if !ok {
				return nil, false
			}
			out[i] = int64(l)
		}
		return out, true
	}
	return nil, false
}
