package anvil

import "github.com/astei/anvilsurface/nbt"

// Section is one 16x16x16 slice of a chunk after schema resolution. Y is the section index,
// not a world height.
type Section struct {
	Y       int32
	Palette []string
	Data    []int64
}

// keyVariants lists the spellings a key has had across chunk format generations, newest first.
type keyVariants [2]string

var (
	keyY           = keyVariants{"Y", "y"}
	keyBlockStates = keyVariants{"block_states", "BlockStates"}
	keyPalette     = keyVariants{"palette", "Palette"}
	keyData        = keyVariants{"data", "Data"}
)

// sectionPaths are the locations of the section list: 1.18+ chunks keep it at the root, older
// chunks under Level.
var sectionPaths = [][]string{
	{"sections"},
	{"Level", "Sections"},
}

func (k keyVariants) lookup(c nbt.Compound) (nbt.Tag, bool) {
	for _, key := range k {
		if t, ok := c.Get(key); ok {
			return t, true
		}
	}
	return nil, false
}

const airBlock = "minecraft:air"

// SectionNodes returns the raw section compounds of a chunk. A chunk without terrain data
// yields nil.
func SectionNodes(root nbt.Compound) []nbt.Compound {
	for _, path := range sectionPaths {
		t, ok := root.Path(path...)
		if !ok {
			continue
		}
		list, ok := nbt.AsList(t)
		if !ok {
			continue
		}
		nodes := make([]nbt.Compound, 0, len(list.Items))
		for _, item := range list.Items {
			if c, ok := nbt.AsCompound(item); ok {
				nodes = append(nodes, c)
			}
		}
		return nodes
	}
	return nil
}

// SectionY returns the section index, 0 when absent or not an integer.
func SectionY(node nbt.Compound) int32 {
	t, ok := keyY.lookup(node)
	if !ok {
		return 0
	}
	y, ok := nbt.AsInt(t)
	if !ok {
		return 0
	}
	return int32(y)
}

// ParseSection resolves a raw section node. It reports false when the section has no palette.
//
// Two block state layouts are understood: a block_states compound holding palette and data
// (1.18+), and a BlockStates long array next to a Palette list on the section (1.13 to 1.17).
func ParseSection(node nbt.Compound) (Section, bool) {
	s := Section{Y: SectionY(node)}

	holder := node
	states, ok := keyBlockStates.lookup(node)
	if !ok {
		return s, false
	}
	switch v := states.(type) {
	case nbt.Compound:
		holder = v
		if t, ok := keyData.lookup(v); ok {
			s.Data, _ = nbt.AsLongs(t)
		}
	case nbt.LongArray:
		s.Data = v
	default:
		return s, false
	}

	t, ok := keyPalette.lookup(holder)
	if !ok {
		return s, false
	}
	list, ok := nbt.AsList(t)
	if !ok {
		return s, false
	}
	s.Palette = make([]string, len(list.Items))
	for i, entry := range list.Items {
		s.Palette[i] = paletteName(entry)
	}
	return s, true
}

func paletteName(entry nbt.Tag) string {
	switch v := entry.(type) {
	case nbt.String:
		return string(v)
	case nbt.Compound:
		if name, ok := v.String("Name"); ok && name != "" {
			return name
		}
	}
	return airBlock
}
