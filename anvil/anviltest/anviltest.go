// Package anviltest builds synthetic region containers and chunk trees for tests.
package anviltest

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/astei/anvilsurface/anvil"
	"github.com/astei/anvilsurface/nbt"
)

// PackIndices packs palette indices into 64-bit words without letting an entry straddle two
// words.
func PackIndices(indices []int, bitsPerBlock int) []int64 {
	perWord := 64 / bitsPerBlock
	words := make([]int64, (len(indices)+perWord-1)/perWord)
	for i, idx := range indices {
		shift := uint(i%perWord) * uint(bitsPerBlock)
		words[i/perWord] |= int64(uint64(idx) << shift)
	}
	return words
}

// Palette is a block state palette list.
func Palette(names ...string) nbt.List {
	l := nbt.List{Elem: nbt.TagCompound}
	for _, n := range names {
		l.Items = append(l.Items, nbt.Compound{"Name": nbt.String(n)})
	}
	return l
}

// Filled is a 1.18+ section made of a single block.
func Filled(y int, block string) nbt.Compound {
	return nbt.Compound{
		"Y":            nbt.Byte(y),
		"block_states": nbt.Compound{"palette": Palette(block)},
	}
}

// Mixed is a 1.18+ section whose block at (x, y, z) is palette[blockAt(x, y, z)].
func Mixed(y int, palette []string, blockAt func(x, y, z int) int) nbt.Compound {
	return nbt.Compound{
		"Y": nbt.Byte(y),
		"block_states": nbt.Compound{
			"palette": Palette(palette...),
			"data":    nbt.LongArray(Pack(palette, blockAt)),
		},
	}
}

// LegacyMixed is a 1.13 to 1.17 section: BlockStates long array beside a Palette list.
func LegacyMixed(y int, palette []string, blockAt func(x, y, z int) int) nbt.Compound {
	return nbt.Compound{
		"Y":           nbt.Byte(y),
		"Palette":     Palette(palette...),
		"BlockStates": nbt.LongArray(Pack(palette, blockAt)),
	}
}

// Pack evaluates blockAt over a whole section and packs the result.
func Pack(palette []string, blockAt func(x, y, z int) int) []int64 {
	indices := make([]int, anvil.SectionBlocks)
	for y := 0; y < 16; y++ {
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				indices[anvil.BlockIndex(x, y, z)] = blockAt(x, y, z)
			}
		}
	}
	return PackIndices(indices, anvil.BitsPerBlock(len(palette)))
}

// Chunk is a 1.18+ chunk root holding the given sections.
func Chunk(sections ...nbt.Compound) nbt.Compound {
	return nbt.Compound{
		"DataVersion": nbt.Int(3465),
		"Status":      nbt.String("minecraft:full"),
		"sections":    sectionList(sections),
	}
}

// LegacyChunk keeps its sections under Level.Sections.
func LegacyChunk(sections ...nbt.Compound) nbt.Compound {
	return nbt.Compound{
		"DataVersion": nbt.Int(2586),
		"Level": nbt.Compound{
			"Status":   nbt.String("full"),
			"Sections": sectionList(sections),
		},
	}
}

func sectionList(sections []nbt.Compound) nbt.List {
	l := nbt.List{Elem: nbt.TagCompound}
	for _, s := range sections {
		l.Items = append(l.Items, s)
	}
	return l
}

type entry struct {
	compression byte
	payload     []byte
	offset      uint32 // explicit sector offset, 0 to allocate
	length      uint32 // explicit length field, 0 to derive
}

// Region assembles a region container. Chunks are laid out in index order, each starting on a
// sector boundary.
type Region struct {
	entries map[int]entry
}

func NewRegion() *Region {
	return &Region{entries: make(map[int]entry)}
}

// SetChunk stores root as a zlib-compressed chunk.
func (r *Region) SetChunk(index int, root nbt.Compound) *Region {
	var raw bytes.Buffer
	if err := nbt.Marshal(&raw, root); err != nil {
		panic(err)
	}
	return r.SetRaw(index, byte(anvil.CompressionDeflate), Deflate(raw.Bytes()))
}

// SetRaw stores an arbitrary payload with the given compression byte.
func (r *Region) SetRaw(index int, compression byte, payload []byte) *Region {
	r.entries[index] = entry{compression: compression, payload: payload}
	return r
}

// SetDangling points a location entry at a sector past the end of the container.
func (r *Region) SetDangling(index int, sectorOffset uint32) *Region {
	r.entries[index] = entry{offset: sectorOffset}
	return r
}

// SetOverlong stores a payload whose length field claims more bytes than the file holds.
func (r *Region) SetOverlong(index int, length uint32) *Region {
	r.entries[index] = entry{compression: byte(anvil.CompressionDeflate), payload: []byte{0x78}, length: length}
	return r
}

func (r *Region) Bytes() []byte {
	indices := make([]int, 0, len(r.entries))
	for i := range r.entries {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]byte, anvil.HeaderSize)
	for _, i := range indices {
		e := r.entries[i]
		if e.offset != 0 {
			binary.BigEndian.PutUint32(out[i*4:], e.offset<<8|1)
			continue
		}

		sector := uint32(len(out) / anvil.SectorSize)
		length := uint32(len(e.payload) + 1)
		if e.length != 0 {
			length = e.length
		}
		var body []byte
		body = binary.BigEndian.AppendUint32(body, length)
		body = append(body, e.compression)
		body = append(body, e.payload...)
		if pad := len(body) % anvil.SectorSize; pad != 0 {
			body = append(body, make([]byte, anvil.SectorSize-pad)...)
		}
		count := uint32(len(body) / anvil.SectorSize)

		binary.BigEndian.PutUint32(out[i*4:], sector<<8|count&0xff)
		binary.BigEndian.PutUint32(out[anvil.SectorSize+i*4:], 1700000000)
		out = append(out, body...)
	}
	return out
}

// Deflate compresses data with zlib.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
