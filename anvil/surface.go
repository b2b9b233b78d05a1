package anvil

import (
	"sort"
	"strings"

	"github.com/astei/anvilsurface/nbt"
)

// Column is a horizontal position inside a chunk, both components in [0, 16).
type Column struct {
	X int
	Z int
}

// SurfaceBlock is the highest non-air block of a column and its world height.
type SurfaceBlock struct {
	Name string
	Y    int
}

// SurfaceMap holds the top block of every column that has one. Columns with no non-air block
// in the chunk are absent.
type SurfaceMap map[Column]SurfaceBlock

// ScanStats counts what the scanner looked at in one chunk.
type ScanStats struct {
	Sections int // sections present in the chunk
	Visited  int // sections examined before every column was resolved
}

// IsAir reports whether a block name is one of the air variants. Any name containing "air"
// qualifies, which covers air, cave_air and void_air.
func IsAir(name string) bool {
	return strings.Contains(name, "air")
}

// ScanSurface finds the highest non-air block of each column of a chunk.
//
// Sections are visited from the top down and the scan stops as soon as all 256 columns are
// resolved, so sections below that point are never parsed.
func ScanSurface(root nbt.Compound) (SurfaceMap, ScanStats) {
	surface := make(SurfaceMap)
	nodes := SectionNodes(root)
	stats := ScanStats{Sections: len(nodes)}
	if len(nodes) == 0 {
		return surface, stats
	}

	ys := make([]int32, len(nodes))
	order := make([]int, len(nodes))
	for i, node := range nodes {
		ys[i] = SectionY(node)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ys[order[a]] > ys[order[b]]
	})

	resolved := newColumnSet()
	for _, i := range order {
		if resolved.Full() {
			break
		}
		stats.Visited++

		section, ok := ParseSection(nodes[i])
		if !ok {
			continue
		}
		scanSection(section, surface, resolved)
	}
	return surface, stats
}

func scanSection(s Section, surface SurfaceMap, resolved *columnSet) {
	yOffset := int(s.Y) * 16

	if len(s.Palette) == 1 {
		name := s.Palette[0]
		if IsAir(name) {
			return
		}
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				if resolved.Resolve(x, z) {
					surface[Column{X: x, Z: z}] = SurfaceBlock{Name: name, Y: yOffset + 15}
				}
			}
		}
		return
	}

	if len(s.Palette) == 0 || len(s.Data) == 0 {
		return
	}

	bitsPerBlock := BitsPerBlock(len(s.Palette))
	for y := 15; y >= 0; y-- {
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				if resolved.Has(x, z) {
					continue
				}
				idx := PaletteIndex(s.Data, BlockIndex(x, y, z), bitsPerBlock)
				if idx >= len(s.Palette) {
					continue
				}
				name := s.Palette[idx]
				if IsAir(name) {
					continue
				}
				resolved.Resolve(x, z)
				surface[Column{X: x, Z: z}] = SurfaceBlock{Name: name, Y: yOffset + y}
			}
		}
	}
}
