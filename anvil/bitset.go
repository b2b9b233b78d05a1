package anvil

import "github.com/willf/bitset"

const chunkColumns = 16 * 16

// columnSet tracks which of a chunk's 256 columns already have a surface block.
type columnSet struct {
	set   *bitset.BitSet
	count int
}

func newColumnSet() *columnSet {
	return &columnSet{set: bitset.New(chunkColumns)}
}

func columnIndex(x, z int) uint {
	return uint(z*16 + x)
}

func (c *columnSet) Has(x, z int) bool {
	return c.set.Test(columnIndex(x, z))
}

// Resolve marks a column; it reports false if the column was already marked.
func (c *columnSet) Resolve(x, z int) bool {
	idx := columnIndex(x, z)
	if c.set.Test(idx) {
		return false
	}
	c.set.Set(idx)
	c.count++
	return true
}

func (c *columnSet) Full() bool {
	return c.count == chunkColumns
}

func (c *columnSet) Len() int {
	return c.count
}
