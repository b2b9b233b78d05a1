package anvil

import "math/bits"

const (
	SectionBlocks   = 16 * 16 * 16
	minBitsPerBlock = 4
)

// BitsPerBlock is the index width used for a block state palette of the given size:
// max(4, ceil(log2(paletteSize))).
func BitsPerBlock(paletteSize int) int {
	if paletteSize <= 1 {
		return minBitsPerBlock
	}
	n := bits.Len(uint(paletteSize - 1))
	if n < minBitsPerBlock {
		return minBitsPerBlock
	}
	return n
}

// PaletteIndex extracts entry blockIndex from a packed index array. Entries never straddle two
// words; unused high bits of each word are padding (the 1.16+ layout). An index past the end of
// data decodes as 0.
func PaletteIndex(data []int64, blockIndex, bitsPerBlock int) int {
	if bitsPerBlock <= 0 || bitsPerBlock > 32 || blockIndex < 0 {
		return 0
	}
	perWord := 64 / bitsPerBlock
	word := blockIndex / perWord
	if word >= len(data) {
		return 0
	}
	shift := uint(blockIndex%perWord) * uint(bitsPerBlock)
	mask := uint64(1)<<uint(bitsPerBlock) - 1
	return int(uint64(data[word]) >> shift & mask)
}

// BlockIndex is the position of a block inside a section's packed array.
func BlockIndex(x, y, z int) int {
	return y*256 + z*16 + x
}
