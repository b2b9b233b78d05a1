package anvil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/klauspost/compress/zlib"
)

const (
	ChunksPerRegion = 1024
	SectorSize      = 4096

	// HeaderSize covers the location table and the timestamp table.
	HeaderSize = 2 * SectorSize
)

type CompressionType byte

const (
	CompressionGzip    CompressionType = 1
	CompressionDeflate CompressionType = 2
	CompressionNone    CompressionType = 3
)

// Location is one entry of the region location table.
type Location struct {
	Index        int
	SectorOffset uint32
	SectorCount  uint8
	Timestamp    uint32
}

func (l Location) Present() bool {
	return l.SectorOffset != 0
}

// ReadLocations parses the location table at the start of buf. A buffer too short for the full
// table yields only the entries that fit.
func ReadLocations(buf []byte) []Location {
	n := len(buf) / 4
	if n > ChunksPerRegion {
		n = ChunksPerRegion
	}
	locations := make([]Location, n)
	for i := range locations {
		raw := binary.BigEndian.Uint32(buf[i*4:])
		locations[i] = Location{
			Index:        i,
			SectorOffset: raw >> 8,
			SectorCount:  uint8(raw),
		}
		if ts := SectorSize + i*4; ts+4 <= len(buf) {
			locations[i].Timestamp = binary.BigEndian.Uint32(buf[ts:])
		}
	}
	return locations
}

// ChunkCoord is a chunk position in chunk units.
type ChunkCoord struct {
	X int
	Z int
}

// Region is an in-memory region container. It is immutable after construction and safe for
// concurrent reads.
type Region struct {
	Name string
	X, Z int

	data      []byte
	locations []Location
}

func NewRegion(name string, data []byte) (*Region, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%s: %d bytes: %w", name, len(data), ErrContainerTooSmall)
	}
	x, z, _ := ParseRegionName(name)
	return &Region{
		Name:      name,
		X:         x,
		Z:         z,
		data:      data,
		locations: ReadLocations(data),
	}, nil
}

var regionNamePattern = regexp.MustCompile(`r\.(-?\d+)\.(-?\d+)\.\w+$`)

// ParseRegionName extracts the region coordinates from a file name such as r.-1.2.mca. It
// returns 0, 0, false when the name does not follow that pattern.
func ParseRegionName(name string) (x, z int, ok bool) {
	m := regionNamePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(m[1])
	z, errZ := strconv.Atoi(m[2])
	if errX != nil || errZ != nil {
		return 0, 0, false
	}
	return x, z, true
}

func (r *Region) Locations() []Location {
	return r.locations
}

// ChunkCoord converts a location table index to absolute chunk coordinates.
func (r *Region) ChunkCoord(index int) ChunkCoord {
	return ChunkCoord{
		X: index%32 + r.X*32,
		Z: index/32 + r.Z*32,
	}
}

// ReadPayload returns the still-compressed payload of the chunk at loc.
func (r *Region) ReadPayload(loc Location) ([]byte, error) {
	if !loc.Present() {
		return nil, ErrNoChunk
	}
	offset := int64(loc.SectorOffset) * SectorSize
	size := int64(len(r.data))
	if offset+5 > size {
		return nil, fmt.Errorf("chunk %d at byte %d: %w", loc.Index, offset, ErrTruncatedPayload)
	}

	length := int64(binary.BigEndian.Uint32(r.data[offset:]))
	compression := CompressionType(r.data[offset+4])
	if offset+5+length-1 > size {
		return nil, fmt.Errorf("chunk %d length %d: %w", loc.Index, length, ErrTruncatedPayload)
	}
	if length == 0 {
		return nil, fmt.Errorf("chunk %d: zero length: %w", loc.Index, ErrCorruptPayload)
	}
	if compression != CompressionDeflate {
		return nil, fmt.Errorf("chunk %d: type %d: %w", loc.Index, compression, ErrUnsupportedCompression)
	}
	return r.data[offset+5 : offset+5+length-1], nil
}

// ReadChunk reads and inflates the chunk at the given table index. The result may be handed to
// an NBT decoder.
func (r *Region) ReadChunk(index int) ([]byte, error) {
	if index < 0 || index >= ChunksPerRegion {
		return nil, ErrChunkIndexOutOfRange
	}
	if index >= len(r.locations) {
		return nil, ErrNoChunk
	}
	payload, err := r.ReadPayload(r.locations[index])
	if err != nil {
		return nil, err
	}
	return Inflate(payload)
}

// Inflate decompresses a zlib stream.
func Inflate(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return out, nil
}
