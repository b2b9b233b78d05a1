package anvil_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/anvilsurface/anvil"
	"github.com/astei/anvilsurface/anvil/anviltest"
	"github.com/astei/anvilsurface/nbt"
)

func TestReadLocations(t *testing.T) {
	buf := make([]byte, anvil.HeaderSize)
	binary.BigEndian.PutUint32(buf[5*4:], 2<<8|3)
	binary.BigEndian.PutUint32(buf[anvil.SectorSize+5*4:], 42)

	locs := anvil.ReadLocations(buf)
	require.Len(t, locs, anvil.ChunksPerRegion)
	assert.Equal(t, anvil.Location{Index: 5, SectorOffset: 2, SectorCount: 3, Timestamp: 42}, locs[5])
	assert.False(t, locs[0].Present())
	assert.True(t, locs[5].Present())
}

func TestReadLocationsTruncated(t *testing.T) {
	locs := anvil.ReadLocations(make([]byte, 10))
	assert.Len(t, locs, 2)
	assert.Empty(t, anvil.ReadLocations(nil))
}

func TestNewRegionTooSmall(t *testing.T) {
	_, err := anvil.NewRegion("r.0.0.mca", make([]byte, anvil.HeaderSize-1))
	assert.ErrorIs(t, err, anvil.ErrContainerTooSmall)
}

func TestParseRegionName(t *testing.T) {
	for _, tc := range []struct {
		name string
		x, z int
		ok   bool
	}{
		{"r.0.0.mca", 0, 0, true},
		{"r.-1.2.mca", -1, 2, true},
		{"world/region/r.12.-7.mca", 12, -7, true},
		{"region.mca", 0, 0, false},
		{"r.a.b.mca", 0, 0, false},
		{"r.99999999999999999999.0.mca", 0, 0, false},
	} {
		x, z, ok := anvil.ParseRegionName(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.x, x, tc.name)
		assert.Equal(t, tc.z, z, tc.name)
	}
}

func TestChunkCoord(t *testing.T) {
	r, err := anvil.NewRegion("r.-1.2.mca", make([]byte, anvil.HeaderSize))
	require.NoError(t, err)
	assert.Equal(t, anvil.ChunkCoord{X: -32, Z: 64}, r.ChunkCoord(0))
	assert.Equal(t, anvil.ChunkCoord{X: -31, Z: 65}, r.ChunkCoord(33))

	r, err = anvil.NewRegion("upload.bin", make([]byte, anvil.HeaderSize))
	require.NoError(t, err)
	assert.Equal(t, anvil.ChunkCoord{X: 31, Z: 31}, r.ChunkCoord(1023))
}

func TestReadChunk(t *testing.T) {
	root := anviltest.Chunk(anviltest.Filled(0, "minecraft:stone"))
	data := anviltest.NewRegion().
		SetChunk(0, root).
		SetRaw(1, byte(anvil.CompressionGzip), []byte{1, 2, 3}).
		SetRaw(2, byte(anvil.CompressionNone), []byte{1, 2, 3}).
		SetRaw(3, byte(anvil.CompressionDeflate), []byte("not zlib")).
		SetDangling(4, 500).
		SetOverlong(5, 1<<20).
		SetRaw(6, 0x82, []byte{1}).
		Bytes()

	r, err := anvil.NewRegion("r.0.0.mca", data)
	require.NoError(t, err)

	raw, err := r.ReadChunk(0)
	require.NoError(t, err)
	decoded, err := nbt.Decode(raw)
	require.NoError(t, err)
	assert.Len(t, anvil.SectionNodes(decoded), 1)

	_, err = r.ReadChunk(1)
	assert.ErrorIs(t, err, anvil.ErrUnsupportedCompression)
	_, err = r.ReadChunk(2)
	assert.ErrorIs(t, err, anvil.ErrUnsupportedCompression)
	_, err = r.ReadChunk(3)
	assert.ErrorIs(t, err, anvil.ErrCorruptPayload)
	_, err = r.ReadChunk(4)
	assert.ErrorIs(t, err, anvil.ErrTruncatedPayload)
	_, err = r.ReadChunk(5)
	assert.ErrorIs(t, err, anvil.ErrTruncatedPayload)
	_, err = r.ReadChunk(6)
	assert.ErrorIs(t, err, anvil.ErrUnsupportedCompression)

	_, err = r.ReadChunk(7)
	assert.ErrorIs(t, err, anvil.ErrNoChunk)
	_, err = r.ReadChunk(anvil.ChunksPerRegion)
	assert.ErrorIs(t, err, anvil.ErrChunkIndexOutOfRange)
}

func TestReadPayloadZeroLength(t *testing.T) {
	data := make([]byte, anvil.HeaderSize+anvil.SectorSize)
	binary.BigEndian.PutUint32(data[0:], 2<<8|1)
	data[anvil.HeaderSize+4] = byte(anvil.CompressionDeflate)

	r, err := anvil.NewRegion("r.0.0.mca", data)
	require.NoError(t, err)
	_, err = r.ReadPayload(r.Locations()[0])
	assert.ErrorIs(t, err, anvil.ErrCorruptPayload)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", anvil.ErrorKind(nil))
	assert.Equal(t, "truncated", anvil.ErrorKind(anvil.ErrTruncatedPayload))
	assert.Equal(t, "compression", anvil.ErrorKind(anvil.ErrUnsupportedCompression))
	assert.Equal(t, "corrupt", anvil.ErrorKind(anvil.ErrCorruptPayload))
	assert.Equal(t, "nbt", anvil.ErrorKind(anvil.ErrMalformedTree))
	assert.Equal(t, "other", anvil.ErrorKind(assert.AnError))
}
