package anvil_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/anvilsurface/anvil"
	"github.com/astei/anvilsurface/anvil/anviltest"
)

func filledRegion(indices ...int) []byte {
	r := anviltest.NewRegion()
	for _, i := range indices {
		r.SetChunk(i, anviltest.Chunk(anviltest.Filled(4, "minecraft:stone")))
	}
	return r.Bytes()
}

func coords(ds *anvil.Dataset) []anvil.ChunkCoord {
	out := make([]anvil.ChunkCoord, 0, len(ds.Chunks))
	for _, c := range ds.Chunks {
		out = append(out, c.Coord)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		return out[i].X < out[j].X
	})
	return out
}

func TestDecodeEmptyHeader(t *testing.T) {
	var d anvil.Decoder
	ds, err := d.Decode(context.Background(), []anvil.Container{{Name: "r.3.3.mca", Data: make([]byte, anvil.HeaderSize)}})
	require.NoError(t, err)
	assert.True(t, ds.Empty())
	assert.Equal(t, anvil.Bounds{MinY: -64, MaxY: 320}, ds.Bounds)
	require.Len(t, ds.Regions, 1)
	assert.Zero(t, ds.Regions[0].Present)
}

func TestDecodeNoContainers(t *testing.T) {
	var d anvil.Decoder
	ds, err := d.Decode(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ds.Empty())
	assert.Equal(t, anvil.Bounds{MinY: anvil.WorldMinY, MaxY: anvil.WorldMaxY}, ds.Bounds)
}

func TestDecodeContainerTooSmallIsFatal(t *testing.T) {
	var d anvil.Decoder
	_, err := d.Decode(context.Background(), []anvil.Container{
		{Name: "r.0.0.mca", Data: filledRegion(0)},
		{Name: "r.1.0.mca", Data: make([]byte, 100)},
	})
	assert.ErrorIs(t, err, anvil.ErrContainerTooSmall)
}

func TestDecodeTwoRegionsBounds(t *testing.T) {
	d := anvil.Decoder{Regions: 2}
	ds, err := d.Decode(context.Background(), []anvil.Container{
		// chunks (0,0) and (1,1)
		{Name: "r.0.0.mca", Data: filledRegion(0, 33)},
		// chunks (-32+31, -32) and (-32, -32+2)
		{Name: "r.-1.-1.mca", Data: filledRegion(31, 64)},
	})
	require.NoError(t, err)
	assert.Equal(t, []anvil.ChunkCoord{
		{X: -1, Z: -32}, {X: -32, Z: -30}, {X: 0, Z: 0}, {X: 1, Z: 1},
	}, coords(ds))
	assert.Equal(t, anvil.Bounds{MinX: -512, MaxX: 32, MinZ: -512, MaxZ: 32, MinY: -64, MaxY: 320}, ds.Bounds)

	for _, c := range ds.Chunks {
		require.Len(t, c.Surface, 256)
		assert.Equal(t, anvil.SurfaceBlock{Name: "minecraft:stone", Y: 79}, c.Surface[anvil.Column{X: 7, Z: 7}])
	}
}

func TestDecodeDropsBadChunksOnly(t *testing.T) {
	data := anviltest.NewRegion().
		SetChunk(0, anviltest.Chunk(anviltest.Filled(0, "minecraft:sand"))).
		SetRaw(1, 1, []byte{0x1f, 0x8b}).
		SetRaw(2, 3, []byte{0x0a}).
		SetRaw(3, 2, anviltest.Deflate([]byte{0xff, 0x00, 0x13})).
		SetRaw(4, 2, []byte("garbage")).
		SetDangling(5, 4000).
		SetChunk(6, anviltest.Chunk(anviltest.Filled(0, "minecraft:gravel"))).
		Bytes()

	var (
		mu     sync.Mutex
		failed = map[int]string{}
	)
	var report anvil.RegionReport
	d := anvil.Decoder{
		BatchSize: 2,
		OnChunkError: func(region string, index int, err error) {
			mu.Lock()
			defer mu.Unlock()
			failed[index] = anvil.ErrorKind(err)
		},
		OnRegion: func(r anvil.RegionReport) { report = r },
	}
	ds, err := d.Decode(context.Background(), []anvil.Container{{Name: "r.0.0.mca", Data: data}})
	require.NoError(t, err)

	assert.Equal(t, []anvil.ChunkCoord{{X: 0, Z: 0}, {X: 6, Z: 0}}, coords(ds))
	assert.Equal(t, map[int]string{
		1: "compression",
		2: "compression",
		3: "nbt",
		4: "corrupt",
		5: "truncated",
	}, failed)
	assert.Equal(t, 7, report.Present)
	assert.Equal(t, 2, report.Decoded)
	assert.Equal(t, map[string]int{"compression": 2, "nbt": 1, "corrupt": 1, "truncated": 1}, report.Failed)
	assert.Equal(t, ds.Regions[0], report)
}

func TestDecodeChunkWithoutSections(t *testing.T) {
	data := anviltest.NewRegion().SetChunk(10, anviltest.Chunk()).Bytes()
	var d anvil.Decoder
	ds, err := d.Decode(context.Background(), []anvil.Container{{Name: "r.0.0.mca", Data: data}})
	require.NoError(t, err)
	require.Len(t, ds.Chunks, 1)
	assert.Empty(t, ds.Chunks[0].Surface)
	assert.Equal(t, anvil.ChunkCoord{X: 10, Z: 0}, ds.Chunks[0].Coord)
}

func TestDecodeManyBatches(t *testing.T) {
	indices := make([]int, 0, 130)
	for i := 0; i < 130; i++ {
		indices = append(indices, i*7%anvil.ChunksPerRegion)
	}
	var d anvil.Decoder
	ds, err := d.Decode(context.Background(), []anvil.Container{{Name: "r.0.0.mca", Data: filledRegion(indices...)}})
	require.NoError(t, err)
	assert.Len(t, ds.Chunks, 130)
	assert.Equal(t, 130*1, ds.Regions[0].SectionsVisited)
	assert.Equal(t, time.Unix(1700000000, 0), ds.Regions[0].LastModified)
}

func TestDecodeEmptyHeaderHasNoTimestamp(t *testing.T) {
	var d anvil.Decoder
	ds, err := d.Decode(context.Background(), []anvil.Container{{Name: "r.0.0.mca", Data: make([]byte, anvil.HeaderSize)}})
	require.NoError(t, err)
	assert.True(t, ds.Regions[0].LastModified.IsZero())
}

func TestDecodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var d anvil.Decoder
	_, err := d.Decode(ctx, []anvil.Container{{Name: "r.0.0.mca", Data: filledRegion(0, 1)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeBounds(t *testing.T) {
	b := anvil.ComputeBounds([]anvil.ChunkSurface{{Coord: anvil.ChunkCoord{X: -2, Z: 5}}})
	assert.Equal(t, anvil.Bounds{MinX: -32, MaxX: -16, MinZ: 80, MaxZ: 96, MinY: -64, MaxY: 320}, b)
}
