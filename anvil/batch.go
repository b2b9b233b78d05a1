package anvil

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/astei/anvilsurface/nbt"
)

const (
	DefaultBatchSize = 50

	// World height limits of the overworld since 1.18. They are a convention, not derived from
	// the decoded chunks.
	WorldMinY = -64
	WorldMaxY = 320
)

// Container is a named region file held in memory.
type Container struct {
	Name string
	Data []byte
}

type ChunkSurface struct {
	Coord   ChunkCoord
	Surface SurfaceMap
}

// Bounds are block coordinates. MaxX and MaxZ are exclusive.
type Bounds struct {
	MinX, MaxX int
	MinZ, MaxZ int
	MinY, MaxY int
}

// RegionReport summarises the decoding of one container.
type RegionReport struct {
	Name    string
	X, Z    int
	Present int
	Decoded int
	Failed  map[string]int // keyed by ErrorKind
	// LastModified is the newest chunk timestamp of the location table, zero when none is set.
	LastModified time.Time

	Sections        int
	SectionsVisited int
}

type Dataset struct {
	Chunks  []ChunkSurface
	Bounds  Bounds
	Regions []RegionReport
}

// Empty reports whether no chunk was decoded. The horizontal bounds of an empty dataset are 0.
func (d *Dataset) Empty() bool {
	return len(d.Chunks) == 0
}

// Decoder turns region containers into a Dataset. The zero value is usable.
type Decoder struct {
	// BatchSize is the number of chunks decoded concurrently within one region. Each group is
	// awaited before the next starts. Defaults to DefaultBatchSize.
	BatchSize int
	// Regions is the number of containers decoded concurrently. Defaults to 1.
	Regions int

	// OnChunkError, when set, is called for every chunk that was dropped. It may be called from
	// several goroutines when Regions > 1.
	OnChunkError func(region string, index int, err error)
	// OnRegion, when set, is called after each container has been decoded.
	OnRegion func(report RegionReport)
}

func (d *Decoder) batchSize() int {
	if d.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return d.BatchSize
}

func (d *Decoder) regions() int {
	if d.Regions <= 0 {
		return 1
	}
	return d.Regions
}

// Decode decodes every container. A container smaller than the region header fails the whole
// call before any chunk is read; failures of individual chunks only drop those chunks.
func (d *Decoder) Decode(ctx context.Context, containers []Container) (*Dataset, error) {
	regions := make([]*Region, len(containers))
	for i, c := range containers {
		r, err := NewRegion(c.Name, c.Data)
		if err != nil {
			return nil, err
		}
		regions[i] = r
	}

	chunks := make([][]ChunkSurface, len(regions))
	reports := make([]RegionReport, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.regions())
	for i, r := range regions {
		i, r := i, r
		g.Go(func() error {
			var err error
			chunks[i], reports[i], err = d.DecodeRegion(gctx, r)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &Dataset{Regions: reports}
	for _, c := range chunks {
		ds.Chunks = append(ds.Chunks, c...)
	}
	ds.Bounds = ComputeBounds(ds.Chunks)
	return ds, nil
}

// DecodeRegion decodes the present chunks of one region in groups of BatchSize. The only error
// returned is the context's.
func (d *Decoder) DecodeRegion(ctx context.Context, r *Region) ([]ChunkSurface, RegionReport, error) {
	report := RegionReport{Name: r.Name, X: r.X, Z: r.Z, Failed: make(map[string]int)}

	var present []Location
	var newest uint32
	for _, loc := range r.Locations() {
		if loc.Present() {
			present = append(present, loc)
			newest = max(newest, loc.Timestamp)
		}
	}
	if newest != 0 {
		report.LastModified = time.Unix(int64(newest), 0)
	}
	report.Present = len(present)

	var out []ChunkSurface
	size := d.batchSize()
	results := make([]chunkResult, size)
	for start := 0; start < len(present); start += size {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		batch := present[start:min(start+size, len(present))]

		var wg sync.WaitGroup
		for i, loc := range batch {
			wg.Add(1)
			go func(i int, loc Location) {
				defer wg.Done()
				results[i] = decodeChunkFn(r, loc)
			}(i, loc)
		}
		wg.Wait()

		for i, loc := range batch {
			res := results[i]
			results[i] = chunkResult{}
			if res.err != nil {
				report.Failed[ErrorKind(res.err)]++
				if d.OnChunkError != nil {
					d.OnChunkError(r.Name, loc.Index, res.err)
				}
				continue
			}
			report.Decoded++
			report.Sections += res.stats.Sections
			report.SectionsVisited += res.stats.Visited
			out = append(out, res.chunk)
		}
	}

	if d.OnRegion != nil {
		d.OnRegion(report)
	}
	return out, report, nil
}

type chunkResult struct {
	chunk ChunkSurface
	stats ScanStats
	err   error
}

var decodeChunkFn = decodeChunk

func decodeChunk(r *Region, loc Location) (res chunkResult) {
	defer func() {
		if p := recover(); p != nil {
			res = chunkResult{err: fmt.Errorf("chunk %d: %w: %v", loc.Index, ErrMalformedTree, p)}
		}
	}()
	if loc.Index < 0 || loc.Index >= ChunksPerRegion {
		return chunkResult{err: ErrChunkIndexOutOfRange}
	}
	raw, err := r.ReadChunk(loc.Index)
	if err != nil {
		return chunkResult{err: err}
	}
	root, err := nbt.Decode(raw)
	if err != nil {
		return chunkResult{err: fmt.Errorf("chunk %d: %w: %v", loc.Index, ErrMalformedTree, err)}
	}
	surface, stats := ScanSurface(root)
	return chunkResult{
		chunk: ChunkSurface{Coord: r.ChunkCoord(loc.Index), Surface: surface},
		stats: stats,
	}
}

// ComputeBounds returns the block-space extent of the given chunks. Without chunks the
// horizontal bounds are all 0.
func ComputeBounds(chunks []ChunkSurface) Bounds {
	b := Bounds{MinY: WorldMinY, MaxY: WorldMaxY}
	if len(chunks) == 0 {
		return b
	}
	b.MinX, b.MinZ = math.MaxInt, math.MaxInt
	b.MaxX, b.MaxZ = math.MinInt, math.MinInt
	for _, c := range chunks {
		b.MinX = min(b.MinX, c.Coord.X*16)
		b.MaxX = max(b.MaxX, c.Coord.X*16+16)
		b.MinZ = min(b.MinZ, c.Coord.Z*16)
		b.MaxZ = max(b.MaxZ, c.Coord.Z*16+16)
	}
	return b
}
