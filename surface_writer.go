package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/astei/anvilsurface/anvil"
	"github.com/astei/anvilsurface/nbt"
)

const surfaceHeader = 0x5355
const surfaceLatestVersion = 1

// maxSurfaceSize caps the decompressed NBT of a surface file.
const maxSurfaceSize = 256 << 20

var ErrNotSurfaceFile = errors.New("surface: bad magic")

type surfaceFileHeader struct {
	Magic      uint16
	Version    uint8
	MinX, MaxX int32
	MinZ, MaxZ int32
	MinY, MaxY int16
	ChunkCount uint32
}

func (world *AnvilWorld) Write(w io.Writer, format string) error {
	switch format {
	case formatJSON:
		return world.WriteAsJSON(w)
	case formatSurface:
		return world.WriteAsSurface(w)
	}
	return fmt.Errorf("unknown format %q", format)
}

// WriteAsSurface writes the header followed by a zstd-compressed NBT compound holding every
// chunk's palette, column indices and heights.
func (world *AnvilWorld) WriteAsSurface(writer io.Writer) error {
	w := &surfaceWriter{writer: writer, world: world}
	return w.writeWorld()
}

type surfaceWriter struct {
	writer io.Writer
	world  *AnvilWorld
}

func (w *surfaceWriter) writeWorld() (err error) {
	if err = w.writeHeader(); err != nil {
		return
	}
	return w.writeChunks()
}

func (w *surfaceWriter) writeHeader() error {
	b := w.world.Bounds
	header := surfaceFileHeader{
		Magic:      surfaceHeader,
		Version:    surfaceLatestVersion,
		MinX:       int32(b.MinX),
		MaxX:       int32(b.MaxX),
		MinZ:       int32(b.MinZ),
		MaxZ:       int32(b.MaxZ),
		MinY:       int16(b.MinY),
		MaxY:       int16(b.MaxY),
		ChunkCount: uint32(len(w.world.Chunks)),
	}
	return binary.Write(w.writer, binary.BigEndian, header)
}

func (w *surfaceWriter) writeChunks() error {
	chunks := nbt.List{Elem: nbt.TagCompound}
	for _, c := range sortedChunks(w.world.Chunks) {
		chunks.Items = append(chunks.Items, chunkCompound(c))
	}

	var buf bytes.Buffer
	if err := nbt.Marshal(&buf, nbt.Compound{"chunks": chunks}); err != nil {
		return err
	}
	return w.writeZstdCompressed(buf)
}

// chunkCompound stores a chunk's surface as a palette plus one index per column (-1 for none).
func chunkCompound(c anvil.ChunkSurface) nbt.Compound {
	palette := nbt.List{Elem: nbt.TagString}
	seen := make(map[string]int32)
	columns := make(nbt.IntArray, 256)
	heights := make(nbt.IntArray, 256)
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			i := z*16 + x
			b, ok := c.Surface[anvil.Column{X: x, Z: z}]
			if !ok {
				columns[i] = -1
				continue
			}
			idx, ok := seen[b.Name]
			if !ok {
				idx = int32(len(palette.Items))
				seen[b.Name] = idx
				palette.Items = append(palette.Items, nbt.String(b.Name))
			}
			columns[i] = idx
			heights[i] = int32(b.Y)
		}
	}
	return nbt.Compound{
		"x":       nbt.Int(c.Coord.X),
		"z":       nbt.Int(c.Coord.Z),
		"palette": palette,
		"columns": columns,
		"heights": heights,
	}
}

func (w *surfaceWriter) writeZstdCompressed(buf bytes.Buffer) (err error) {
	uncompressedSize := buf.Len()

	var compressedOutput bytes.Buffer
	zstdWriter, err := zstd.NewWriter(&compressedOutput)
	if err != nil {
		return
	}
	if _, err = buf.WriteTo(zstdWriter); err != nil {
		return
	}
	if err = zstdWriter.Close(); err != nil {
		return
	}

	if err = binary.Write(w.writer, binary.BigEndian, uint32(compressedOutput.Len())); err != nil {
		return
	}
	if err = binary.Write(w.writer, binary.BigEndian, uint32(uncompressedSize)); err != nil {
		return
	}
	_, err = compressedOutput.WriteTo(w.writer)
	return
}

// ReadSurface parses a file produced by WriteAsSurface.
func ReadSurface(r io.Reader) (*anvil.Dataset, error) {
	var header surfaceFileHeader
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != surfaceHeader {
		return nil, ErrNotSurfaceFile
	}
	if header.Version != surfaceLatestVersion {
		return nil, fmt.Errorf("surface: unsupported version %d", header.Version)
	}

	var sizes struct {
		Compressed   uint32
		Uncompressed uint32
	}
	if err := binary.Read(r, binary.BigEndian, &sizes); err != nil {
		return nil, err
	}
	if sizes.Uncompressed > maxSurfaceSize {
		return nil, fmt.Errorf("surface: %d uncompressed bytes exceeds the %d byte limit", sizes.Uncompressed, maxSurfaceSize)
	}
	zr, err := zstd.NewReader(io.LimitReader(r, int64(sizes.Compressed)), zstd.WithDecoderMaxMemory(maxSurfaceSize))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw := bytes.NewBuffer(make([]byte, 0, min(sizes.Uncompressed, 1<<20)))
	if _, err = raw.ReadFrom(io.LimitReader(zr, int64(sizes.Uncompressed)+1)); err != nil {
		return nil, err
	}
	if raw.Len() != int(sizes.Uncompressed) {
		return nil, fmt.Errorf("surface: header declares %d uncompressed bytes, found %d", sizes.Uncompressed, raw.Len())
	}
	root, err := nbt.Decode(raw.Bytes())
	if err != nil {
		return nil, err
	}

	ds := &anvil.Dataset{Bounds: anvil.Bounds{
		MinX: int(header.MinX), MaxX: int(header.MaxX),
		MinZ: int(header.MinZ), MaxZ: int(header.MaxZ),
		MinY: int(header.MinY), MaxY: int(header.MaxY),
	}}
	list, _ := root.List("chunks")
	for _, item := range list.Items {
		c, ok := nbt.AsCompound(item)
		if !ok {
			return nil, errors.New("surface: chunk entry is not a compound")
		}
		chunk, err := chunkFromCompound(c)
		if err != nil {
			return nil, err
		}
		ds.Chunks = append(ds.Chunks, chunk)
	}
	if len(ds.Chunks) != int(header.ChunkCount) {
		return nil, fmt.Errorf("surface: header lists %d chunks, found %d", header.ChunkCount, len(ds.Chunks))
	}
	return ds, nil
}

func chunkFromCompound(c nbt.Compound) (anvil.ChunkSurface, error) {
	var out anvil.ChunkSurface
	xt, _ := c.Get("x")
	zt, _ := c.Get("z")
	x, okX := nbt.AsInt(xt)
	z, okZ := nbt.AsInt(zt)
	if !okX || !okZ {
		return out, errors.New("surface: chunk without coordinates")
	}
	out.Coord = anvil.ChunkCoord{X: int(x), Z: int(z)}

	palette, _ := c.List("palette")
	ct, _ := c.Get("columns")
	ht, _ := c.Get("heights")
	columns, okC := ct.(nbt.IntArray)
	heights, okH := ht.(nbt.IntArray)
	if !okC || !okH || len(columns) != 256 || len(heights) != 256 {
		return out, fmt.Errorf("surface: chunk %d,%d has malformed columns", x, z)
	}

	out.Surface = make(anvil.SurfaceMap)
	for i, idx := range columns {
		if idx < 0 {
			continue
		}
		if int(idx) >= len(palette.Items) {
			return out, fmt.Errorf("surface: chunk %d,%d column %d references palette entry %d", x, z, i, idx)
		}
		name, _ := nbt.AsString(palette.Items[idx])
		out.Surface[anvil.Column{X: i % 16, Z: i / 16}] = anvil.SurfaceBlock{Name: name, Y: int(heights[i])}
	}
	return out, nil
}

type jsonChunk struct {
	X         int              `json:"x"`
	Z         int              `json:"z"`
	TopBlocks [][2]string      `json:"topBlocks"`
	Heights   [][2]interface{} `json:"heights"`
}

type jsonDataset struct {
	Chunks []jsonChunk `json:"chunks"`
	MinX   int         `json:"minX"`
	MaxX   int         `json:"maxX"`
	MinZ   int         `json:"minZ"`
	MaxZ   int         `json:"maxZ"`
	MinY   int         `json:"minY"`
	MaxY   int         `json:"maxY"`
}

// WriteAsJSON writes the dataset in the shape renderers consume: topBlocks is a list of
// ["x,z", name] pairs and heights the matching ["x,z", y] pairs.
func (world *AnvilWorld) WriteAsJSON(w io.Writer) error {
	b := world.Bounds
	out := jsonDataset{
		Chunks: make([]jsonChunk, 0, len(world.Chunks)),
		MinX:   b.MinX,
		MaxX:   b.MaxX,
		MinZ:   b.MinZ,
		MaxZ:   b.MaxZ,
		MinY:   b.MinY,
		MaxY:   b.MaxY,
	}
	for _, c := range sortedChunks(world.Chunks) {
		jc := jsonChunk{X: c.Coord.X, Z: c.Coord.Z, TopBlocks: [][2]string{}, Heights: [][2]interface{}{}}
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				block, ok := c.Surface[anvil.Column{X: x, Z: z}]
				if !ok {
					continue
				}
				key := fmt.Sprintf("%d,%d", x, z)
				jc.TopBlocks = append(jc.TopBlocks, [2]string{key, block.Name})
				jc.Heights = append(jc.Heights, [2]interface{}{key, block.Y})
			}
		}
		out.Chunks = append(out.Chunks, jc)
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func sortedChunks(chunks []anvil.ChunkSurface) []anvil.ChunkSurface {
	sorted := append([]anvil.ChunkSurface(nil), chunks...)
	sort.Slice(sorted, func(one, two int) bool {
		c1, c2 := sorted[one].Coord, sorted[two].Coord
		if c1.Z != c2.Z {
			return c1.Z < c2.Z
		}
		return c1.X < c2.X
	})
	return sorted
}
