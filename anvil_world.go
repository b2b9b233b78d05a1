package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/astei/anvilsurface/anvil"
)

const regionExt = ".mca"

// DiscoverRegions expands the given paths into region file paths. Directories contribute their
// *.mca entries (not recursively); files are taken as given.
func DiscoverRegions(paths []string) ([]string, error) {
	var found []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			found = append(found, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), regionExt) {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(found)
	return found, nil
}

// LoadContainers reads region files into memory. Files too small to hold a region header are
// skipped with a warning; Minecraft leaves such empty files behind for unused regions.
func LoadContainers(files []string, logger *log.Logger) ([]anvil.Container, error) {
	containers := make([]anvil.Container, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		if len(data) < anvil.HeaderSize {
			logger.Printf("skipping %s: %s is smaller than a region header", f, humanize.IBytes(uint64(len(data))))
			continue
		}
		logger.Printf("discovered %s (%s)", f, humanize.IBytes(uint64(len(data))))
		containers = append(containers, anvil.Container{Name: f, Data: data})
	}
	return containers, nil
}

// AnvilWorld is the decoded surface of a set of region files.
type AnvilWorld struct {
	*anvil.Dataset
}

// OpenAnvilWorld discovers, loads and decodes the region files under paths.
func OpenAnvilWorld(ctx context.Context, paths []string, cfg Config, logger *log.Logger) (*AnvilWorld, error) {
	files, err := DiscoverRegions(paths)
	if err != nil {
		return nil, err
	}
	containers, err := LoadContainers(files, logger)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if cfg.Quiet {
		bar = progressbar.DefaultSilent(int64(len(containers)), "decoding regions")
	} else {
		bar = progressbar.Default(int64(len(containers)), "decoding regions")
	}

	decoder := &anvil.Decoder{
		BatchSize: cfg.BatchSize,
		Regions:   cfg.Regions,
		OnChunkError: func(region string, index int, err error) {
			logger.Printf("%s: dropped chunk %d: %v", region, index, err)
		},
		OnRegion: func(r anvil.RegionReport) {
			_ = bar.Add(1)
			logger.Printf("%s: region %d,%d: %d/%d chunks decoded, %d of %d sections scanned%s%s",
				r.Name, r.X, r.Z, r.Decoded, r.Present, r.SectionsVisited, r.Sections, formatFailures(r.Failed), formatModified(r))
		},
	}
	dataset, err := decoder.Decode(ctx, containers)
	if err != nil {
		return nil, err
	}
	_ = bar.Finish()

	if dataset.Empty() {
		logger.Printf("no chunks decoded from %d region files", len(containers))
	} else {
		b := dataset.Bounds
		logger.Printf("decoded %d chunks; world bounds X=%d..%d Z=%d..%d Y=%d..%d",
			len(dataset.Chunks), b.MinX, b.MaxX, b.MinZ, b.MaxZ, b.MinY, b.MaxY)
	}
	return &AnvilWorld{Dataset: dataset}, nil
}

func formatModified(r anvil.RegionReport) string {
	if r.LastModified.IsZero() {
		return ""
	}
	return ", last saved " + humanize.Time(r.LastModified)
}

func formatFailures(failed map[string]int) string {
	if len(failed) == 0 {
		return ""
	}
	kinds := make([]string, 0, len(failed))
	for k := range failed {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	var sb strings.Builder
	sb.WriteString(" (failed:")
	for _, k := range kinds {
		fmt.Fprintf(&sb, " %s=%d", k, failed[k])
	}
	sb.WriteString(")")
	return sb.String()
}
