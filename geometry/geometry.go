// Package geometry holds well-known disk geometries, so a caller formatting
// a new volume can pick one by name instead of guessing reasonable values
// for sectors-per-track, heads, and media descriptor.
package geometry

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/go-fat/fat12/fat12fs"
)

//go:embed floppy-geometries.csv
var floppyGeometriesCSV string

// Geometry describes a well-known storage device: its capacity and the
// legacy CHS-style fields FAT12's BPB carries for compatibility even
// though this driver never uses them for addressing.
type Geometry struct {
	Slug            string `csv:"slug"`
	Name            string `csv:"name"`
	TotalSectors    uint   `csv:"total_sectors"`
	BytesPerSector  uint   `csv:"bytes_per_sector"`
	SectorsPerTrack uint16 `csv:"sectors_per_track"`
	Heads           uint16 `csv:"heads"`
	MediaDescriptor uint8  `csv:"media_descriptor"`
}

// FormatOptions adapts this geometry into fat12fs.FormatOptions, carrying
// across the CHS hints. The media descriptor is not part of FormatOptions:
// NewBootSectorFromGeometry derives it from partition size, matching the
// original behavior rather than the nominal media type.
func (g Geometry) FormatOptions() fat12fs.FormatOptions {
	return fat12fs.FormatOptions{
		OEMName:         "FAT12FS ",
		SectorsPerTrack: g.SectorsPerTrack,
		NumHeads:        g.Heads,
	}
}

var byScript map[string]Geometry

// ByName returns the predefined geometry for slug (e.g. "1440k" for a
// 3.5-inch 1.44MB floppy), or an error if no such geometry is known.
func ByName(slug string) (Geometry, error) {
	g, ok := byScript[strings.ToLower(slug)]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined geometry named %q", slug)
	}
	return g, nil
}

// Names lists every predefined geometry slug. The order of the slugs is not
// defined.
func Names() []string {
	names := make([]string, 0, len(byScript))
	for name := range byScript {
		names = append(names, name)
	}
	return names
}

func init() {
	byScript = make(map[string]Geometry)

	reader := strings.NewReader(floppyGeometriesCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := byScript[row.Slug]; exists {
			return fmt.Errorf("duplicate predefined geometry slug %q", row.Slug)
		}
		byScript[row.Slug] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}
