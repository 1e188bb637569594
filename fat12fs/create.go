package fat12fs

import (
	"github.com/go-fat/fat12/block"
	"github.com/go-fat/fat12/errors"
)

// FormatOptions configures Create. DefaultFormatOptions returns sensible
// defaults; they rarely need to change.
type FormatOptions struct {
	// OEMName is an 8-byte ASCII identifier stamped into the BPB.
	OEMName string
	// SectorsPerTrack and NumHeads are CHC geometry hints carried in the BPB
	// for compatibility with tools that read them; this driver never uses
	// them itself.
	SectorsPerTrack uint16
	NumHeads        uint16
}

func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		OEMName:         "FAT12FS ",
		SectorsPerTrack: 32,
		NumHeads:        64,
	}
}

const (
	fourMiBBytes    = 4 << 20
	sixteenMiBBytes = 16 << 20
	twoGiBBytes     = 2 << 30
)

// NewBootSectorFromGeometry synthesizes a BPB purely from the partition's
// sector count. It is a direct translation of the original driver's
// fat_hook_create geometry computation.
//
// fs_size is progressively halved alongside doubling the cluster size, and
// the *halved* value, not the original partition size, feeds the root_count
// and media_descriptor thresholds below -- this mirrors the original's
// reuse of the same mutated fs_size variable for both purposes.
func NewBootSectorFromGeometry(numSectors uint, opts FormatOptions) (*BootSector, error) {
	fsSize := uint64(numSectors) * block.SectorSize

	variant := Variant12
	switch {
	case fsSize >= twoGiBBytes:
		variant = Variant32
	case fsSize >= sixteenMiBBytes:
		variant = Variant16
	}
	if variant != Variant12 {
		return nil, errors.ErrNotImplemented.WithMessage(
			"partition size requires FAT16 or FAT32, which this driver does not implement")
	}

	clusterSectors := uint(8)
	for fsSize >= sixteenMiBBytes {
		clusterSectors *= 2
		fsSize /= 2
	}

	raw := RawBootSector{
		JmpBoot:           [3]byte{0xEB, 0x3C, 0x90},
		BytesPerSector:    block.SectorSize,
		SectorsPerCluster: uint8(clusterSectors),
		ReservedSectors:   4,
		NumFATs:           2,
		SectorsPerTrack:   opts.SectorsPerTrack,
		NumHeads:          opts.NumHeads,
	}
	copy(raw.OEMName[:], opts.OEMName)

	if fsSize > fourMiBBytes {
		raw.RootEntryCount = 512
		raw.Media = 0xF8
	} else {
		raw.RootEntryCount = 240
		raw.Media = 0xF0
	}

	if numSectors > 65535 {
		raw.TotalSectorsLarge = uint32(numSectors)
	} else {
		raw.TotalSectorsSmall = uint16(numSectors)
	}

	entries := numSectors/clusterSectors - uint(raw.ReservedSectors)
	entriesPerSector := (uint(block.SectorSize) * 8) / 12
	sectorsPerFAT := entries / entriesPerSector
	if entries%entriesPerSector != 0 {
		sectorsPerFAT++
	}
	raw.SectorsPerFAT = uint16(sectorsPerFAT)

	bs := &BootSector{RawBootSector: raw}
	if err := bs.deriveGeometry(); err != nil {
		return nil, err
	}
	return bs, nil
}

// Create formats partition with a fresh FAT12 volume and returns the mounted
// Volume, ready for use. It lays down the BPB and initializes FAT entries 0
// and 1, mirroring the original's fat_hook_create/fat_write_fat(0/1, ...)
// sequence.
func Create(partition block.Partition, opts FormatOptions) (*Volume, error) {
	bs, err := NewBootSectorFromGeometry(partition.Length(), opts)
	if err != nil {
		return nil, err
	}

	table := NewTable(uint(bs.SectorsPerFAT) * block.SectorSize)
	table.Set(0, ClusterID(0xF00)|ClusterID(bs.Media))
	table.Set(1, 0xFFF)

	sector, err := bs.Encode()
	if err != nil {
		return nil, err
	}

	if err := partition.WriteBlocks(0, sector); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	if err := table.Flush(partition, bs); err != nil {
		return nil, err
	}

	vol := newVolume(partition, bs, table)
	vol.trace("formatted %d-sector partition: %d clusters, %d-byte clusters", partition.Length(), bs.NumClusters, bs.ClusterSize)
	return vol, nil
}
