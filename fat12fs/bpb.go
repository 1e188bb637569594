// Package fat12fs implements the on-disk format machinery for a FAT12 file
// system: the boot parameter block, the File Allocation Table, the cluster
// I/O layer, the short/long directory-entry codec, the handle table, and the
// file-system operations built from them.
package fat12fs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"

	"github.com/go-fat/fat12/block"
	"github.com/go-fat/fat12/errors"
)

// SectorID and ClusterID give the two units of addressing used throughout
// this package: sectors are the block device's native unit, clusters are
// the file system's allocation unit.
type SectorID uint32
type ClusterID uint32

// Variant identifies which flavor of FAT a volume uses. Only Variant12 is
// read/write capable end to end; the others are recognized but rejected by
// Load and Create.
type Variant int

const (
	Variant12 Variant = 12
	Variant16 Variant = 16
	Variant32 Variant = 32
)

// FAT12 reserved cluster values.
const (
	// clusterFree marks a cluster as unallocated.
	clusterFree ClusterID = 0x000
	// clusterReserved is a reserved value, never assigned by this driver.
	clusterReserved ClusterID = 0x001
	// clusterBad marks a cluster as containing a bad sector.
	clusterBad ClusterID = 0xFF7
	// FATEnd is the value written to terminate a chain. Any value read back
	// that is >= FATEnd also terminates the chain.
	FATEnd ClusterID = 0xFF8
)

// RawBootSector is the on-disk, little-endian layout of the BPB common to
// all FAT variants. It deliberately excludes the variant-specific extended
// BPB (drive number, volume label, ...): this driver does not need them to
// operate.
type RawBootSector struct {
	JmpBoot           [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectorsSmall uint16
	Media             uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectorsLarge uint32
}

// RawBootSectorSize is the size, in bytes, of RawBootSector's on-disk form.
const RawBootSectorSize = 36

// BootSector extends RawBootSector with the geometry that is always derived
// from the stored fields rather than stored itself.
type BootSector struct {
	RawBootSector

	FATStart      SectorID
	RootStart     SectorID
	RootSectors   uint
	DataStart     SectorID
	ClusterSize   uint
	NumClusters   uint
	TotalSectors  uint
	DirentsPerCluster uint
	Variant       Variant
}

// DetermineVariant determines the FAT variant from the cluster count alone.
// These thresholds are Microsoft's, not arbitrary.
func DetermineVariant(numClusters uint) Variant {
	if numClusters < 4085 {
		return Variant12
	}
	if numClusters < 65525 {
		return Variant16
	}
	return Variant32
}

// DecodeBootSector parses the first RawBootSectorSize bytes of sector 0 into
// a BootSector, deriving its geometry fields and validating the result.
func DecodeBootSector(sector0 []byte) (*BootSector, error) {
	if len(sector0) < RawBootSectorSize {
		return nil, errors.ErrFileSystemCorrupted.WithMessage("boot sector shorter than BPB")
	}

	var raw RawBootSector
	if err := binary.Read(bytes.NewReader(sector0[:RawBootSectorSize]), binary.LittleEndian, &raw); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	bs := &BootSector{RawBootSector: raw}
	if err := bs.deriveGeometry(); err != nil {
		return nil, err
	}
	if err := bs.Validate(); err != nil {
		return nil, err
	}
	return bs, nil
}

// deriveGeometry fills in every field that is computed from the stored BPB
// fields rather than stored directly.
func (bs *BootSector) deriveGeometry() error {
	totalSectors := uint(bs.TotalSectorsSmall)
	if totalSectors == 0 {
		totalSectors = uint(bs.TotalSectorsLarge)
	}
	bs.TotalSectors = totalSectors

	bs.FATStart = SectorID(bs.ReservedSectors)
	fatSectors := uint(bs.NumFATs) * uint(bs.SectorsPerFAT)
	bs.RootStart = SectorID(uint(bs.ReservedSectors) + fatSectors)

	rootSectors := uint(0)
	if bs.BytesPerSector != 0 {
		rootSectors = (uint(bs.RootEntryCount)*DirentSize + uint(bs.BytesPerSector) - 1) / uint(bs.BytesPerSector)
	}
	bs.RootSectors = rootSectors
	bs.DataStart = SectorID(uint(bs.RootStart) + rootSectors)

	bs.ClusterSize = uint(bs.SectorsPerCluster) * uint(bs.BytesPerSector)
	if bs.ClusterSize > 0 {
		bs.DirentsPerCluster = bs.ClusterSize / DirentSize
	}

	dataSectors := uint(0)
	if totalSectors > uint(bs.DataStart) {
		dataSectors = totalSectors - uint(bs.DataStart)
	}
	if bs.SectorsPerCluster != 0 {
		bs.NumClusters = dataSectors / uint(bs.SectorsPerCluster)
	}
	bs.Variant = DetermineVariant(bs.NumClusters)
	return nil
}

// Validate checks the BPB invariants, collecting every violation via
// go-multierror rather than stopping at the first one, so a corrupted
// volume reports everything wrong with it at once.
func (bs *BootSector) Validate() error {
	var result *multierror.Error

	if bs.BytesPerSector != block.SectorSize {
		result = multierror.Append(result, fmt.Errorf(
			"bytes_per_sector must be %d, got %d", block.SectorSize, bs.BytesPerSector))
	}
	if bs.TotalSectorsSmall != 0 && bs.TotalSectorsLarge != 0 {
		result = multierror.Append(result, fmt.Errorf(
			"exactly one of total_sectors_small/total_sectors_large must be nonzero"))
	}
	if bs.TotalSectorsSmall == 0 && bs.TotalSectorsLarge == 0 {
		result = multierror.Append(result, fmt.Errorf(
			"total_sectors_small and total_sectors_large cannot both be zero"))
	}
	if bs.SectorsPerCluster == 0 {
		result = multierror.Append(result, fmt.Errorf("sectors_per_cluster cannot be zero"))
	}
	if bs.NumFATs == 0 {
		result = multierror.Append(result, fmt.Errorf("fat_count cannot be zero"))
	}
	if bs.SectorsPerFAT != 0 {
		bitsPerEntry := uint(12)
		capacity := uint(bs.SectorsPerFAT) * 8 * uint(bs.BytesPerSector)
		if capacity < bitsPerEntry*bs.NumClusters {
			result = multierror.Append(result, fmt.Errorf(
				"sectors_per_fat too small for %d clusters", bs.NumClusters))
		}
	}

	if result != nil {
		return errors.ErrFileSystemCorrupted.WithMessage(result.Error())
	}
	return nil
}

// Encode serializes the BPB back into a sector-sized buffer. The struct is
// written through a bytewriter.Writer wrapping the pre-sized output slice,
// populating a fixed-size region field by field.
func (bs *BootSector) Encode() ([]byte, error) {
	sector := make([]byte, bs.BytesPerSector)
	writer := bytewriter.New(sector)
	if err := binary.Write(writer, binary.LittleEndian, &bs.RawBootSector); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return sector, nil
}

// ReadBootSector loads and validates the BPB from sector 0 of partition.
func ReadBootSector(partition block.Partition) (*BootSector, error) {
	raw, err := partition.ReadBlocks(0, 1)
	if err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return DecodeBootSector(raw)
}
