package fat12fs

import (
	"github.com/boljen/go-bitmap"
	"github.com/hashicorp/go-multierror"

	"github.com/go-fat/fat12/block"
	"github.com/go-fat/fat12/errors"
)

// Table is an in-memory copy of a single File Allocation Table, packed in
// its on-disk 12-bit-per-entry form. It is grounded directly on the
// original driver's fat_read_fat/fat_write_fat pair: each entry straddles a
// byte boundary, so every access reads or rewrites the 16-bit word covering
// it and keeps the nibble belonging to its neighbor untouched.
type Table struct {
	data []byte
	free bitmap.Bitmap
}

// NewTable allocates a zeroed table backed by a buffer of sizeBytes bytes
// (NumFATs-independent; a Volume holds a single Table and Flush writes it
// to every on-disk copy).
func NewTable(sizeBytes uint) *Table {
	return &Table{data: make([]byte, sizeBytes)}
}

// LoadTable wraps a buffer already read from disk.
func LoadTable(data []byte) *Table {
	return &Table{data: data}
}

// Bytes exposes the packed on-disk representation, ready to write back.
func (t *Table) Bytes() []byte {
	return t.data
}

// Get reads the 12-bit entry for cluster.
func (t *Table) Get(cluster uint) ClusterID {
	offset := cluster + cluster/2
	if offset+1 >= uint(len(t.data)) {
		return FATEnd
	}
	value := uint16(t.data[offset]) | uint16(t.data[offset+1])<<8
	if cluster&1 != 0 {
		value >>= 4
	} else {
		value &= 0x0FFF
	}
	return ClusterID(value)
}

// Set writes the 12-bit entry for cluster, preserving the neighboring
// nibble it shares a byte with.
func (t *Table) Set(cluster uint, set ClusterID) {
	offset := cluster + cluster/2
	if offset+1 >= uint(len(t.data)) {
		return
	}
	value := uint16(t.data[offset]) | uint16(t.data[offset+1])<<8
	if cluster&1 != 0 {
		value = (value & 0x000F) | (uint16(set) << 4)
	} else {
		value = (value & 0xF000) | (uint16(set) & 0x0FFF)
	}
	t.data[offset] = byte(value)
	t.data[offset+1] = byte(value >> 8)

	if t.free != nil {
		t.free.Set(int(cluster), set == clusterFree)
	}
}

// buildFreeCache constructs the go-bitmap-backed free-cluster cache used by
// FindFree, scanning every entry once. Called lazily so a Table that never
// allocates never pays for it.
func (t *Table) buildFreeCache(numClusters uint) {
	t.free = bitmap.New(int(numClusters))
	for i := uint(0); i < numClusters; i++ {
		t.free.Set(int(i), t.Get(i) == clusterFree)
	}
}

// FindFree returns the first free cluster at index >= 3, matching the
// original's fat_find_free, which skips clusters 0-2 outright (0 and 1 are
// reserved, and the scan itself starts at 3 rather than 2 -- a quirk
// preserved here rather than "fixed", since it costs at most one cluster of
// capacity and changing it would make images this driver formats diverge
// from ones the original tool formats). Returns 0 if the volume is full.
func (t *Table) FindFree(numClusters uint) uint {
	if t.free == nil {
		t.buildFreeCache(numClusters)
	}
	for i := uint(3); i < numClusters; i++ {
		if t.free.Get(int(i)) {
			return i
		}
	}
	return 0
}

// ChainClusters walks the cluster chain starting at start and returns every
// cluster in it, in order. An empty chain (start already >= FATEnd) yields
// an empty, non-nil slice.
func (t *Table) ChainClusters(start ClusterID) []ClusterID {
	clusters := make([]ClusterID, 0, 8)
	cluster := start
	for cluster != clusterFree && cluster < FATEnd {
		clusters = append(clusters, cluster)
		cluster = t.Get(uint(cluster))
	}
	return clusters
}

// ChainLength counts the clusters in the chain starting at start without
// allocating the slice ChainClusters would.
func (t *Table) ChainLength(start ClusterID) uint {
	count := uint(0)
	cluster := start
	for cluster != clusterFree && cluster < FATEnd {
		count++
		cluster = t.Get(uint(cluster))
	}
	return count
}

// Truncate frees every cluster in the chain starting at start, leaving all
// of them marked clusterFree.
func (t *Table) Truncate(start ClusterID) {
	cluster := start
	for cluster != clusterFree && cluster < FATEnd {
		next := t.Get(uint(cluster))
		t.Set(uint(cluster), clusterFree)
		cluster = next
	}
}

// Extend appends a newly allocated cluster to the end of the chain starting
// at start (or starts a new one, if start is already FATEnd/free) and
// returns the cluster appended. It returns errors.ErrNoSpaceOnDevice if the
// volume has no free clusters left.
func (t *Table) Extend(start ClusterID, numClusters uint) (ClusterID, error) {
	next := t.FindFree(numClusters)
	if next == 0 {
		return 0, errors.ErrNoSpaceOnDevice.WithMessage("no free clusters")
	}

	t.Set(next, FATEnd)
	if start == clusterFree || start >= FATEnd {
		return ClusterID(next), nil
	}

	tail := start
	for {
		n := t.Get(uint(tail))
		if n == clusterFree || n >= FATEnd {
			break
		}
		tail = n
	}
	t.Set(uint(tail), ClusterID(next))
	return ClusterID(next), nil
}

// Flush writes this table to every one of bs.NumFATs on-disk copies,
// aggregating any per-copy failure via go-multierror rather than stopping
// at the first bad copy, mirroring the original's fat_hook_close loop that
// writes the table to each FAT copy in turn.
func (t *Table) Flush(partition block.Partition, bs *BootSector) error {
	sectorsPerFAT := uint(bs.SectorsPerFAT)
	var result *multierror.Error

	for copyIndex := uint(0); copyIndex < uint(bs.NumFATs); copyIndex++ {
		copyStart := uint(bs.FATStart) + copyIndex*sectorsPerFAT
		if err := partition.WriteBlocks(copyStart, t.data); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if result != nil {
		return errors.ErrIOFailed.WrapError(result)
	}
	return nil
}
