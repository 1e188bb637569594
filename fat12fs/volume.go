package fat12fs

import (
	"log"

	"github.com/go-fat/fat12/block"
	"github.com/go-fat/fat12/errors"
)

// Volume is a mounted FAT12 filesystem: the BPB, the in-memory FAT mirror,
// the handle table, and the partition backing them. It owns all mutable
// state; nothing here is safe to share across concurrent callers.
type Volume struct {
	partition block.Partition
	boot      *BootSector
	table     *Table
	handles   *HandleTable
	logger    *log.Logger
}

func newVolume(partition block.Partition, bs *BootSector, table *Table) *Volume {
	return &Volume{
		partition: partition,
		boot:      bs,
		table:     table,
		handles:   NewHandleTable(),
	}
}

// SetLogger attaches a trace sink: operations that mutate on-disk state
// (FAT flush, unlink's directory compaction, directory creation) log a
// one-line message through it. Create's format message is not seen, since
// the Volume it returns has no logger until SetLogger is called. A nil
// logger, the default, disables tracing entirely.
func (v *Volume) SetLogger(logger *log.Logger) {
	v.logger = logger
}

// trace logs through v.logger if one is attached; otherwise it is a no-op.
func (v *Volume) trace(format string, args ...interface{}) {
	if v.logger != nil {
		v.logger.Printf(format, args...)
	}
}

// Load mounts an existing FAT12 volume from partition: reads and validates
// the BPB, then reads the first on-disk FAT copy in full.
func Load(partition block.Partition) (*Volume, error) {
	bs, err := ReadBootSector(partition)
	if err != nil {
		return nil, err
	}
	if bs.Variant != Variant12 {
		return nil, errors.ErrNotImplemented.WithMessage("only FAT12 volumes are read/write capable")
	}

	fatData, err := partition.ReadBlocks(uint(bs.FATStart), uint(bs.SectorsPerFAT))
	if err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	return newVolume(partition, bs, LoadTable(fatData)), nil
}

// BootSector exposes the volume's geometry.
func (v *Volume) BootSector() *BootSector {
	return v.boot
}

// Table exposes the volume's in-memory FAT mirror.
func (v *Volume) Table() *Table {
	return v.table
}

// Handles exposes the volume's handle table.
func (v *Volume) Handles() *HandleTable {
	return v.handles
}

// Close flushes the in-memory FAT to every on-disk copy. The handle table
// and FAT buffer are simply dropped with the Volume; there is nothing else
// to release.
func (v *Volume) Close() error {
	v.trace("flushing FAT to %d on-disk copies", v.boot.NumFATs)
	return v.table.Flush(v.partition, v.boot)
}

// clusterSize is the number of bytes in one cluster.
func (v *Volume) clusterSize() uint {
	return v.boot.ClusterSize
}

// inode resolves h to its record, or errors.ErrNotFound if h is invalid.
func (v *Volume) inode(h Handle) (*InodeRecord, error) {
	ino, ok := v.handles.Get(h)
	if !ok {
		return nil, errors.ErrNotFound.WithMessage("invalid handle")
	}
	return ino, nil
}

// chainClusters returns every cluster belonging to h, including the
// synthetic [0, 1, ..., root_clusters) range for the root directory.
func (v *Volume) chainClusters(h Handle, ino *InodeRecord) []ClusterID {
	if h == RootHandle {
		rootClusters := v.rootClusterCount()
		clusters := make([]ClusterID, rootClusters)
		for i := range clusters {
			clusters[i] = ClusterID(i)
		}
		return clusters
	}
	return v.table.ChainClusters(ino.FirstCluster)
}

// rootClusterCount reports how many "virtual clusters" worth of entries the
// root directory area holds, for size-accounting purposes only: the root
// area is still read/written as a single region (see ReadClusters).
func (v *Volume) rootClusterCount() uint {
	if v.boot.ClusterSize == 0 {
		return 0
	}
	total := v.boot.RootSectors * block.SectorSize
	count := total / v.boot.ClusterSize
	if total%v.boot.ClusterSize != 0 {
		count++
	}
	if count == 0 {
		count = 1
	}
	return count
}

// readClusterSpan reads numClusters clusters worth of data starting at the
// start-th entry of clusters. The root directory has no real per-cluster
// addressing (its clusters are a synthetic [0, rootClusterCount()) range
// for size accounting only), so for h == RootHandle it reads the whole
// region in a single ReadClusters call and slices out the requested span,
// rather than indexing clusters one at a time.
func (v *Volume) readClusterSpan(h Handle, clusters []ClusterID, start, numClusters uint) ([]byte, error) {
	clusterSize := v.clusterSize()
	if h == RootHandle {
		full, err := v.boot.ReadClusters(v.partition, rootCluster, 0)
		if err != nil {
			return nil, err
		}
		lo := start * clusterSize
		hi := lo + numClusters*clusterSize
		if hi > uint(len(full)) {
			hi = uint(len(full))
		}
		if lo > uint(len(full)) {
			lo = uint(len(full))
		}
		return full[lo:hi], nil
	}

	staging := make([]byte, 0, numClusters*clusterSize)
	for i := start; i < start+numClusters; i++ {
		data, err := v.boot.ReadClusters(v.partition, clusters[i], 1)
		if err != nil {
			return nil, err
		}
		staging = append(staging, data...)
	}
	return staging, nil
}

// writeClusterSpan writes data back starting at the start-th entry of
// clusters. As with readClusterSpan, the root directory is written as one
// whole-region WriteClusters call (read-modify-write against the current
// on-disk contents) instead of per-cluster calls.
func (v *Volume) writeClusterSpan(h Handle, clusters []ClusterID, start uint, data []byte) error {
	clusterSize := v.clusterSize()
	if h == RootHandle {
		full, err := v.boot.ReadClusters(v.partition, rootCluster, 0)
		if err != nil {
			return err
		}
		lo := start * clusterSize
		hi := lo + uint(len(data))
		if hi > uint(len(full)) {
			hi = uint(len(full))
		}
		copy(full[lo:hi], data)
		return v.boot.WriteClusters(v.partition, rootCluster, full)
	}

	for i := uint(0); i*clusterSize < uint(len(data)); i++ {
		chunkEnd := (i + 1) * clusterSize
		if chunkEnd > uint(len(data)) {
			chunkEnd = uint(len(data))
		}
		chunk := data[i*clusterSize : chunkEnd]
		if err := v.boot.WriteClusters(v.partition, clusters[start+i], chunk); err != nil {
			return err
		}
	}
	return nil
}

// sizeOf returns the logical size, in bytes, used for clamping reads and
// writes: the stored size, or for directories (size 0 on disk), the chain
// length times the cluster size.
func (v *Volume) sizeOf(h Handle, ino *InodeRecord) uint {
	if ino.Size != 0 {
		return uint(ino.Size)
	}
	if h == RootHandle {
		return v.rootClusterCount() * v.clusterSize()
	}
	return v.table.ChainLength(ino.FirstCluster) * v.clusterSize()
}
