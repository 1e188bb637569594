package fat12fs

import (
	"github.com/go-fat/fat12/block"
	"github.com/go-fat/fat12/errors"
)

// rootCluster is the synthetic cluster number meaning "the root directory
// area" for FAT12/16, as opposed to a real data cluster (>= 2).
const rootCluster ClusterID = 0

// clusterStartSector maps a cluster number to the first sector of its
// on-disk region, branching between the root area and the data area
// exactly as the original's fat_readclusters/fat_writeclusters do.
func (bs *BootSector) clusterStartSector(cluster ClusterID) (SectorID, error) {
	switch {
	case cluster == rootCluster:
		return bs.RootStart, nil
	case cluster == 1 || uint(cluster) >= bs.NumClusters+2:
		return 0, errors.ErrArgumentOutOfRange.WithMessage("invalid cluster number")
	default:
		offset := (uint(cluster) - 2) * uint(bs.SectorsPerCluster)
		return SectorID(uint(bs.DataStart) + offset), nil
	}
}

// ReadClusters reads count whole clusters, starting at cluster n, from
// partition. Cluster 0 reads from the root directory area; clusters >= 2
// read from the data area. count is expressed in clusters and converted to
// sectors before the underlying block read; for cluster 0, count is ignored
// and the whole root directory area is read.
func (bs *BootSector) ReadClusters(partition block.Partition, n ClusterID, count uint) ([]byte, error) {
	startSector, err := bs.clusterStartSector(n)
	if err != nil {
		return nil, err
	}

	var sectorCount uint
	if n == rootCluster {
		sectorCount = bs.RootSectors
	} else {
		sectorCount = count * uint(bs.SectorsPerCluster)
	}

	return partition.ReadBlocks(uint(startSector), sectorCount)
}

// WriteClusters writes data, a whole number of clusters, to partition
// starting at cluster n. See ReadClusters for the root/data branching.
func (bs *BootSector) WriteClusters(partition block.Partition, n ClusterID, data []byte) error {
	startSector, err := bs.clusterStartSector(n)
	if err != nil {
		return err
	}
	return partition.WriteBlocks(uint(startSector), data)
}
