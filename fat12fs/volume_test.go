package fat12fs

import (
	"bytes"
	"encoding/binary"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-fat/fat12/block"
	fat12testing "github.com/go-fat/fat12/testing"
)

func TestLoadRejectsNonFAT12Variant(t *testing.T) {
	// A hand-built BPB with enough clusters to land in FAT16 territory:
	// valid per Validate, but Load must still refuse anything but FAT12.
	raw := RawBootSector{
		BytesPerSector:    block.SectorSize,
		SectorsPerCluster: 1,
		ReservedSectors:   1,
		NumFATs:           1,
		RootEntryCount:    16,
		TotalSectorsLarge: 10000,
		SectorsPerFAT:     40,
	}
	var encoded bytes.Buffer
	require.NoError(t, binary.Write(&encoded, binary.LittleEndian, &raw))
	sector := make([]byte, block.SectorSize)
	copy(sector, encoded.Bytes())

	partition := fat12testing.NewBlankPartition(10000)
	require.NoError(t, partition.WriteBlocks(0, sector))

	_, err := Load(partition)
	assert.Error(t, err)
}

func TestSetLoggerTracesMutations(t *testing.T) {
	partition := fat12testing.NewBlankPartition(2048)
	var buf bytes.Buffer

	vol, err := Create(partition, DefaultFormatOptions())
	require.NoError(t, err)
	vol.SetLogger(log.New(&buf, "", 0))

	require.NoError(t, vol.Close())
	assert.Contains(t, buf.String(), "flushing FAT")
}

func TestVolumeWithoutLoggerDoesNotPanic(t *testing.T) {
	partition := fat12testing.NewBlankPartition(2048)
	vol, err := Create(partition, DefaultFormatOptions())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		require.NoError(t, vol.Close())
	})
}
