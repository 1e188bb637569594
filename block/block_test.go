package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newMemoryPartition(totalSectors uint) Partition {
	backing := make([]byte, totalSectors*SectorSize)
	stream := bytesextra.NewReadWriteSeeker(backing)
	return FromReadWriteSeeker(stream, totalSectors, 0)
}

func TestWriteThenReadBlocksRoundTrip(t *testing.T) {
	p := newMemoryPartition(8)

	data := make([]byte, 3*SectorSize)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, p.WriteBlocks(2, data))

	readBack, err := p.ReadBlocks(2, 3)
	require.NoError(t, err)
	assert.Equal(t, data, readBack)
}

func TestLengthReportsTotalSectors(t *testing.T) {
	p := newMemoryPartition(40)
	assert.EqualValues(t, 40, p.Length())
}

func TestReadBlocksRejectsOutOfRange(t *testing.T) {
	p := newMemoryPartition(4)

	_, err := p.ReadBlocks(3, 2)
	assert.Error(t, err)

	_, err = p.ReadBlocks(10, 1)
	assert.Error(t, err)
}

func TestWriteBlocksRejectsMisalignedData(t *testing.T) {
	p := newMemoryPartition(4)
	err := p.WriteBlocks(0, make([]byte, SectorSize+1))
	assert.Error(t, err)
}

func TestReadBlocksRejectsZeroCount(t *testing.T) {
	p := newMemoryPartition(4)
	_, err := p.ReadBlocks(0, 0)
	assert.Error(t, err)
}

func TestFromReadWriteSeekerHonorsStartOffset(t *testing.T) {
	backing := make([]byte, 4*SectorSize)
	stream := bytesextra.NewReadWriteSeeker(backing)

	// Carve a 2-sector partition starting one sector into the backing
	// stream, the way a partition table entry would.
	p := FromReadWriteSeeker(stream, 2, SectorSize)

	data := make([]byte, SectorSize)
	for i := range data {
		data[i] = 0xAB
	}
	require.NoError(t, p.WriteBlocks(0, data))

	readBack, err := p.ReadBlocks(0, 1)
	require.NoError(t, err)
	assert.Equal(t, data, readBack)

	assert.Equal(t, data, backing[SectorSize:2*SectorSize])
}
