// Package testing holds shared fixtures for fat12fs tests: in-memory
// partitions and compressed golden images, built the same way the
// teacher's test helpers are.
package testing

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/go-fat/fat12/block"
	"github.com/go-fat/fat12/utilities/compression"
)

// LoadDiskImage takes a compressed disk image and returns a stream to
// access the uncompressed data.
//
//   - Writes to the stream do not affect compressedImageBytes.
//   - The stream's size is fixed to sectorSize*totalSectors; writing past
//     the end triggers an error.
func LoadDiskImage(
	t *testing.T, compressedImageBytes []byte, sectorSize, totalSectors uint,
) io.ReadWriteSeeker {
	compressedBuf := bytes.NewBuffer(compressedImageBytes)
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(compressedBuf)
	require.NoError(t, err)

	require.Equal(
		t,
		totalSectors*sectorSize,
		uint(len(imageBytes)),
		"uncompressed image is wrong size",
	)
	return bytesextra.NewReadWriteSeeker(imageBytes)
}

// NewBlankPartition builds an in-memory block.Partition of totalSectors
// sectors, zero-filled, suitable for exercising Create/format tests.
func NewBlankPartition(totalSectors uint) block.Partition {
	backing := make([]byte, totalSectors*block.SectorSize)
	stream := bytesextra.NewReadWriteSeeker(backing)
	return block.FromReadWriteSeeker(stream, totalSectors, 0)
}

// NewRandomPartition is like NewBlankPartition but fills the backing bytes
// with random data first, so reading it before formatting yields garbage
// rather than zeros. t is used only to fail the test if the random source
// fails.
func NewRandomPartition(t *testing.T, totalSectors uint) block.Partition {
	backing := make([]byte, totalSectors*block.SectorSize)
	_, err := rand.Read(backing)
	require.NoError(t, err)

	stream := bytesextra.NewReadWriteSeeker(backing)
	return block.FromReadWriteSeeker(stream, totalSectors, 0)
}
