package fat12fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-fat/fat12/block"
)

func TestDetermineVariantThresholds(t *testing.T) {
	assert.Equal(t, Variant12, DetermineVariant(0))
	assert.Equal(t, Variant12, DetermineVariant(4084))
	assert.Equal(t, Variant16, DetermineVariant(4085))
	assert.Equal(t, Variant16, DetermineVariant(65524))
	assert.Equal(t, Variant32, DetermineVariant(65525))
}

func TestBootSectorEncodeDecodeRoundTrip(t *testing.T) {
	bs, err := NewBootSectorFromGeometry(2048, DefaultFormatOptions())
	require.NoError(t, err)

	sector, err := bs.Encode()
	require.NoError(t, err)
	assert.Len(t, sector, block.SectorSize)

	decoded, err := DecodeBootSector(sector)
	require.NoError(t, err)

	assert.Equal(t, bs.RawBootSector, decoded.RawBootSector)
	assert.Equal(t, bs.NumClusters, decoded.NumClusters)
	assert.Equal(t, bs.FATStart, decoded.FATStart)
	assert.Equal(t, bs.RootStart, decoded.RootStart)
	assert.Equal(t, bs.DataStart, decoded.DataStart)
	assert.Equal(t, Variant12, decoded.Variant)
}

func TestDecodeBootSectorTooShort(t *testing.T) {
	_, err := DecodeBootSector(make([]byte, 10))
	require.Error(t, err)
}

func TestValidateAggregatesEveryViolation(t *testing.T) {
	bs := &BootSector{}
	// Every field left zero, so every Validate check should fail and all of
	// them should show up in the one returned error rather than just the
	// first.
	err := bs.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "bytes_per_sector")
	assert.Contains(t, msg, "sectors_per_cluster")
	assert.Contains(t, msg, "fat_count")
}

func TestValidateAcceptsWellFormedGeometry(t *testing.T) {
	bs, err := NewBootSectorFromGeometry(2048, DefaultFormatOptions())
	require.NoError(t, err)
	assert.NoError(t, bs.Validate())
}

func TestValidateRejectsBothSectorCountFieldsSet(t *testing.T) {
	bs, err := NewBootSectorFromGeometry(2048, DefaultFormatOptions())
	require.NoError(t, err)

	bs.TotalSectorsLarge = uint32(bs.TotalSectors)
	err = bs.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of")
}
