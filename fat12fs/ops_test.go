package fat12fs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fat12errors "github.com/go-fat/fat12/errors"
	fat12testing "github.com/go-fat/fat12/testing"
)

func newTestVolume(t *testing.T) *Volume {
	t.Helper()
	partition := fat12testing.NewBlankPartition(2048)
	vol, err := Create(partition, DefaultFormatOptions())
	require.NoError(t, err)
	return vol
}

func TestEmptyRootHasOnlyDotEntries(t *testing.T) {
	vol := newTestVolume(t)

	dot, err := vol.Readdir(RootHandle, 0)
	require.NoError(t, err)
	assert.Equal(t, ".", dot.Name)
	assert.Equal(t, RootHandle, dot.Handle)

	dotdot, err := vol.Readdir(RootHandle, 1)
	require.NoError(t, err)
	assert.Equal(t, "..", dotdot.Name)
	assert.Equal(t, RootHandle, dotdot.Handle)

	_, err = vol.Readdir(RootHandle, 2)
	require.Error(t, err)
	assert.True(t, fat12errors.ErrNotFound.IsSameError(err))
}

func TestTouchAllocatesClusterChainSizedToContent(t *testing.T) {
	vol := newTestVolume(t)

	size := vol.clusterSize()*2 + 10
	h, err := vol.Touch(Stat{Size: uint32(size)})
	require.NoError(t, err)

	ino, err := vol.inode(h)
	require.NoError(t, err)
	chain := vol.table.ChainClusters(ino.FirstCluster)
	assert.Len(t, chain, 3)
}

func TestFstatReturnsRecordedMetadata(t *testing.T) {
	vol := newTestVolume(t)
	now := time.Now().Truncate(2 * time.Second)

	h, err := vol.Touch(Stat{Size: 100, CreatedAt: now, ModifiedAt: now, AccessedAt: now})
	require.NoError(t, err)

	st, err := vol.Fstat(h)
	require.NoError(t, err)
	assert.EqualValues(t, 100, st.Size)
	assert.False(t, st.IsDir)
}

func TestLinkThenReaddirFindsEntry(t *testing.T) {
	vol := newTestVolume(t)

	h, err := vol.Touch(Stat{Size: 10})
	require.NoError(t, err)
	require.NoError(t, vol.Link(h, RootHandle, "hello.txt"))

	entry, err := vol.Readdir(RootHandle, 2)
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", entry.Name)

	_, err = vol.Readdir(RootHandle, 3)
	assert.True(t, fat12errors.ErrNotFound.IsSameError(err))
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	vol := newTestVolume(t)

	payload := make([]byte, vol.clusterSize())
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	h, err := vol.Touch(Stat{Size: uint32(len(payload))})
	require.NoError(t, err)

	n, err := vol.Write(h, payload, 0)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)

	readBack := make([]byte, len(payload))
	n, err = vol.Read(h, readBack, 0)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)
	assert.Equal(t, payload, readBack)
}

func TestReadClampsPastEndOfFile(t *testing.T) {
	vol := newTestVolume(t)
	h, err := vol.Touch(Stat{Size: 10})
	require.NoError(t, err)

	buf := make([]byte, 100)
	n, err := vol.Read(h, buf, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	n, err = vol.Read(h, buf, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMkdirCreatesNavigableDirectory(t *testing.T) {
	vol := newTestVolume(t)

	require.NoError(t, vol.Mkdir(RootHandle, "subdir"))

	entry, err := vol.Readdir(RootHandle, 2)
	require.NoError(t, err)
	assert.Equal(t, "subdir", entry.Name)

	dot, err := vol.Readdir(entry.Handle, 0)
	require.NoError(t, err)
	assert.Equal(t, entry.Handle, dot.Handle)

	dotdot, err := vol.Readdir(entry.Handle, 1)
	require.NoError(t, err)
	assert.Equal(t, RootHandle, dotdot.Handle)

	_, err = vol.Readdir(entry.Handle, 2)
	assert.True(t, fat12errors.ErrNotFound.IsSameError(err))
}

func TestUnlinkRemovesEntry(t *testing.T) {
	vol := newTestVolume(t)

	h, err := vol.Touch(Stat{Size: 10})
	require.NoError(t, err)
	require.NoError(t, vol.Link(h, RootHandle, "doomed.txt"))

	require.NoError(t, vol.Unlink(RootHandle, 2))

	_, err = vol.Readdir(RootHandle, 2)
	assert.True(t, fat12errors.ErrNotFound.IsSameError(err))
}

func TestUnlinkRejectsDotEntries(t *testing.T) {
	vol := newTestVolume(t)
	err := vol.Unlink(RootHandle, 0)
	require.Error(t, err)
	err = vol.Unlink(RootHandle, 1)
	require.Error(t, err)
}

func TestRmdirRejectsNonEmptyDirectory(t *testing.T) {
	vol := newTestVolume(t)
	require.NoError(t, vol.Mkdir(RootHandle, "subdir"))

	entry, err := vol.Readdir(RootHandle, 2)
	require.NoError(t, err)

	h, err := vol.Touch(Stat{Size: 1})
	require.NoError(t, err)
	require.NoError(t, vol.Link(h, entry.Handle, "child.txt"))

	err = vol.Rmdir(RootHandle, 2)
	require.Error(t, err)
	assert.True(t, fat12errors.ErrDirectoryNotEmpty.IsSameError(err))
}

func TestRmdirRemovesEmptyDirectory(t *testing.T) {
	vol := newTestVolume(t)
	require.NoError(t, vol.Mkdir(RootHandle, "subdir"))

	require.NoError(t, vol.Rmdir(RootHandle, 2))

	_, err := vol.Readdir(RootHandle, 2)
	assert.True(t, fat12errors.ErrNotFound.IsSameError(err))
}
