package fat12fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandleTableSeedsRoot(t *testing.T) {
	table := NewHandleTable()
	assert.Equal(t, 1, table.Len())

	root, ok := table.Get(RootHandle)
	require.True(t, ok)
	assert.True(t, root.IsDir())
	assert.Equal(t, RootHandle, root.Parent)
	assert.Equal(t, rootCluster, root.FirstCluster)
}

func TestHandleTableAppendIsDenseAndOneIndexed(t *testing.T) {
	table := NewHandleTable()

	h1 := table.Append(InodeRecord{Parent: RootHandle, Type: 0})
	h2 := table.Append(InodeRecord{Parent: RootHandle, Type: AttrDirectory})

	assert.EqualValues(t, 2, h1)
	assert.EqualValues(t, 3, h2)
	assert.Equal(t, 3, table.Len())

	rec1, ok := table.Get(h1)
	require.True(t, ok)
	assert.False(t, rec1.IsDir())

	rec2, ok := table.Get(h2)
	require.True(t, ok)
	assert.True(t, rec2.IsDir())
}

func TestHandleTableGetRejectsInvalidHandles(t *testing.T) {
	table := NewHandleTable()

	_, ok := table.Get(0)
	assert.False(t, ok)

	_, ok = table.Get(Handle(table.Len() + 1))
	assert.False(t, ok)
}

func TestHandleTableAppendNeverInvalidatesExistingHandles(t *testing.T) {
	table := NewHandleTable()
	first := table.Append(InodeRecord{Parent: RootHandle})
	before, ok := table.Get(first)
	require.True(t, ok)
	beforeCluster := before.FirstCluster

	for i := 0; i < 8; i++ {
		table.Append(InodeRecord{Parent: RootHandle})
	}

	after, ok := table.Get(first)
	require.True(t, ok)
	assert.Equal(t, beforeCluster, after.FirstCluster)
}
