package fat12fs

import "time"

// Handle identifies an in-memory inode record for the lifetime of a mounted
// Volume. Handle 1 always refers to the root directory. Handles are never
// reused or invalidated once issued.
type Handle uint32

// RootHandle is the handle pre-seeded for the root directory on load.
const RootHandle Handle = 1

// noParent marks an InodeRecord whose parent is not yet known (mirrors the
// original's inode->parent = -1).
const noParent Handle = 0

// InodeRecord is the in-memory metadata for a file or directory discovered
// through readdir or created through Touch. FAT itself has no notion of an
// inode; this is purely a bookkeeping record the handle table owns.
type InodeRecord struct {
	Parent       Handle
	Type         uint8 // attribute byte; AttrDirectory bit distinguishes directories
	FirstCluster ClusterID
	Size         uint32
	AccessedAt   time.Time
	CreatedAt    time.Time
	ModifiedAt   time.Time
}

// IsDir reports whether this record describes a directory.
func (ino *InodeRecord) IsDir() bool {
	return ino.Type&AttrDirectory != 0
}

// HandleTable is a dense, append-only arena of InodeRecords: handle h maps
// to records[h-1]. Growing it never invalidates a previously issued handle,
// since entries are never removed or relocated.
type HandleTable struct {
	records []InodeRecord
}

// NewHandleTable creates a table pre-seeded with the root directory at
// RootHandle: first_cluster=0 (the root-area sentinel for FAT12/16),
// type=directory, parent=itself (so ".." on root resolves to root).
func NewHandleTable() *HandleTable {
	t := &HandleTable{}
	t.records = append(t.records, InodeRecord{
		Parent:       RootHandle,
		Type:         AttrDirectory,
		FirstCluster: rootCluster,
	})
	return t
}

// Get returns the record for h, and whether h is a valid, issued handle.
func (t *HandleTable) Get(h Handle) (*InodeRecord, bool) {
	if h == 0 || int(h) > len(t.records) {
		return nil, false
	}
	return &t.records[h-1], true
}

// Append adds a new record and returns the handle assigned to it.
func (t *HandleTable) Append(record InodeRecord) Handle {
	t.records = append(t.records, record)
	return Handle(len(t.records))
}

// Len reports how many handles have been issued, including the root.
func (t *HandleTable) Len() int {
	return len(t.records)
}
