package fat12fs

import (
	"time"

	"github.com/go-fat/fat12/errors"
)

// Stat is the metadata exchanged with Touch and returned by Fstat.
type Stat struct {
	Size       uint32
	IsDir      bool
	AccessedAt time.Time
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// DirEntry is a single logical entry returned by Readdir: a name paired
// with the handle of the file or directory it names.
type DirEntry struct {
	Name   string
	Handle Handle
}

// Read copies up to len(buf) bytes from h starting at offset into buf, and
// returns how many bytes were actually copied. It never extends a file:
// reads past the end of the file are clamped to the file's current size.
func (v *Volume) Read(h Handle, buf []byte, offset uint) (uint, error) {
	ino, err := v.inode(h)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	size := v.sizeOf(h, ino)
	length := uint(len(buf))
	if offset >= size {
		return 0, nil
	}
	if offset+length > size {
		length = size - offset
	}

	clusterSize := v.clusterSize()
	start := offset / clusterSize
	inner := offset % clusterSize
	numClusters := (length + inner) / clusterSize
	if (length+inner)%clusterSize != 0 {
		numClusters++
	}

	clusters := v.chainClusters(h, ino)
	if start+numClusters > uint(len(clusters)) {
		return 0, errors.ErrArgumentOutOfRange.WithMessage("read extends past end of chain")
	}

	staging, err := v.readClusterSpan(h, clusters, start, numClusters)
	if err != nil {
		return 0, err
	}

	copy(buf[:length], staging[inner:inner+length])
	return length, nil
}

// Write overlays buf onto h at offset, read-modify-write at cluster
// granularity. It never grows a file; writes are clamped to the file's
// current size the same way Read is. Growth happens only through Touch
// (initial allocation) and Link (directory growth).
func (v *Volume) Write(h Handle, buf []byte, offset uint) (uint, error) {
	ino, err := v.inode(h)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	size := v.sizeOf(h, ino)
	length := uint(len(buf))
	if offset >= size {
		return 0, nil
	}
	if offset+length > size {
		length = size - offset
	}

	clusterSize := v.clusterSize()
	start := offset / clusterSize
	inner := offset % clusterSize
	numClusters := (length + inner) / clusterSize
	if (length+inner)%clusterSize != 0 {
		numClusters++
	}

	clusters := v.chainClusters(h, ino)
	if start+numClusters > uint(len(clusters)) {
		return 0, errors.ErrArgumentOutOfRange.WithMessage("write extends past end of chain")
	}

	staging := make([]byte, numClusters*clusterSize)
	if _, err := v.Read(h, staging, offset-inner); err != nil {
		return 0, err
	}
	copy(staging[inner:inner+length], buf[:length])

	if err := v.writeClusterSpan(h, clusters, start, staging); err != nil {
		return 0, err
	}

	return length, nil
}

// Touch creates a new unlinked file or directory: allocates a cluster
// chain sized to st.Size (minimum one cluster), registers a new handle for
// it, and returns that handle. The record's parent is left unset until a
// subsequent Link call.
func (v *Volume) Touch(st Stat) (Handle, error) {
	clusterSize := v.clusterSize()
	numClusters := uint(1)
	if st.Size > uint32(clusterSize) {
		numClusters = uint(st.Size) / clusterSize
		if uint(st.Size)%clusterSize != 0 {
			numClusters++
		}
	}

	total := uint(v.boot.NumClusters)
	first, err := v.table.Extend(FATEnd, total)
	if err != nil {
		return 0, err
	}
	current := first
	for i := uint(1); i < numClusters; i++ {
		next, err := v.table.Extend(current, total)
		if err != nil {
			return 0, err
		}
		current = next
	}

	attr := AttrFromMode(st.IsDir)
	record := InodeRecord{
		Parent:       noParent,
		Type:         attr,
		FirstCluster: first,
		Size:         st.Size,
		AccessedAt:   st.AccessedAt,
		CreatedAt:    st.CreatedAt,
		ModifiedAt:   st.ModifiedAt,
	}
	return v.handles.Append(record), nil
}

// Fstat returns the recorded metadata for h.
func (v *Volume) Fstat(h Handle) (Stat, error) {
	ino, err := v.inode(h)
	if err != nil {
		return Stat{}, err
	}
	return Stat{
		Size:       ino.Size,
		IsDir:      ino.IsDir(),
		AccessedAt: ino.AccessedAt,
		CreatedAt:  ino.CreatedAt,
		ModifiedAt: ino.ModifiedAt,
	}, nil
}

// readDirentBuffer reads the full contents of directory h into memory,
// returning it as a single contiguous buffer. For the root directory this
// is one whole-region read; for a subdirectory it is one cluster at a time.
func (v *Volume) readDirentBuffer(h Handle, ino *InodeRecord) ([]byte, error) {
	clusters := v.chainClusters(h, ino)
	return v.readClusterSpan(h, clusters, 0, uint(len(clusters)))
}

// direntSlot is a located directory-entry block within a directory's raw
// buffer: a run of long-name fragments (possibly empty) followed by the
// short entry they describe.
type direntSlot struct {
	longStart int // byte offset of the first long-name fragment, or shortOffset if none
	shortOffset int
	name      string
	short     RawDirent
}

// walkDirents scans buf for every live (non-deleted) short entry, in disk
// order, and returns a slot for each with its resolved name. It stops at
// the end-of-directory marker.
func walkDirents(buf []byte) []direntSlot {
	var slots []direntSlot
	var pendingLong []RawLongNameEntry
	pendingStart := -1

	for off := 0; off+DirentSize <= len(buf); off += DirentSize {
		raw := DecodeRawDirent(buf[off : off+DirentSize])
		if raw.IsEnd() {
			break
		}
		if raw.IsDeleted() {
			pendingLong = nil
			pendingStart = -1
			continue
		}
		if raw.IsLongName() {
			if pendingStart == -1 {
				pendingStart = off
			}
			pendingLong = append(pendingLong, DecodeRawLongNameEntry(buf[off:off+DirentSize]))
			continue
		}

		start := off
		var name string
		if len(pendingLong) > 0 {
			start = pendingStart
			name = DecodeLongName(pendingLong)
		} else {
			name = shortNameToString(raw.Name, raw.AttributeFlags&AttrDirectory != 0)
		}

		slots = append(slots, direntSlot{
			longStart:   start,
			shortOffset: off,
			name:        name,
			short:       raw,
		})
		pendingLong = nil
		pendingStart = -1
	}
	return slots
}

// Readdir returns the n-th logical entry of directory dir: n=0 and n=1 are
// the synthetic "." and ".." entries; n>=2 walks the on-disk entries and
// registers a new handle for the entry returned. Every such call appends a
// new handle: existing handles are not looked up, so reading the same entry
// twice yields two different handles. Returns errors.ErrNotFound once past
// the last entry.
func (v *Volume) Readdir(dir Handle, n uint) (DirEntry, error) {
	dirIno, err := v.inode(dir)
	if err != nil {
		return DirEntry{}, err
	}
	if !dirIno.IsDir() {
		return DirEntry{}, errors.ErrNotADirectory
	}

	if n == 0 {
		return DirEntry{Name: ".", Handle: dir}, nil
	}
	if n == 1 {
		return DirEntry{Name: "..", Handle: dirIno.Parent}, nil
	}

	target := n
	if dir != RootHandle {
		target += 2
	}

	buf, err := v.readDirentBuffer(dir, dirIno)
	if err != nil {
		return DirEntry{}, err
	}
	slots := walkDirents(buf)

	index := target - 2
	if index >= uint(len(slots)) {
		return DirEntry{}, errors.ErrNotFound
	}
	slot := slots[index]

	record := InodeRecord{
		Parent:       dir,
		Type:         slot.short.AttributeFlags,
		FirstCluster: slot.short.Cluster(),
		Size:         slot.short.Size,
		AccessedAt:   DateFromInt(slot.short.AccessedDate),
		CreatedAt:    TimestampFromParts(slot.short.CreatedDate, slot.short.CreatedTime, slot.short.CreatedTenths),
		ModifiedAt:   TimestampFromParts(slot.short.ModifiedDate, slot.short.ModifiedTime, 0),
	}
	h := v.handles.Append(record)
	return DirEntry{Name: slot.name, Handle: h}, nil
}

// Link writes a directory entry for h named name into directory dir. If
// there is no run of free slots big enough, it extends dir by one cluster;
// the root directory cannot be extended, and Link then returns
// errors.ErrNoSpaceOnDevice.
// Names "." and ".." are written as literal short entries with no
// long-name block, matching the original's special-casing.
func (v *Volume) Link(h Handle, dir Handle, name string) error {
	dirIno, err := v.inode(dir)
	if err != nil {
		return err
	}
	ino, err := v.inode(h)
	if err != nil {
		return err
	}
	ino.Parent = dir

	buf, err := v.readDirentBuffer(dir, dirIno)
	if err != nil {
		return err
	}

	isDotEntry := name == "." || name == ".."
	needed := 1
	if !isDotEntry {
		needed += longNameFragmentCount(name)
	}

	insertAt, extend := findFreeRun(buf, needed)

	if extend {
		// The root directory area is a fixed-size region, not a cluster
		// chain: it cannot be grown the way a subdirectory can.
		if dir == RootHandle {
			return errors.ErrNoSpaceOnDevice.WithMessage("root directory is full")
		}

		clusters := v.chainClusters(dir, dirIno)
		last := clusters[len(clusters)-1]
		if _, err := v.table.Extend(last, uint(v.boot.NumClusters)); err != nil {
			return err
		}

		newCluster := make([]byte, v.clusterSize())
		buf = append(buf, newCluster...)
	}

	var short RawDirent
	if isDotEntry {
		var nameBytes [11]byte
		for i := range nameBytes {
			nameBytes[i] = ' '
		}
		copy(nameBytes[:], name)
		short.Name = nameBytes
	} else {
		shortName := MakeShortName(name)
		fragments := EncodeLongName(name, shortName)
		off := insertAt
		for _, f := range fragments {
			copy(buf[off:off+DirentSize], f.Encode())
			off += DirentSize
		}
		insertAt = off
		short.Name = shortName
	}

	short.AttributeFlags = ino.Type
	short.EntryType = 0
	short.CreatedTenths = 0
	short.CreatedDate = dateToInt(ino.CreatedAt)
	short.CreatedTime = timeToInt(ino.CreatedAt)
	short.AccessedDate = dateToInt(ino.AccessedAt)
	short.ModifiedDate = dateToInt(ino.ModifiedAt)
	short.ModifiedTime = timeToInt(ino.ModifiedAt)
	short.SetCluster(ino.FirstCluster)
	short.Size = ino.Size

	copy(buf[insertAt:insertAt+DirentSize], short.Encode())

	return v.writeDirentBuffer(dir, dirIno, buf)
}

// findFreeRun scans buf for a run of `needed` consecutive free (deleted or
// past-end) slots. If found within the existing buffer, it returns the
// byte offset and extend=false. If the end-of-directory marker is reached
// but the block does not fit before the end of buf, it returns the
// marker's offset and extend=true. If no free slot is found at all, it
// returns len(buf) (append at the end) and extend=true. extend=true means
// the directory must grow by one cluster.
func findFreeRun(buf []byte, needed int) (offset int, extend bool) {
	run := 0
	runStart := 0
	for off := 0; off+DirentSize <= len(buf); off += DirentSize {
		raw := DecodeRawDirent(buf[off : off+DirentSize])
		if raw.IsEnd() {
			return off, off+needed*DirentSize > len(buf)
		}
		if raw.IsDeleted() {
			if run == 0 {
				runStart = off
			}
			run++
			if run == needed {
				return runStart, false
			}
		} else {
			run = 0
		}
	}
	return len(buf), true
}

// writeDirentBuffer writes buf back to directory dir's cluster chain. For
// the root directory this is one whole-region write; for a subdirectory it
// is one cluster at a time.
func (v *Volume) writeDirentBuffer(dir Handle, dirIno *InodeRecord, buf []byte) error {
	clusters := v.chainClusters(dir, dirIno)
	return v.writeClusterSpan(dir, clusters, 0, buf)
}

// Unlink removes the n-th entry of directory dir: n must be >= 2 (entries
// 0 and 1 are the synthetic "." and ".."). It compacts the directory
// buffer over the removed entry's long-name-plus-short-entry block and
// frees the removed file's entire cluster chain.
func (v *Volume) Unlink(dir Handle, n uint) error {
	if n < 2 {
		return errors.ErrInvalidArgument.WithMessage("cannot unlink . or ..")
	}

	entry, err := v.Readdir(dir, n)
	if err != nil {
		return err
	}
	v.trace("unlinking %q from directory handle %d", entry.Name, dir)
	target, err := v.inode(entry.Handle)
	if err != nil {
		return err
	}

	dirIno, err := v.inode(dir)
	if err != nil {
		return err
	}
	buf, err := v.readDirentBuffer(dir, dirIno)
	if err != nil {
		return err
	}
	slots := walkDirents(buf)

	targetN := n
	if dir != RootHandle {
		targetN += 2
	}
	index := targetN - 2
	if index >= uint(len(slots)) {
		return errors.ErrNotFound
	}
	slot := slots[index]
	blockEnd := slot.shortOffset + DirentSize

	compacted := make([]byte, 0, len(buf))
	compacted = append(compacted, buf[:slot.longStart]...)
	compacted = append(compacted, buf[blockEnd:]...)
	compacted = append(compacted, make([]byte, len(buf)-len(compacted))...)

	if err := v.writeDirentBuffer(dir, dirIno, compacted); err != nil {
		return err
	}

	v.table.Truncate(target.FirstCluster)
	return nil
}

// Mkdir creates a new directory named name under parent: a fresh
// directory-typed inode of one zeroed cluster, linked into parent, then
// seeded with "." (pointing to itself) and ".." (pointing to parent).
func (v *Volume) Mkdir(parent Handle, name string) error {
	v.trace("creating directory %q under handle %d", name, parent)
	now := time.Now()
	h, err := v.Touch(Stat{IsDir: true, AccessedAt: now, CreatedAt: now, ModifiedAt: now})
	if err != nil {
		return err
	}

	if err := v.Link(h, parent, name); err != nil {
		return err
	}

	ino, err := v.inode(h)
	if err != nil {
		return err
	}
	zero := make([]byte, v.clusterSize())
	if err := v.boot.WriteClusters(v.partition, ino.FirstCluster, zero); err != nil {
		return err
	}

	if err := v.Link(h, h, "."); err != nil {
		return err
	}
	parentIno, err := v.inode(parent)
	if err != nil {
		return err
	}
	grandparent := parentIno.Parent
	if err := v.Link(parent, h, ".."); err != nil {
		return err
	}
	// Link records dir as the parent of the handle it links; the "." and
	// ".." entries must leave both handles' parents as they were.
	ino.Parent = parent
	parentIno.Parent = grandparent
	return nil
}

// Rmdir removes the n-th entry of dir, provided it is an empty directory
// (contains nothing beyond "." and "..").
func (v *Volume) Rmdir(dir Handle, n uint) error {
	entry, err := v.Readdir(dir, n)
	if err != nil {
		return err
	}

	if _, err := v.Readdir(entry.Handle, 2); err == nil {
		return errors.ErrDirectoryNotEmpty
	}

	return v.Unlink(dir, n)
}
