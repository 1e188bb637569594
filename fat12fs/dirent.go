package fat12fs

import (
	"encoding/binary"
	"strings"
	"time"
)

// Directory-entry attribute flags.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolume    = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolume
)

// DirentSize is the size, in bytes, of a single 32-byte directory entry,
// short or long-name.
const DirentSize = 32

// Sentinels for RawDirent.Name[0].
const (
	direntEndMarker     = 0x00
	direntDeletedMarker = 0xE5
)

// fatEpoch is the earliest representable FAT timestamp: 1980-01-01.
var fatEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// RawDirent is the on-disk, little-endian layout of a short (8.3) directory
// entry.
type RawDirent struct {
	Name           [11]byte
	AttributeFlags uint8
	EntryType      uint8
	CreatedTenths  uint8
	CreatedTime    uint16
	CreatedDate    uint16
	AccessedDate   uint16
	ClusterHigh    uint16
	ModifiedTime   uint16
	ModifiedDate   uint16
	ClusterLow     uint16
	Size           uint32
}

// DecodeRawDirent parses a DirentSize-byte slice into a RawDirent.
func DecodeRawDirent(data []byte) RawDirent {
	var d RawDirent
	copy(d.Name[:], data[0:11])
	d.AttributeFlags = data[11]
	d.EntryType = data[12]
	d.CreatedTenths = data[13]
	d.CreatedTime = binary.LittleEndian.Uint16(data[14:16])
	d.CreatedDate = binary.LittleEndian.Uint16(data[16:18])
	d.AccessedDate = binary.LittleEndian.Uint16(data[18:20])
	d.ClusterHigh = binary.LittleEndian.Uint16(data[20:22])
	d.ModifiedTime = binary.LittleEndian.Uint16(data[22:24])
	d.ModifiedDate = binary.LittleEndian.Uint16(data[24:26])
	d.ClusterLow = binary.LittleEndian.Uint16(data[26:28])
	d.Size = binary.LittleEndian.Uint32(data[28:32])
	return d
}

// Encode serializes d back into a DirentSize-byte slice.
func (d RawDirent) Encode() []byte {
	data := make([]byte, DirentSize)
	copy(data[0:11], d.Name[:])
	data[11] = d.AttributeFlags
	data[12] = d.EntryType
	data[13] = d.CreatedTenths
	binary.LittleEndian.PutUint16(data[14:16], d.CreatedTime)
	binary.LittleEndian.PutUint16(data[16:18], d.CreatedDate)
	binary.LittleEndian.PutUint16(data[18:20], d.AccessedDate)
	binary.LittleEndian.PutUint16(data[20:22], d.ClusterHigh)
	binary.LittleEndian.PutUint16(data[22:24], d.ModifiedTime)
	binary.LittleEndian.PutUint16(data[24:26], d.ModifiedDate)
	binary.LittleEndian.PutUint16(data[26:28], d.ClusterLow)
	binary.LittleEndian.PutUint32(data[28:32], d.Size)
	return data
}

// Cluster reassembles the 32-bit cluster number from its two 16-bit halves.
// Unlike the original (which masks the low half with 0xFF, truncating any
// file whose first cluster exceeds 255), this keeps the full 16 bits.
func (d RawDirent) Cluster() ClusterID {
	return ClusterID(uint32(d.ClusterHigh)<<16 | uint32(d.ClusterLow))
}

// SetCluster splits cluster into its ClusterHigh/ClusterLow halves.
func (d *RawDirent) SetCluster(cluster ClusterID) {
	d.ClusterHigh = uint16(uint32(cluster) >> 16)
	d.ClusterLow = uint16(uint32(cluster) & 0xFFFF)
}

// IsEnd reports whether this entry's name byte marks the end of the
// directory: this slot and everything after it is unused.
func (d RawDirent) IsEnd() bool {
	return d.Name[0] == direntEndMarker
}

// IsDeleted reports whether this slot was freed by a deletion (first name
// byte 0xE5). A never-used slot is reported by IsEnd instead.
func (d RawDirent) IsDeleted() bool {
	return d.Name[0] == direntDeletedMarker
}

// IsLongName reports whether this entry is a VFAT long-name fragment.
func (d RawDirent) IsLongName() bool {
	return d.AttributeFlags == AttrLongName
}

// dateToInt packs a time.Time's date into the FAT date bitfield:
// yyyyyyy·mmmm·ddddd, years counted from 1980.
func dateToInt(t time.Time) uint16 {
	year := uint16(t.Year() - 1980)
	return (year << 9) | (uint16(t.Month()) << 5) | uint16(t.Day())
}

// timeToInt packs a time.Time's time-of-day into the FAT time bitfield:
// hhhhh·mmmmmm·sssss/2.
func timeToInt(t time.Time) uint16 {
	return (uint16(t.Hour()) << 11) | (uint16(t.Minute()) << 5) | uint16(t.Second()/2)
}

// DateFromInt unpacks a FAT date bitfield into a time.Time at midnight UTC.
func DateFromInt(value uint16) time.Time {
	day := int(value & 0x1F)
	month := time.Month((value >> 5) & 0xF)
	year := 1980 + int(value>>9)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TimestampFromParts combines a FAT date and time bitfield into a
// time.Time. hundredths, when present, adds sub-second precision and can
// carry an extra second (the creation-time field alone can represent odd
// seconds this way).
func TimestampFromParts(datePart, timePart uint16, hundredths uint8) time.Time {
	d := DateFromInt(datePart)
	second := int(timePart&0x1F) * 2
	nanos := 0
	if hundredths > 0 {
		second += int(hundredths) / 100
		nanos = (int(hundredths) % 100) * 10_000_000
	}
	minute := int((timePart >> 5) & 0x3F)
	hour := int(timePart >> 11)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, second, nanos, time.UTC)
}

// AttrFromMode derives the attribute byte this driver stores for a
// directory entry from whether it is a directory.
func AttrFromMode(isDir bool) uint8 {
	if isDir {
		return AttrDirectory
	}
	return 0
}

// checksum computes the 8-bit rotate-right-add checksum over an 11-byte
// short name, stored in every long-name fragment that precedes it.
func checksum(shortName [11]byte) uint8 {
	var sum uint8
	for _, b := range shortName {
		sum = ((sum & 1) << 7) + (sum >> 1) + b
	}
	return sum
}

// MakeShortName derives the lossy 8.3 short name from a long name: no
// uppercasing, no invalid-character mangling, no collision suffixing.
// The first <=8 characters up to (not
// including) the first '.' become the name; up to 3 characters after the
// last '.' become the extension. Both fields are space-padded.
func MakeShortName(longName string) [11]byte {
	var short [11]byte
	for i := range short {
		short[i] = ' '
	}

	namePart := longName
	if idx := strings.IndexByte(longName, '.'); idx >= 0 {
		namePart = longName[:idx]
	}
	if len(namePart) > 8 {
		namePart = namePart[:8]
	}
	copy(short[0:8], namePart)

	if idx := strings.LastIndexByte(longName, '.'); idx >= 0 {
		ext := longName[idx+1:]
		if len(ext) > 3 {
			ext = ext[:3]
		}
		copy(short[8:11], ext)
	}

	// A name that legitimately starts with 0xE5 would be indistinguishable
	// from a deleted slot; alias it to 0x05 on disk.
	if short[0] == direntDeletedMarker {
		short[0] = 0x05
	}
	return short
}

// shortNameToString reverses the short-name packing: trims trailing spaces
// from the name and extension and rejoins them with a '.', except for
// directories, which never carry an extension separator. The reverse of
// MakeShortName's 0xE5/0x05 aliasing is applied first.
func shortNameToString(name [11]byte, isDir bool) string {
	if name[0] == 0x05 {
		name[0] = direntDeletedMarker
	}
	base := strings.TrimRight(string(name[0:8]), " ")
	ext := strings.TrimRight(string(name[8:11]), " ")
	if base == "" {
		return ext
	}
	if ext == "" || isDir {
		return base
	}
	return base + "." + ext
}

// RawLongNameEntry is the on-disk layout of a single VFAT long-name
// fragment: 13 UTF-16 code units (stored low-byte only, per the original,
// which writes 8-bit input and never the high byte), a sequence number,
// and the checksum of the short name it precedes.
type RawLongNameEntry struct {
	Sequence       uint8
	Name1          [10]byte // 5 UTF-16 code units
	AttributeFlags uint8    // always AttrLongName
	EntryType      uint8    // always 0
	Checksum       uint8
	Name2          [12]byte // 6 UTF-16 code units
	FirstCluster   uint16   // always 0
	Name3          [4]byte  // 2 UTF-16 code units
}

// Encode serializes a long-name fragment into a DirentSize-byte slice.
func (e RawLongNameEntry) Encode() []byte {
	data := make([]byte, DirentSize)
	data[0] = e.Sequence
	copy(data[1:11], e.Name1[:])
	data[11] = e.AttributeFlags
	data[12] = e.EntryType
	data[13] = e.Checksum
	copy(data[14:26], e.Name2[:])
	binary.LittleEndian.PutUint16(data[26:28], e.FirstCluster)
	copy(data[28:32], e.Name3[:])
	return data
}

// DecodeRawLongNameEntry parses a DirentSize-byte slice into a
// RawLongNameEntry.
func DecodeRawLongNameEntry(data []byte) RawLongNameEntry {
	var e RawLongNameEntry
	e.Sequence = data[0]
	copy(e.Name1[:], data[1:11])
	e.AttributeFlags = data[11]
	e.EntryType = data[12]
	e.Checksum = data[13]
	copy(e.Name2[:], data[14:26])
	e.FirstCluster = binary.LittleEndian.Uint16(data[26:28])
	copy(e.Name3[:], data[28:32])
	return e
}

// IsFirstInOrder reports whether this is the on-disk-first fragment of a
// long-name block: attribute 0x0F and the 0x40 "last logical fragment"
// bit set in the sequence byte.
func (e RawLongNameEntry) IsFirstInOrder() bool {
	return e.AttributeFlags == AttrLongName && e.Sequence&0x40 != 0
}

// fragmentCount is how many 13-character-wide code-unit slots this
// fragment's sequence byte claims belong to the whole long-name block.
func (e RawLongNameEntry) fragmentCount() int {
	return int(e.Sequence & 0x1F)
}

// longNameFragmentCount returns how many 13-character long-name entries are
// needed to hold name.
func longNameFragmentCount(name string) int {
	n := len(name) / 13
	if len(name)%13 != 0 {
		n++
	}
	return n
}

// codeUnitOffsets gives the byte offset within a 26-byte-per-entry scratch
// buffer (2 bytes per UTF-16 code unit, low byte only populated) for each
// of the 13 code units in a fragment, in order: 5 in Name1, 6 in Name2, 2
// in Name3.
var codeUnitOffsets = [13]int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24}

// EncodeLongName builds the sequence of long-name fragments for name, in
// on-disk order: the last name fragment comes first with sequence number
// E|0x40, and the first name fragment comes last with sequence number 1.
func EncodeLongName(name string, shortName [11]byte) []RawLongNameEntry {
	entries := longNameFragmentCount(name)
	sum := checksum(shortName)

	scratch := make([]byte, entries*26)
	for i := range scratch {
		scratch[i] = 0xFF
	}
	i, j := 0, 0
	for i < len(name) {
		scratch[j] = name[i]
		scratch[j+1] = 0
		i++
		j += 2
	}
	if j < len(scratch) {
		scratch[j] = 0
		scratch[j+1] = 0
	}

	fragments := make([]RawLongNameEntry, entries)
	for idx := 0; idx < entries; idx++ {
		// idx is the on-disk position and counts from the END of the name
		// backward: idx=0 is the last fragment of the name (disk-first,
		// sequence E|0x40).
		fragmentIndex := entries - 1 - idx
		off := fragmentIndex * 26

		var e RawLongNameEntry
		e.AttributeFlags = AttrLongName
		e.EntryType = 0
		e.Checksum = sum
		seq := uint8(fragmentIndex + 1)
		if idx == 0 {
			seq |= 0x40
		}
		e.Sequence = seq

		for k := 0; k < 5; k++ {
			e.Name1[k*2] = scratch[off+codeUnitOffsets[k]]
		}
		for k := 0; k < 6; k++ {
			e.Name2[k*2] = scratch[off+codeUnitOffsets[5+k]]
		}
		for k := 0; k < 2; k++ {
			e.Name3[k*2] = scratch[off+codeUnitOffsets[11+k]]
		}

		fragments[idx] = e
	}
	return fragments
}

// DecodeLongName reconstructs the name stored across a sequence of
// long-name fragments, as produced by EncodeLongName, given in on-disk
// order (fragments[0] is the last name fragment, carrying seq|0x40).
func DecodeLongName(fragments []RawLongNameEntry) string {
	var b strings.Builder
	for i := len(fragments) - 1; i >= 0; i-- {
		e := fragments[i]
		codeUnits := make([]byte, 0, 13)
		for k := 0; k < 5; k++ {
			codeUnits = append(codeUnits, e.Name1[k*2])
		}
		for k := 0; k < 6; k++ {
			codeUnits = append(codeUnits, e.Name2[k*2])
		}
		for k := 0; k < 2; k++ {
			codeUnits = append(codeUnits, e.Name3[k*2])
		}
		for _, c := range codeUnits {
			if c == 0 || c == 0xFF {
				return b.String()
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}
