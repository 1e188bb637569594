// Package block defines the external block-device contract the fat12fs
// core consumes. It corresponds to the "image layer" and "partition layer"
// collaborators described as out of scope for the FAT core itself: this
// package only fixes the shape of the interface, not its implementation.
//
// The sector size is fixed at 512 bytes, the only size FAT12 geometry in
// this module deals in.
package block

import (
	"io"

	"github.com/go-fat/fat12/errors"
)

// SectorSize is the fixed size, in bytes, of a single sector.
const SectorSize = 512

// Partition is a block-addressable range of sectors relative to the start
// of a partition (not necessarily the start of the underlying disk image).
// Offsets and counts are in units of SectorSize-byte sectors.
type Partition interface {
	// ReadBlocks reads count sectors starting at offset and returns their
	// contents.
	ReadBlocks(offset, count uint) ([]byte, error)

	// WriteBlocks writes data, whose length must be an exact multiple of
	// SectorSize, to count = len(data)/SectorSize sectors starting at
	// offset.
	WriteBlocks(offset uint, data []byte) error

	// Length reports the total size of the partition, in sectors.
	Length() uint
}

// streamPartition adapts an io.ReadWriteSeeker, such as an *os.File or a
// bytesextra.ReadWriteSeeker wrapping an in-memory buffer, into a Partition.
type streamPartition struct {
	stream      io.ReadWriteSeeker
	totalBlocks uint
	startOffset int64
}

// FromReadWriteSeeker adapts stream into a Partition with totalBlocks
// sectors, starting startOffset bytes into stream. startOffset is normally
// 0; it exists so a partition can be carved out of a larger disk image
// without a separate partition-table layer.
func FromReadWriteSeeker(stream io.ReadWriteSeeker, totalBlocks uint, startOffset int64) Partition {
	return &streamPartition{
		stream:      stream,
		totalBlocks: totalBlocks,
		startOffset: startOffset,
	}
}

func (p *streamPartition) Length() uint {
	return p.totalBlocks
}

func (p *streamPartition) checkBounds(offset, count uint) error {
	if offset >= p.totalBlocks {
		return errors.ErrArgumentOutOfRange.WithMessage("sector offset out of range")
	}
	if offset+count > p.totalBlocks {
		return errors.ErrArgumentOutOfRange.WithMessage("sector range extends past end of partition")
	}
	return nil
}

func (p *streamPartition) blockOffset(offset uint) int64 {
	return p.startOffset + int64(offset)*SectorSize
}

func (p *streamPartition) ReadBlocks(offset, count uint) ([]byte, error) {
	if count == 0 {
		return nil, errors.ErrInvalidArgument.WithMessage("count must be nonzero")
	}
	if err := p.checkBounds(offset, count); err != nil {
		return nil, err
	}

	if _, err := p.stream.Seek(p.blockOffset(offset), io.SeekStart); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	buffer := make([]byte, count*SectorSize)
	if _, err := io.ReadFull(p.stream, buffer); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return buffer, nil
}

func (p *streamPartition) WriteBlocks(offset uint, data []byte) error {
	if len(data)%SectorSize != 0 {
		return errors.ErrInvalidArgument.WithMessage("data must be a multiple of the sector size")
	}
	count := uint(len(data)) / SectorSize
	if count == 0 {
		return errors.ErrInvalidArgument.WithMessage("data must be nonzero length")
	}
	if err := p.checkBounds(offset, count); err != nil {
		return err
	}

	if _, err := p.stream.Seek(p.blockOffset(offset), io.SeekStart); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	if _, err := p.stream.Write(data); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	return nil
}
