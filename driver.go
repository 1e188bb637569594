// Package fat12 assembles the fat12fs format machinery into the
// function-table shape an external filesystem multiplexer expects: a
// record of bound methods rather than an interface, mirroring the
// original C driver's struct-of-function-pointers.
package fat12

import (
	"github.com/go-fat/fat12/block"
	"github.com/go-fat/fat12/fat12fs"
)

// TypeID identifies this driver to a multiplexer dispatching by
// filesystem type.
const TypeID = 1

// Driver is the vtable a filesystem multiplexer dispatches through. Every
// operation here is the bound fat12fs.Volume method and returns its Go
// error unchanged (nil on success); no translation to a 0/1 status code
// happens at this boundary.
type Driver struct {
	volume *fat12fs.Volume

	Read    func(h fat12fs.Handle, buf []byte, offset uint) (uint, error)
	Write   func(h fat12fs.Handle, buf []byte, offset uint) (uint, error)
	Touch   func(st fat12fs.Stat) (fat12fs.Handle, error)
	Readdir func(dir fat12fs.Handle, n uint) (fat12fs.DirEntry, error)
	Link    func(h fat12fs.Handle, dir fat12fs.Handle, name string) error
	Unlink  func(dir fat12fs.Handle, n uint) error
	Fstat   func(h fat12fs.Handle) (fat12fs.Stat, error)
	Mkdir   func(parent fat12fs.Handle, name string) error
	Rmdir   func(dir fat12fs.Handle, n uint) error

	TypeID int
}

// NewDriver binds every vtable entry to volume's methods.
func NewDriver(volume *fat12fs.Volume) *Driver {
	return &Driver{
		volume:  volume,
		Read:    volume.Read,
		Write:   volume.Write,
		Touch:   volume.Touch,
		Readdir: volume.Readdir,
		Link:    volume.Link,
		Unlink:  volume.Unlink,
		Fstat:   volume.Fstat,
		Mkdir:   volume.Mkdir,
		Rmdir:   volume.Rmdir,
		TypeID:  TypeID,
	}
}

// OnLoad attaches a Driver to an existing FAT12 volume on partition.
func OnLoad(partition block.Partition) (*Driver, error) {
	volume, err := fat12fs.Load(partition)
	if err != nil {
		return nil, err
	}
	return NewDriver(volume), nil
}

// OnCreate formats partition with a fresh FAT12 volume and returns a
// Driver attached to it.
func OnCreate(partition block.Partition, opts fat12fs.FormatOptions) (*Driver, error) {
	volume, err := fat12fs.Create(partition, opts)
	if err != nil {
		return nil, err
	}
	return NewDriver(volume), nil
}

// OnClose flushes the in-memory FAT to every on-disk copy and releases
// the driver's volume.
func (d *Driver) OnClose() error {
	return d.volume.Close()
}

// OnCheck is a placeholder that always reports the volume healthy; the
// core does not implement consistency repair.
func (d *Driver) OnCheck() error {
	return nil
}

// Volume exposes the underlying mounted volume for callers that need
// geometry or table access beyond the nine core operations.
func (d *Driver) Volume() *fat12fs.Volume {
	return d.volume
}
