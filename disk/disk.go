// Package disk is the physical-disk registry and MBR partition
// discovery path: pdisk_register publishes a physical disk, reads its
// first block, and on finding a valid 0x55 0xAA MBR signature
// registers up to four logical disks, one per non-empty partition
// table entry. This is a supplemented feature: spec.md's distillation
// only names the contract in its external-interfaces section, so the
// byte layout below follows the MBR format spec §6 itself specifies
// (offsets 0x1BE/0x1CE/0x1DE/0x1EE, signature at 510/511) rather than
// original_source, which does not carry a disk driver in this
// retrieval pack.
package disk

import (
	"encoding/binary"

	"kcore/internal/klog"
	"kcore/internal/status"
)

var log = klog.Sub("disk")

const (
	blockSize      = 512
	partTableStart = 0x1BE
	partEntrySize  = 16
	partTypeOffset = 4
	lbaOffset      = 8
	countOffset    = 12
	sigOffset      = 510
)

// Ops is the block-level contract a physical disk driver implements.
type Ops interface {
	// ReadBlock reads one block of Disk.BlockSize bytes at lba into
	// buf, which must be at least that large.
	ReadBlock(lba uint64, buf []byte) status.Err
	WriteBlock(lba uint64, buf []byte) status.Err
}

// Pdisk is a registered physical disk.
type Pdisk struct {
	BlockSize int
	Ops       Ops
	Data      any
}

// Ldisk is a logical disk: a partition's LBA range on a parent
// physical disk.
type Ldisk struct {
	Parent   *Pdisk
	Type     byte
	StartLBA uint64
	Count    uint64
}

// ReadBlock reads a block at an offset relative to the partition's
// start, translating to the parent's absolute LBA.
func (l *Ldisk) ReadBlock(relLBA uint64, buf []byte) status.Err {
	if relLBA >= l.Count {
		return status.INVAL
	}
	return l.Parent.Ops.ReadBlock(l.StartLBA+relLBA, buf)
}

// Register publishes a physical disk and, on first-block read,
// discovers its partition table, registering one Ldisk per non-empty
// (type != 0x00) partition entry.
func Register(blocksize int, ops Ops, data any) ([]*Ldisk, status.Err) {
	pd := &Pdisk{BlockSize: blocksize, Ops: ops, Data: data}

	buf := make([]byte, blocksize)
	if err := ops.ReadBlock(0, buf); err != status.OK {
		log.WithField("err", err).Warn("disk: failed to read MBR block")
		return nil, err
	}
	if len(buf) <= sigOffset+1 || buf[sigOffset] != 0x55 || buf[sigOffset+1] != 0xAA {
		log.Warn("disk: no MBR signature, no partitions discovered")
		return nil, status.OK
	}

	var ldisks []*Ldisk
	for i := 0; i < 4; i++ {
		off := partTableStart + i*partEntrySize
		typ := buf[off+partTypeOffset]
		if typ == 0x00 {
			continue
		}
		startLBA := binary.LittleEndian.Uint32(buf[off+lbaOffset : off+lbaOffset+4])
		count := binary.LittleEndian.Uint32(buf[off+countOffset : off+countOffset+4])
		ld := &Ldisk{
			Parent:   pd,
			Type:     typ,
			StartLBA: uint64(startLBA),
			Count:    uint64(count),
		}
		ldisks = append(ldisks, ld)
		log.WithField("type", typ).WithField("start", startLBA).WithField("count", count).Debug("partition discovered")
	}
	return ldisks, status.OK
}
