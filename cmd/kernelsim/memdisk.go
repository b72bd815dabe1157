package main

import (
	"encoding/binary"

	"kcore/disk"
	"kcore/internal/status"
)

// memDisk is an in-memory disk.Ops backing store, standing in for the
// AHCI/IDE driver a bare-metal build would link (spec §6 Non-goals
// exclude a real disk driver). Its first block is pre-formatted with
// an MBR so Register can exercise partition discovery against it.
type memDisk struct {
	blocks [][512]byte
}

func newMemDisk(nblocks int) *memDisk {
	d := &memDisk{blocks: make([][512]byte, nblocks)}
	d.writeMBR()
	return d
}

func (d *memDisk) writeMBR() {
	mbr := &d.blocks[0]
	entry := func(off int, typ byte, lba, count uint32) {
		mbr[off+4] = typ
		binary.LittleEndian.PutUint32(mbr[off+8:], lba)
		binary.LittleEndian.PutUint32(mbr[off+12:], count)
	}
	entry(0x1BE, 0x83, 2048, 2048)
	mbr[510] = 0x55
	mbr[511] = 0xAA
}

func (d *memDisk) ReadBlock(lba uint64, buf []byte) status.Err {
	if lba >= uint64(len(d.blocks)) {
		return status.IO
	}
	copy(buf, d.blocks[lba][:])
	return status.OK
}

func (d *memDisk) WriteBlock(lba uint64, buf []byte) status.Err {
	if lba >= uint64(len(d.blocks)) {
		return status.IO
	}
	copy(d.blocks[lba][:], buf)
	return status.OK
}

var _ disk.Ops = (*memDisk)(nil)
