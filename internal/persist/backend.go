package persist

import (
	"os"

	"github.com/sfrwmaker/station-fw/internal/ferr"
	"github.com/sfrwmaker/station-fw/internal/hal"
)

// Backend is the minimal file-like surface PersistStore needs: named
// blobs that can be read, written, and renamed. It exists so the same
// record/CRC/backup-rotation logic runs against a real OS filesystem
// (FileBackend, cmd/stationfw's host build) and against the raw
// on-target SPI flash chip (FlashBackend), without either caller
// knowing which one it's talking to.
type Backend interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	RenameFile(oldName, newName string) error
}

// FileBackend implements Backend on the host OS filesystem, rooted at
// Dir. Used by cmd/stationfw and by TestFileBackendRoundTrip.
type FileBackend struct {
	Dir string
}

func (b FileBackend) path(name string) string { return b.Dir + "/" + name }

func (b FileBackend) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferr.Wrap(ferr.CodeReadError, "persist: file not found", err).WithParam(name)
		}
		return nil, ferr.Wrap(ferr.CodeIO, "persist: read failed", err).WithParam(name)
	}
	return data, nil
}

func (b FileBackend) WriteFile(name string, data []byte) error {
	if err := os.WriteFile(b.path(name), data, 0o644); err != nil {
		return ferr.Wrap(ferr.CodeIO, "persist: write failed", err).WithParam(name)
	}
	return nil
}

func (b FileBackend) RenameFile(oldName, newName string) error {
	err := os.Rename(b.path(oldName), b.path(newName))
	if err != nil && !os.IsNotExist(err) {
		return ferr.Wrap(ferr.CodeIO, "persist: rename failed", err).WithParam(oldName)
	}
	return nil
}

// maxFiles/maxNameLen/maxFileLen bound FlashBackend's fixed directory
// table, sized generously for this station's five named files
// (config.dat/.bak, pid.dat, tipcal.dat/.bak, tip_list.txt).
const (
	maxFiles   = 8
	maxNameLen = 16
	maxFileLen = 4096
)

const dirTableSize = maxFiles * (maxNameLen + 4 + 4)

// FlashBackend implements Backend directly on a hal.FlashDriver, using
// a fixed single-level directory table stored in the flash's first
// block: each of up to maxFiles slots holds a NUL-padded name, a byte
// offset, and a length. This stands in for the FAT filesystem a real
// build would mount over the SPI NOR flash (§6) — the station's file
// set is small and fixed, so a flat slot table is sufficient without
// pulling in a full FAT implementation.
type FlashBackend struct {
	flash hal.FlashDriver
}

// NewFlashBackend wraps a hal.FlashDriver, formatting its directory
// table if the flash is blank (all-0xFF, as simulated flash erases to
// and real NOR flash erases to).
func NewFlashBackend(flash hal.FlashDriver) (*FlashBackend, error) {
	b := &FlashBackend{flash: flash}
	table := make([]byte, dirTableSize)
	if _, err := flash.ReadAt(table, 0); err != nil {
		return nil, ferr.Wrap(ferr.CodeIO, "persist: read directory table", err)
	}
	blank := true
	for _, v := range table {
		if v != 0xFF {
			blank = false
			break
		}
	}
	if blank {
		if err := flash.EraseBlock(0); err != nil {
			return nil, ferr.Wrap(ferr.CodeIO, "persist: format directory table", err)
		}
	}
	return b, nil
}

type dirSlot struct {
	name   string
	offset uint32
	length uint32
	used   bool
}

func (b *FlashBackend) readTable() ([dirTableSize / (maxNameLen + 8)]dirSlot, error) {
	var slots [dirTableSize / (maxNameLen + 8)]dirSlot
	raw := make([]byte, dirTableSize)
	if _, err := b.flash.ReadAt(raw, 0); err != nil {
		return slots, ferr.Wrap(ferr.CodeIO, "persist: read directory table", err)
	}
	for i := range slots {
		base := i * (maxNameLen + 8)
		nameBytes := raw[base : base+maxNameLen]
		n := 0
		for n < maxNameLen && nameBytes[n] != 0 && nameBytes[n] != 0xFF {
			n++
		}
		if n == 0 {
			continue
		}
		off := be32(raw[base+maxNameLen:])
		length := be32(raw[base+maxNameLen+4:])
		slots[i] = dirSlot{name: string(nameBytes[:n]), offset: off, length: length, used: true}
	}
	return slots, nil
}

func (b *FlashBackend) writeTable(slots [dirTableSize / (maxNameLen + 8)]dirSlot) error {
	raw := make([]byte, dirTableSize)
	for i := range raw {
		raw[i] = 0xFF
	}
	for i, s := range slots {
		if !s.used {
			continue
		}
		base := i * (maxNameLen + 8)
		copy(raw[base:base+maxNameLen], s.name)
		putBe32(raw[base+maxNameLen:], s.offset)
		putBe32(raw[base+maxNameLen+4:], s.length)
	}
	if err := b.flash.EraseBlock(0); err != nil {
		return ferr.Wrap(ferr.CodeIO, "persist: erase directory table", err)
	}
	_, err := b.flash.WriteAt(raw, 0)
	if err != nil {
		return ferr.Wrap(ferr.CodeIO, "persist: write directory table", err)
	}
	return nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBe32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func (b *FlashBackend) ReadFile(name string) ([]byte, error) {
	slots, err := b.readTable()
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if s.used && s.name == name {
			data := make([]byte, s.length)
			if _, err := b.flash.ReadAt(data, int64(s.offset)); err != nil {
				return nil, ferr.Wrap(ferr.CodeIO, "persist: read file", err).WithParam(name)
			}
			return data, nil
		}
	}
	return nil, ferr.New(ferr.CodeReadError, "persist: file not found").WithParam(name)
}

func (b *FlashBackend) WriteFile(name string, data []byte) error {
	if len(data) > maxFileLen {
		return ferr.New(ferr.CodeIO, "persist: file too large").WithParam(name)
	}
	slots, err := b.readTable()
	if err != nil {
		return err
	}

	idx := -1
	for i, s := range slots {
		if s.used && s.name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, s := range slots {
			if !s.used {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return ferr.New(ferr.CodeIO, "persist: directory table full").WithParam(name)
	}

	// File data starts after the first 4 KiB block, which writeTable
	// erases each time it rewrites the directory table.
	offset := uint32(maxFileLen) + uint32(idx)*uint32(maxFileLen)
	if err := b.flash.EraseBlock(int64(offset)); err != nil {
		return ferr.Wrap(ferr.CodeIO, "persist: erase file block", err).WithParam(name)
	}
	if _, err := b.flash.WriteAt(data, int64(offset)); err != nil {
		return ferr.Wrap(ferr.CodeIO, "persist: write file", err).WithParam(name)
	}

	slots[idx] = dirSlot{name: name, offset: offset, length: uint32(len(data)), used: true}
	return b.writeTable(slots)
}

func (b *FlashBackend) RenameFile(oldName, newName string) error {
	slots, err := b.readTable()
	if err != nil {
		return err
	}
	for i, s := range slots {
		if s.used && s.name == oldName {
			slots[i].name = newName
			return b.writeTable(slots)
		}
	}
	// Renaming a file that doesn't exist yet (first-ever save) is a
	// no-op, matching the original firmware's "skip if absent" rotation.
	return nil
}
