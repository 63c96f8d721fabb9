// Package tipcatalog implements the in-memory table of every known tip
// name, built once at boot from the tip-list text file (§3, §4.2).
//
// Grounded on AndySze-klipper/pkg/config's line-oriented file parsing
// (parseFile in config.go skips malformed lines rather than aborting),
// generalized from INI sections to one tip name per line.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package tipcatalog

import (
	"bufio"
	"io"
	"strings"

	"github.com/sfrwmaker/station-fw/internal/radix"
)

// NoSlot is the sentinel persist_slot value meaning "no persisted
// calibration" (§3).
const NoSlot uint8 = 255

// Entry is one (name, persist slot) pair in the catalog.
type Entry struct {
	Name       radix.RadixName
	PersistSlot uint8
}

// Catalog is the ordered, fixed-for-the-life-of-boot sequence of tips.
// Index 0 is always reserved for the virtual hot-gun tip.
type Catalog struct {
	entries []Entry
}

// New creates a catalog whose index 0 is the virtual hot-gun entry.
func New() *Catalog {
	return &Catalog{
		entries: []Entry{{Name: radix.RadixName{}, PersistSlot: NoSlot}},
	}
}

// Build reads a tip-list file (one full tip name per line) and appends
// each valid, unique entry to the catalog. Parse failures and duplicate
// names skip the line rather than aborting the boot (§4.2).
func (c *Catalog) Build(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, err := radix.FromText(line)
		if err != nil {
			continue
		}
		if _, ok := c.find(name); ok {
			continue
		}
		c.entries = append(c.entries, Entry{Name: name, PersistSlot: NoSlot})
	}
	return scanner.Err()
}

// Len returns the number of entries, including the reserved hot-gun slot.
func (c *Catalog) Len() int { return len(c.entries) }

// At returns the entry at index i.
func (c *Catalog) At(i int) Entry { return c.entries[i] }

func (c *Catalog) find(name radix.RadixName) (int, bool) {
	for i, e := range c.entries {
		if e.Name.Matches(name) {
			return i, true
		}
	}
	return 0, false
}

// ApplyCalibration records that name has a persisted calibration at the
// given flash record slot, and copies the calibration/activation flag
// bits from name onto the stored entry.
func (c *Catalog) ApplyCalibration(name radix.RadixName, slot uint8) bool {
	idx, ok := c.find(name)
	if !ok {
		return false
	}
	c.entries[idx].Name = c.entries[idx].Name.SetCalibrated(name.Calibrated()).SetActivated(name.Activated())
	c.entries[idx].PersistSlot = slot
	return true
}

// ClearAll drops every persist slot back to NoSlot and clears the
// calibrated/activated flags, used when the tip calibration file is
// reformatted.
func (c *Catalog) ClearAll() {
	for i := range c.entries {
		c.entries[i].PersistSlot = NoSlot
		c.entries[i].Name = c.entries[i].Name.SetCalibrated(false).SetActivated(false)
	}
}

// Find looks up a tip by name, ignoring flag bits. O(N) linear scan — N
// is small (typically <200, §4.2).
func (c *Catalog) Find(name radix.RadixName) (Entry, bool) {
	idx, ok := c.find(name)
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx], true
}

// Filter returns, in insertion order, every entry whose type matches typ
// and whose activation state matches activatedOnly (when activatedOnly
// is true, only activated tips are returned). Used by the menu layer to
// build per-device tip-selection lists.
func (c *Catalog) Filter(typ radix.TypeTag, activatedOnly bool) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Name.Type() != typ {
			continue
		}
		if activatedOnly && !e.Name.Activated() {
			continue
		}
		out = append(out, e)
	}
	return out
}
