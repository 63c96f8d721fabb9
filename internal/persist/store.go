package persist

import (
	"github.com/sfrwmaker/station-fw/internal/ferr"
)

// Store layers CRC verification and primary/backup rotation over a
// Backend (§6: "Records are CRC-verified on load; on mismatch the .bak
// is tried; on persistent mismatch defaults are applied and the valid
// default is written back").
type Store struct {
	backend Backend
}

// NewStore wraps backend with CRC/backup semantics.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load reads name, verifying its trailing 2-byte big-endian CRC16
// against the payload. On mismatch or read failure it retries
// name+".bak". If both fail, ok is false and the caller should install
// and Save its own default record (§6).
func (s *Store) Load(name string) (payload []byte, ok bool) {
	if p, err := s.readVerified(name); err == nil {
		return p, true
	}
	if p, err := s.readVerified(name + ".bak"); err == nil {
		return p, true
	}
	return nil, false
}

func (s *Store) readVerified(name string) ([]byte, error) {
	raw, err := s.backend.ReadFile(name)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, ferr.New(ferr.CodeChecksum, "persist: record too short").WithParam(name)
	}
	payload := raw[:len(raw)-2]
	want := uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1])
	if crc16CCITT(payload) != want {
		return nil, ferr.New(ferr.CodeChecksum, "persist: crc mismatch").WithParam(name)
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return buf, nil
}

// Save appends a CRC16 to payload and writes it to name, first renaming
// any existing primary file to name+".bak" so a power loss mid-write
// always leaves one valid copy readable by Load
// (original_source/Src/flash.cpp's rename-then-write sequence).
func (s *Store) Save(name string, payload []byte) error {
	if err := s.backend.RenameFile(name, name+".bak"); err != nil {
		return err
	}

	buf := getBuffer(len(payload) + 2)
	defer putBuffer(buf)
	copy(buf, payload)
	crc := crc16CCITT(payload)
	buf[len(payload)] = byte(crc >> 8)
	buf[len(payload)+1] = byte(crc)

	return s.backend.WriteFile(name, buf)
}
