// Package memory implements the bus.Bus contract over a contiguous,
// fixed-size byte buffer with natural-alignment enforcement and bounds
// checks, little-endian regardless of host.
package memory

import (
	"encoding/binary"

	"github.com/rv64sim/hart/pkg/bus"
)

// Memory is a bus.Bus backed by a byte slice allocated once at construction.
// It never grows and is not shared; ownership is released with the Memory
// itself.
type Memory struct {
	data []byte
}

// New allocates a zero-initialized Memory of the given size in bytes.
func New(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the size of the backing buffer in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// check verifies that an access of width w at addr succeeds per the
// contract in spec §4.2: bounds first (including wraparound), then
// alignment.
func (m *Memory) check(addr uint64, w uint64) error {
	upper := addr + w // wrapping addition
	if upper < addr || upper > m.Size() {
		return bus.ErrAccessFault
	}
	if addr%w != 0 {
		return bus.ErrAddressMisaligned
	}
	return nil
}

// Load8 reads a single byte. A byte access is always naturally aligned.
func (m *Memory) Load8(addr uint64) (uint8, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// Store8 writes a single byte.
func (m *Memory) Store8(addr uint64, value uint8) error {
	if err := m.check(addr, 1); err != nil {
		return err
	}
	m.data[addr] = value
	return nil
}

// Load16 reads a little-endian halfword.
func (m *Memory) Load16(addr uint64) (uint16, error) {
	if err := m.check(addr, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[addr:]), nil
}

// Store16 writes a little-endian halfword.
func (m *Memory) Store16(addr uint64, value uint16) error {
	if err := m.check(addr, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[addr:], value)
	return nil
}

// Load32 reads a little-endian word.
func (m *Memory) Load32(addr uint64) (uint32, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[addr:]), nil
}

// Store32 writes a little-endian word.
func (m *Memory) Store32(addr uint64, value uint32) error {
	if err := m.check(addr, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[addr:], value)
	return nil
}

// Load64 reads a little-endian doubleword.
func (m *Memory) Load64(addr uint64) (uint64, error) {
	if err := m.check(addr, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[addr:]), nil
}

// Store64 writes a little-endian doubleword.
func (m *Memory) Store64(addr uint64, value uint64) error {
	if err := m.check(addr, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[addr:], value)
	return nil
}

var _ bus.Bus = (*Memory)(nil)
