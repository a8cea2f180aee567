package memory

import (
	"errors"
	"testing"

	"github.com/rv64sim/hart/pkg/bus"
)

func TestLoadStoreRoundTrip(t *testing.T) {
	m := New(64)

	if err := m.Store64(0, 0x0102030405060708); err != nil {
		t.Fatalf("Store64: %v", err)
	}
	v, err := m.Load64(0)
	if err != nil {
		t.Fatalf("Load64: %v", err)
	}
	if v != 0x0102030405060708 {
		t.Fatalf("Load64 = %#x, want %#x", v, uint64(0x0102030405060708))
	}

	// Little-endian: low byte at the lowest address.
	b, err := m.Load8(0)
	if err != nil {
		t.Fatalf("Load8: %v", err)
	}
	if b != 0x08 {
		t.Fatalf("Load8(0) = %#x, want 0x08", b)
	}
}

func TestBoundsChecking(t *testing.T) {
	m := New(16)

	cases := []struct {
		name string
		addr uint64
		load func(uint64) error
	}{
		{"byte at edge", 15, func(a uint64) error { _, err := m.Load8(a); return err }},
		{"halfword past end", 15, func(a uint64) error { _, err := m.Load16(a); return err }},
		{"word past end", 13, func(a uint64) error { _, err := m.Load32(a); return err }},
		{"doubleword past end", 9, func(a uint64) error { _, err := m.Load64(a); return err }},
		{"far out of range", 1 << 40, func(a uint64) error { _, err := m.Load8(a); return err }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.load(c.addr)
			if !errors.Is(err, bus.ErrAccessFault) {
				t.Fatalf("got %v, want ErrAccessFault", err)
			}
		})
	}
}

func TestWraparoundIsAccessFault(t *testing.T) {
	m := New(16)
	_, err := m.Load64(^uint64(0) - 2) // addr + 8 wraps past 2^64
	if !errors.Is(err, bus.ErrAccessFault) {
		t.Fatalf("got %v, want ErrAccessFault on wraparound", err)
	}
}

func TestAlignment(t *testing.T) {
	m := New(16)

	cases := []struct {
		name string
		addr uint64
		load func(uint64) error
	}{
		{"halfword odd", 1, func(a uint64) error { _, err := m.Load16(a); return err }},
		{"word unaligned", 2, func(a uint64) error { _, err := m.Load32(a); return err }},
		{"doubleword unaligned", 4, func(a uint64) error { _, err := m.Load64(a); return err }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.load(c.addr)
			if !errors.Is(err, bus.ErrAddressMisaligned) {
				t.Fatalf("got %v, want ErrAddressMisaligned", err)
			}
		})
	}
}

func TestStoreIsPreciseOnFailure(t *testing.T) {
	m := New(8)
	if err := m.Store32(6, 0xdeadbeef); err == nil {
		t.Fatalf("expected an error storing across the end of memory")
	}
	// No partial write should have occurred.
	for i, b := range m.data {
		if b != 0 {
			t.Fatalf("data[%d] = %#x, want 0 (failed store must have no side effect)", i, b)
		}
	}
}

func TestSize(t *testing.T) {
	m := New(1024)
	if m.Size() != 1024 {
		t.Fatalf("Size() = %d, want 1024", m.Size())
	}
}
