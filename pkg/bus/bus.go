// Package bus defines the typed physical-address channel that a hart uses
// to read and write memory. Implementations choose which backing region (if
// any) services a given address and enforce whatever alignment rules that
// region requires.
package bus

import "errors"

// The following errors may be returned by a Bus access. They are precise:
// on failure no observable side effect occurs.
var (
	// ErrAccessFault indicates that the address (or the address range implied
	// by the access width) does not belong to any backing region.
	ErrAccessFault = errors.New("bus: access fault")

	// ErrAddressMisaligned indicates that the address belongs to a backing
	// region that requires natural alignment, and the address does not
	// satisfy it.
	ErrAddressMisaligned = errors.New("bus: address misaligned")
)

// Bus is the abstract, typed address-to-value channel a hart uses for all
// memory traffic. A is always a 64-bit physical address; V is the width of
// the value being transferred.
//
// Implementations MAY split the address space between several backing
// regions (e.g. offsetting main memory by some base address); region
// selection is entirely the Bus's responsibility.
type Bus interface {
	Load8(addr uint64) (uint8, error)
	Load16(addr uint64) (uint16, error)
	Load32(addr uint64) (uint32, error)
	Load64(addr uint64) (uint64, error)

	Store8(addr uint64, value uint8) error
	Store16(addr uint64, value uint16) error
	Store32(addr uint64, value uint32) error
	Store64(addr uint64, value uint64) error
}
