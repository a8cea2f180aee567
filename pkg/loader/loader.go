// Package loader reads an ELF64 RISC-V image and copies its loadable
// segments into a bus.Bus, the way an external bootloader would before
// handing control to the hart core. It is not part of the hart
// architecture proper (spec §6 External Interfaces); the hart never
// parses ELF itself, only ever reads bytes through the Bus.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"

	"github.com/rv64sim/hart/pkg/bus"
)

// ErrNoLoadableSegments indicates that the ELF file has no PT_LOAD program
// headers to copy into the bus.
var ErrNoLoadableSegments = errors.New("loader: no loadable segments")

// Image describes an ELF image that has been loaded into a Bus.
type Image struct {
	// Entry is the ELF entry point, the address the hart should start
	// executing from.
	Entry uint64
}

// Load parses the ELF64 image read from r and copies each PT_LOAD segment
// into dst at its physical address. Segment bytes beyond the file size up
// to the segment's memory size (the .bss tail) are left at whatever dst
// already holds there; callers should back dst with freshly zeroed
// memory, as memory.New does.
func Load(r io.ReaderAt, dst bus.Bus) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("loader: open ELF: %w", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("loader: unsupported ELF machine %v (want RISC-V)", f.Machine)
	}
	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("loader: unsupported ELF class %v (want ELFCLASS64)", f.Class)
	}

	loaded := 0
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return nil, fmt.Errorf("loader: read segment @%#x: %w", prog.Paddr, err)
		}
		if err := storeSegment(dst, prog.Paddr, data); err != nil {
			return nil, fmt.Errorf("loader: store segment @%#x: %w", prog.Paddr, err)
		}
		loaded++
	}
	if loaded == 0 {
		return nil, ErrNoLoadableSegments
	}

	return &Image{Entry: f.Entry}, nil
}

// storeSegment copies data into dst one byte at a time. A typed Bus has no
// bulk-transfer operation (spec §4.1 deliberately keeps the interface to
// four fixed widths), so a byte loader is the only access pattern that
// works regardless of how the destination is backed or aligned.
func storeSegment(dst bus.Bus, base uint64, data []byte) error {
	for i, b := range data {
		if err := dst.Store8(base+uint64(i), b); err != nil {
			return err
		}
	}
	return nil
}
