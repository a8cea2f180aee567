// Package hart implements a single RV64I execution core: architectural
// state (general-purpose registers, program counter, privilege, the CSR
// file), the fetch/decode/execute loop, and the trap transition between
// machine and supervisor privilege.
//
// A Hart owns no concurrency of its own; Execute runs one instruction to
// completion on the calling goroutine and returns. Callers step the hart
// in a loop and are responsible for any timeout or instruction budget.
package hart

import (
	"errors"

	"github.com/rv64sim/hart/pkg/bus"
	"github.com/rv64sim/hart/pkg/csr"
	"github.com/rv64sim/hart/pkg/decode"
)

// Hart is one RV64I hardware thread: 32 general-purpose registers, a
// program counter, a privilege level, a CSR file, and a Bus used for all
// memory traffic. The zero value is not useful; construct with New.
type Hart struct {
	Bus       bus.Bus
	CSR       *csr.File
	Privilege csr.Privilege

	PC   uint64
	Next uint64
	GPR  [32]uint64
}

// New creates a Hart wired to bus, starting execution at machine privilege
// with every register zeroed and the program counter at resetPC.
func New(b bus.Bus, resetPC uint64) *Hart {
	return &Hart{
		Bus:       b,
		CSR:       csr.NewFile(0, 0, 0, 0),
		Privilege: csr.Machine,
		PC:        resetPC,
		Next:      resetPC,
	}
}

type handlerFunc func(h *Hart, raw uint32) error

var dispatch [1 << 10]handlerFunc

// register installs fn for every (opcode, funct3) pair. For opcodes whose
// bits [14:12] are not a real funct3 field (LUI, AUIPC, JAL), every value
// of that span decodes to the same instruction, so fn is installed across
// all 8 funct3 slots.
func register(opcode uint32, funct3 int, fn handlerFunc) {
	if funct3 >= 0 {
		dispatch[uint16(opcode)|uint16(funct3)<<7] = fn
		return
	}
	for f3 := uint32(0); f3 < 8; f3++ {
		dispatch[uint16(opcode)|uint16(f3)<<7] = fn
	}
}

func init() {
	register(decode.OpLui, -1, lui)
	register(decode.OpAuipc, -1, auipc)
	register(decode.OpJal, -1, jal)
	register(decode.OpJalr, 0b000, jalr)

	register(decode.OpBranch, 0b000, beq)
	register(decode.OpBranch, 0b001, bne)
	register(decode.OpBranch, 0b100, blt)
	register(decode.OpBranch, 0b101, bge)
	register(decode.OpBranch, 0b110, bltu)
	register(decode.OpBranch, 0b111, bgeu)

	register(decode.OpLoad, 0b000, lb)
	register(decode.OpLoad, 0b001, lh)
	register(decode.OpLoad, 0b010, lw)
	register(decode.OpLoad, 0b011, ld)
	register(decode.OpLoad, 0b100, lbu)
	register(decode.OpLoad, 0b101, lhu)
	register(decode.OpLoad, 0b110, lwu)

	register(decode.OpStore, 0b000, sb)
	register(decode.OpStore, 0b001, sh)
	register(decode.OpStore, 0b010, sw)
	register(decode.OpStore, 0b011, sd)

	register(decode.OpImm, 0b000, addi)
	register(decode.OpImm, 0b010, slti)
	register(decode.OpImm, 0b011, sltiu)
	register(decode.OpImm, 0b100, xori)
	register(decode.OpImm, 0b110, ori)
	register(decode.OpImm, 0b111, andi)
	register(decode.OpImm, 0b001, slli)
	register(decode.OpImm, 0b101, srxi)

	register(decode.OpImm32, 0b000, addiw)
	register(decode.OpImm32, 0b001, slliw)
	register(decode.OpImm32, 0b101, srxiw)

	register(decode.OpReg, 0b000, addSub)
	register(decode.OpReg, 0b001, sll)
	register(decode.OpReg, 0b010, slt)
	register(decode.OpReg, 0b011, sltu)
	register(decode.OpReg, 0b100, xor)
	register(decode.OpReg, 0b101, srx)
	register(decode.OpReg, 0b110, or)
	register(decode.OpReg, 0b111, and)

	register(decode.OpReg32, 0b000, addwSubw)
	register(decode.OpReg32, 0b001, sllw)
	register(decode.OpReg32, 0b101, srxw)

	register(decode.OpMiscMem, -1, fence)

	register(decode.OpSystem, 0b000, ecallEbreak)
	register(decode.OpSystem, 0b001, csrrw)
	register(decode.OpSystem, 0b010, csrrs)
	register(decode.OpSystem, 0b011, csrrc)
	register(decode.OpSystem, 0b101, csrrwi)
	register(decode.OpSystem, 0b110, csrrsi)
	register(decode.OpSystem, 0b111, csrrci)
}

// Execute fetches, decodes, and runs exactly one instruction at h.PC. On
// success it returns nil and h.PC has been advanced to the next
// instruction. On a trap it returns a *TrapError describing the cause and
// the architectural state (cause/epc/tval registers, privilege, pc) has
// already been updated to reflect trap entry.
func (h *Hart) Execute() error {
	raw32, err := h.Bus.Load32(h.PC)
	if err != nil {
		var fetchErr error
		if errors.Is(err, bus.ErrAddressMisaligned) {
			fetchErr = h.trap(InstructionAddressMisaligned, h.PC)
		} else {
			fetchErr = h.trap(InstructionAccessFault, h.PC)
		}
		h.PC = h.Next
		return fetchErr
	}

	h.GPR[0] = 0
	h.Next = h.PC + 4

	handler := dispatch[decode.Key(raw32)]
	var trapErr error
	if handler == nil {
		trapErr = h.trap(IllegalInstruction, uint64(raw32))
	} else {
		trapErr = handler(h, raw32)
	}

	h.GPR[0] = 0
	h.PC = h.Next
	return trapErr
}
