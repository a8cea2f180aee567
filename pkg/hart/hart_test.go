package hart

import (
	"errors"
	"testing"

	"github.com/rv64sim/hart/pkg/csr"
	"github.com/rv64sim/hart/pkg/memory"
)

// newTestHart builds a hart over a fresh Memory and writes raw as the
// instruction word at pc (little-endian, as the Bus requires).
func newTestHart(t *testing.T, size uint64, pc uint64, program ...uint32) *Hart {
	t.Helper()
	m := memory.New(size)
	for i, word := range program {
		if err := m.Store32(pc+uint64(i*4), word); err != nil {
			t.Fatalf("Store32: %v", err)
		}
	}
	return New(m, pc)
}

func TestLuiThenAddi(t *testing.T) {
	// LUI x1, 0x12345; ADDI x1, x1, 0x678
	lui := uint32(0x12345<<12 | 1<<7 | 0x37)
	addi := uint32(0x678<<20 | 1<<15 | 0<<12 | 1<<7 | 0x13)
	h := newTestHart(t, 4096, 0, lui, addi)

	if err := h.Execute(); err != nil {
		t.Fatalf("LUI: %v", err)
	}
	if h.GPR[1] != 0x12345000 {
		t.Fatalf("after LUI, x1 = %#x, want 0x12345000", h.GPR[1])
	}
	if err := h.Execute(); err != nil {
		t.Fatalf("ADDI: %v", err)
	}
	if h.GPR[1] != 0x12345678 {
		t.Fatalf("after ADDI, x1 = %#x, want 0x12345678", h.GPR[1])
	}
}

func TestAuipcSignExtendsUpperImmediate(t *testing.T) {
	// AUIPC x1, 0x80000 at pc=0: gpr[1] = pc + sign_extend(0x80000000)
	raw := uint32(0x80000<<12 | 1<<7 | 0x17)
	h := newTestHart(t, 4096, 0, raw)
	if err := h.Execute(); err != nil {
		t.Fatalf("AUIPC: %v", err)
	}
	want := uint64(0xFFFFFFFF80000000)
	if h.GPR[1] != want {
		t.Fatalf("x1 = %#x, want %#x", h.GPR[1], want)
	}
}

func TestBranchMisalignedTargetTraps(t *testing.T) {
	// BEQ x0, x0, 2 (taken, target = pc+2, misaligned).
	raw := uint32(0)
	raw |= 0x63    // opcode BRANCH
	raw |= 0 << 12 // funct3 BEQ
	// b_imm bit 1 (value 2) lives at raw bit 8 (imm[4:1] -> raw[11:8]).
	raw |= 1 << 8
	h := newTestHart(t, 4096, 0, raw)
	err := h.Execute()
	var trapErr *TrapError
	if !errors.As(err, &trapErr) {
		t.Fatalf("expected a trap, got %v", err)
	}
	if trapErr.Cause != InstructionAddressMisaligned {
		t.Fatalf("cause = %v, want InstructionAddressMisaligned", trapErr.Cause)
	}
}

func TestLoadSignExtends(t *testing.T) {
	m := memory.New(4096)
	if err := m.Store32(0x100, 0xFFFFFF80); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// LB x1, 0(x2) with x2 = 0x100
	raw := uint32(0<<20 | 2<<15 | 0<<12 | 1<<7 | 0x03)
	h := New(m, 0)
	h.GPR[2] = 0x100
	if err := m.Store32(0, raw); err != nil {
		t.Fatalf("seed instr: %v", err)
	}
	if err := h.Execute(); err != nil {
		t.Fatalf("LB: %v", err)
	}
	if h.GPR[1] != ^uint64(0)-0x7F { // sign-extended 0x80 -> -128
		t.Fatalf("x1 = %#x, want sign-extended -128", h.GPR[1])
	}
}

func TestSraiwVsSrliw(t *testing.T) {
	// SRAIW x2, x1, 1 with x1 = 0xFFFF_FFFF_8000_0000
	sraiw := uint32(1<<20 | 1<<30 | 1<<15 | 5<<12 | 2<<7 | 0x1B)
	h := newTestHart(t, 4096, 0, sraiw)
	h.GPR[1] = 0xFFFFFFFF80000000
	if err := h.Execute(); err != nil {
		t.Fatalf("SRAIW: %v", err)
	}
	if h.GPR[2] != 0xFFFFFFFFC0000000 {
		t.Fatalf("SRAIW x2 = %#x, want 0xFFFFFFFFC0000000", h.GPR[2])
	}

	srliw := uint32(1<<20 | 1<<15 | 5<<12 | 2<<7 | 0x1B)
	h2 := newTestHart(t, 4096, 0, srliw)
	h2.GPR[1] = 0xFFFFFFFF80000000
	if err := h2.Execute(); err != nil {
		t.Fatalf("SRLIW: %v", err)
	}
	if h2.GPR[2] != 0x0000000040000000 {
		t.Fatalf("SRLIW x2 = %#x, want 0x40000000", h2.GPR[2])
	}
}

func TestCsrrwReadsOriginalBeforeWrite(t *testing.T) {
	// CSRRW x1, mscratch, x2  with x2 holding a fresh value.
	raw := uint32(uint32(csr.Mscratch)<<20 | 2<<15 | 1<<12 | 1<<7 | 0x73)
	h := newTestHart(t, 4096, 0, raw)
	h.GPR[2] = 0xABCD
	if err := h.Execute(); err != nil {
		t.Fatalf("CSRRW: %v", err)
	}
	if h.GPR[1] != 0 {
		t.Fatalf("x1 = %#x, want 0 (original mscratch)", h.GPR[1])
	}
	v, _ := h.CSR.Access(csr.Mscratch, func(v uint64) uint64 { return v })
	if v != 0xABCD {
		t.Fatalf("mscratch = %#x, want 0xABCD", v)
	}
}

func TestGpr0AlwaysReadsZeroAfterExecute(t *testing.T) {
	// ADDI x0, x0, 5, writes to x0, which must read back as zero.
	raw := uint32(5<<20 | 0<<15 | 0<<12 | 0<<7 | 0x13)
	h := newTestHart(t, 4096, 0, raw)
	if err := h.Execute(); err != nil {
		t.Fatalf("ADDI x0: %v", err)
	}
	if h.GPR[0] != 0 {
		t.Fatalf("x0 = %#x, want 0", h.GPR[0])
	}
}

func TestCsrrsWithX0OnReadOnlyIsLegal(t *testing.T) {
	// CSRRS x1, mhartid, x0: rs1=x0 so this is a read, not a write; legal
	// even though mhartid is read-only.
	raw := uint32(uint32(csr.Mhartid)<<20 | 0<<15 | 2<<12 | 1<<7 | 0x73)
	h := newTestHart(t, 4096, 0, raw)
	if err := h.Execute(); err != nil {
		t.Fatalf("CSRRS mhartid, x0: %v", err)
	}
}

func TestUnknownOpcodeTrapsIllegalInstruction(t *testing.T) {
	h := newTestHart(t, 4096, 0, 0) // all-zero word decodes to no handler
	err := h.Execute()
	var trapErr *TrapError
	if !errors.As(err, &trapErr) || trapErr.Cause != IllegalInstruction {
		t.Fatalf("expected IllegalInstruction, got %v", err)
	}
}

func TestTrapEntersMachineByDefault(t *testing.T) {
	h := newTestHart(t, 4096, 0, 0)
	if err := h.Execute(); err == nil {
		t.Fatalf("expected a trap")
	}
	if h.Privilege != csr.Machine {
		t.Fatalf("privilege = %v, want Machine", h.Privilege)
	}
	mepc, _ := h.CSR.Access(csr.Mepc, func(v uint64) uint64 { return v })
	if mepc != 0 {
		t.Fatalf("mepc = %#x, want 0", mepc)
	}
}

func TestDelegatedTrapEntersSupervisor(t *testing.T) {
	h := newTestHart(t, 4096, 0, 0)
	h.Privilege = csr.Supervisor
	h.CSR.Access(csr.Medeleg, func(uint64) uint64 { return 1 << uint(IllegalInstruction) })

	if err := h.Execute(); err == nil {
		t.Fatalf("expected a trap")
	}
	if h.Privilege != csr.Supervisor {
		t.Fatalf("privilege = %v, want Supervisor (delegated)", h.Privilege)
	}
}
