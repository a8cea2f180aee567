package hart

import (
	"github.com/rv64sim/hart/pkg/csr"
	"github.com/rv64sim/hart/pkg/decode"
)

// legalCsrAccess reports whether addr may be touched by an instruction at
// the hart's current privilege, given whether this particular instruction
// form would write (spec §4.3 rules 2-3; §4.5 Zicsr steps 1-2).
func legalCsrAccess(h *Hart, addr uint16, wouldWrite bool) bool {
	if !csr.IsImplemented(addr) {
		return false
	}
	if h.Privilege < csr.MinPrivilege(addr) {
		return false
	}
	if wouldWrite && csr.IsReadOnly(addr) {
		return false
	}
	return true
}

// doCsr runs the common Zicsr protocol: legality check, the
// read-modify-write through f (the caller has already captured the
// pre-access operand in its own closure, so rd==rs1 still observes the
// right value), and the rd writeback on success.
func doCsr(h *Hart, raw uint32, wouldWrite bool, f func(current uint64) uint64) error {
	addr := decode.CsrIndex(raw)
	if !legalCsrAccess(h, addr, wouldWrite) {
		return h.trap(IllegalInstruction, uint64(raw))
	}

	original, ok := h.CSR.Access(addr, f)
	if !ok {
		return h.trap(IllegalInstruction, uint64(raw))
	}
	h.GPR[decode.Rd(raw)] = original
	return nil
}

func csrrw(h *Hart, raw uint32) error {
	initial := h.GPR[decode.Rs1(raw)]
	return doCsr(h, raw, true, func(uint64) uint64 { return initial })
}

func csrrs(h *Hart, raw uint32) error {
	initial := h.GPR[decode.Rs1(raw)]
	wouldWrite := decode.Rs1(raw) != 0
	return doCsr(h, raw, wouldWrite, func(current uint64) uint64 { return current | initial })
}

func csrrc(h *Hart, raw uint32) error {
	initial := h.GPR[decode.Rs1(raw)]
	wouldWrite := decode.Rs1(raw) != 0
	return doCsr(h, raw, wouldWrite, func(current uint64) uint64 { return current &^ initial })
}

func csrrwi(h *Hart, raw uint32) error {
	imm := decode.Uimm(raw)
	return doCsr(h, raw, true, func(uint64) uint64 { return imm })
}

func csrrsi(h *Hart, raw uint32) error {
	imm := decode.Uimm(raw)
	return doCsr(h, raw, imm != 0, func(current uint64) uint64 { return current | imm })
}

func csrrci(h *Hart, raw uint32) error {
	imm := decode.Uimm(raw)
	return doCsr(h, raw, imm != 0, func(current uint64) uint64 { return current &^ imm })
}
