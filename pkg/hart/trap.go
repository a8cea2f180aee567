package hart

import (
	"fmt"

	"github.com/rv64sim/hart/pkg/csr"
)

// TrapCause identifies why a trap was raised. Exceptions occupy the low
// bits of the value; interrupts share the same numbering with bit 63 set.
type TrapCause uint64

const interruptBit = uint64(1) << 63

// Exception causes, numbered per the RISC-V privileged architecture.
const (
	InstructionAddressMisaligned TrapCause = 0
	InstructionAccessFault       TrapCause = 1
	IllegalInstruction           TrapCause = 2
	Breakpoint                   TrapCause = 3
	LoadAddressMisaligned        TrapCause = 4
	LoadAccessFault              TrapCause = 5
	StoreAmoAddressMisaligned    TrapCause = 6
	StoreAmoAccessFault          TrapCause = 7
	EnvironmentCallFromUMode     TrapCause = 8
	EnvironmentCallFromSMode     TrapCause = 9
	EnvironmentCallFromMMode     TrapCause = 11
	InstructionPageFault         TrapCause = 12
	LoadPageFault                TrapCause = 13
	StoreAmoPageFault            TrapCause = 15
)

// Interrupt causes. Nothing in this simulator raises these today (there is
// no timer or external interrupt source, see spec Non-goals), but the
// encoding is part of the architectural cause numbering and mcause/scause
// must be able to represent them.
const (
	UserSoftwareInterrupt       TrapCause = 0 | TrapCause(interruptBit)
	SupervisorSoftwareInterrupt TrapCause = 1 | TrapCause(interruptBit)
	MachineSoftwareInterrupt    TrapCause = 3 | TrapCause(interruptBit)
	UserTimerInterrupt          TrapCause = 4 | TrapCause(interruptBit)
	SupervisorTimerInterrupt    TrapCause = 5 | TrapCause(interruptBit)
	MachineTimerInterrupt       TrapCause = 7 | TrapCause(interruptBit)
	UserExternalInterrupt       TrapCause = 8 | TrapCause(interruptBit)
	SupervisorExternalInterrupt TrapCause = 9 | TrapCause(interruptBit)
	MachineExternalInterrupt    TrapCause = 11 | TrapCause(interruptBit)
)

// IsInterrupt reports whether c is an interrupt cause rather than an
// exception cause.
func (c TrapCause) IsInterrupt() bool {
	return uint64(c)&interruptBit != 0
}

// TrapError is the error-shaped view of a trap for callers (the CLI, the
// test harness) that want to use errors.As instead of reading hart state
// directly. The hart's own architectural state has already been updated
// by the time this is returned; TrapError is a read-only snapshot.
type TrapError struct {
	Cause TrapCause
	Value uint64
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("hart: trap cause=%#x tval=%#x", uint64(e.Cause), e.Value)
}

// trap performs the trap transition of spec §4.7: it picks the target
// privilege (Supervisor only if the current privilege is not Machine and
// the cause is delegated through medeleg/mideleg as appropriate to its
// kind), latches cause/epc/tval into the chosen register set, redirects
// Next through *tvec if its mode is direct, and updates h.Privilege. It
// always returns a non-nil *TrapError describing what happened.
func (h *Hart) trap(cause TrapCause, value uint64) error {
	targetPriv := csr.Machine
	if h.Privilege != csr.Machine {
		var delegated bool
		if cause.IsInterrupt() {
			delegated = csr.IsDelegated(h.CSR.RawMideleg(), uint64(cause))
		} else {
			delegated = csr.IsDelegated(h.CSR.RawMedeleg(), uint64(cause))
		}
		if delegated {
			targetPriv = csr.Supervisor
		}
	}

	epc := h.PC
	if cause.IsInterrupt() {
		epc = h.Next
	}

	if targetPriv == csr.Supervisor {
		h.CSR.SetScause(uint64(cause))
		h.CSR.SetSepc(epc)
		h.CSR.SetStval(value)
		if csr.TvecMode(h.CSR.RawStvec()) == 0 {
			h.Next = csr.TvecBase(h.CSR.RawStvec())
		}
	} else {
		h.CSR.SetMcause(uint64(cause))
		h.CSR.SetMepc(epc)
		h.CSR.SetMtval(value)
		if csr.TvecMode(h.CSR.RawMtvec()) == 0 {
			h.Next = csr.TvecBase(h.CSR.RawMtvec())
		}
	}

	h.Privilege = targetPriv
	return &TrapError{Cause: cause, Value: value}
}
