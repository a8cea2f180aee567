package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/rv64sim/hart/pkg/csr"
	"github.com/rv64sim/hart/pkg/hart"
)

// runMonitor opens an interactive, line-edited command loop that lets an
// operator single-step h, inspect its observable state between steps
// (spec §6's "pc, next, gpr[], csr[], pending trap" contract), and set a
// breakpoint on pc.
func runMonitor(h *hart.Hart) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var out []string
		for _, c := range []string{"step", "continue", "regs", "csr", "break", "quit", "help"} {
			if strings.HasPrefix(c, partial) {
				out = append(out, c)
			}
		}
		return out
	})

	var breakpoint uint64
	var hasBreakpoint bool

	fmt.Println("rv64sim monitor, type 'help' for commands")
	for {
		input, err := line.Prompt("rv64sim> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			fmt.Println("rv64sim: error reading command:", err)
			return
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			fmt.Println("commands: step [n], continue, regs, csr <name>, break <pc>, quit")
		case "step":
			n := 1
			if len(fields) > 1 {
				if v, err := strconv.Atoi(fields[1]); err == nil {
					n = v
				}
			}
			for i := 0; i < n; i++ {
				if !stepOnce(h) {
					break
				}
			}
		case "continue":
			for {
				if hasBreakpoint && h.PC == breakpoint {
					fmt.Printf("rv64sim: hit breakpoint at pc=%#x\n", h.PC)
					break
				}
				if !stepOnce(h) {
					break
				}
			}
		case "regs":
			printRegs(h)
		case "csr":
			if len(fields) < 2 {
				fmt.Println("usage: csr <name>")
				continue
			}
			printCsr(h, fields[1])
		case "break":
			if len(fields) < 2 {
				fmt.Println("usage: break <hex-pc>")
				continue
			}
			addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 64)
			if err != nil {
				fmt.Println("rv64sim: bad address:", err)
				continue
			}
			breakpoint = addr
			hasBreakpoint = true
			fmt.Printf("rv64sim: breakpoint set at pc=%#x\n", addr)
		case "quit", "exit":
			return
		default:
			fmt.Printf("rv64sim: unknown command %q\n", fields[0])
		}
	}
}

// stepOnce executes one instruction and prints a trap if one occurred. It
// returns false when the caller should stop stepping (a trap fired).
func stepOnce(h *hart.Hart) bool {
	err := h.Execute()
	if err == nil {
		return true
	}
	var trapErr *hart.TrapError
	if errors.As(err, &trapErr) {
		fmt.Printf("rv64sim: trapped: %s (now at pc=%#x, privilege=%v)\n", trapErr, h.PC, h.Privilege)
	}
	return false
}

func printRegs(h *hart.Hart) {
	fmt.Printf("pc=%#018x next=%#018x privilege=%v\n", h.PC, h.Next, h.Privilege)
	for i := 0; i < 32; i += 4 {
		fmt.Printf("x%-2d=%#018x x%-2d=%#018x x%-2d=%#018x x%-2d=%#018x\n",
			i, h.GPR[i], i+1, h.GPR[i+1], i+2, h.GPR[i+2], i+3, h.GPR[i+3])
	}
}

var csrNamesByAddr = map[string]uint16{
	"mstatus":  csr.Mstatus,
	"sstatus":  csr.Sstatus,
	"medeleg":  csr.Medeleg,
	"mideleg":  csr.Mideleg,
	"mie":      csr.Mie,
	"sie":      csr.Sie,
	"mtvec":    csr.Mtvec,
	"stvec":    csr.Stvec,
	"mscratch": csr.Mscratch,
	"sscratch": csr.Sscratch,
	"mepc":     csr.Mepc,
	"sepc":     csr.Sepc,
	"mcause":   csr.Mcause,
	"scause":   csr.Scause,
	"mtval":    csr.Mtval,
	"stval":    csr.Stval,
	"mip":      csr.Mip,
	"sip":      csr.Sip,
	"mhartid":  csr.Mhartid,
}

func printCsr(h *hart.Hart, name string) {
	addr, ok := csrNamesByAddr[strings.ToLower(name)]
	if !ok {
		fmt.Printf("rv64sim: unknown CSR %q\n", name)
		return
	}
	v, _ := h.CSR.Access(addr, func(v uint64) uint64 { return v })
	fmt.Printf("%s = %#018x\n", name, v)
}
