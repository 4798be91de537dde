// Package annotate implements the opcode annotator (C7): a structural
// walker over a 32-bit Atmosphere-style cheat-VM opcode stream that
// produces one human-readable note per instruction, per spec §4.7.
package annotate

import (
	"fmt"
	"math"
)

// Disassembler renders a 32-bit word as an ARM64 mnemonic at the given
// (purely informational) address; it returns "" on failure. The
// annotator suppresses disassembler failures silently.
type Disassembler interface {
	Disassemble(word uint32, address uint64) string
}

// topNibble classifies the first word of an instruction.
func topNibble(word uint32) uint32 {
	return word >> 28
}

// subNibble is the second-from-top nibble, used by the 0xC family and
// by the variable-length families to select a sub-kind.
func subNibble(word uint32) uint32 {
	return (word >> 24) & 0xF
}

// InstructionLength returns the number of 32-bit words the instruction
// starting at opcodes[i] occupies, per the length rules of §4.7.
// Never returns 0 and never reads past len(opcodes): a truncated tail
// (fewer words available than the rule demands) is clamped to what
// remains, so the walker always advances and terminates in O(n).
func InstructionLength(opcodes []uint32, i int) int {
	if i >= len(opcodes) {
		return 1
	}
	word := opcodes[i]
	n := topNibble(word)

	var want int
	switch n {
	case 0x0: // store-static
		want = 3
	case 0x1: // begin-conditional
		want = 3
	case 0x2: // end-conditional / else
		want = 1
	case 0x3: // loop-control: start takes one extra iteration-count word
		if subNibble(word) == 0 {
			want = 2
		} else {
			want = 1
		}
	case 0x4: // load-reg-static
		want = 3
	case 0x5: // load-reg-memory
		want = 2
	case 0x6: // store-static-to-reg-address
		want = 3
	case 0x7: // arith-static
		want = 2
	case 0x8: // begin-keypress
		want = 1
	case 0x9: // arith-register: has-immediate bit (bit 4 of the first word) controls
		if word&0x00000010 != 0 {
			want = 2
		} else {
			want = 1
		}
	case 0xA: // store-reg-to-address: offset-type field (low nibble) controls
		if word&0xF != 0 {
			want = 2
		} else {
			want = 1
		}
	case 0xC:
		switch subNibble(word) {
		case 0x0: // begin-register-conditional: compare-type picks 1-3 words
			want = 1 + int((word>>20)&0x3)
			if want > 3 {
				want = 3
			}
		case 0x1, 0x2: // save/restore registers
			want = 1
		case 0x3: // static register r/w
			want = 1
		case 0x4: // extended-keypress: 64-bit mask
			want = 3
		default:
			want = 1
		}
	case 0xF:
		// FF0/FF1/FFF: pause/resume/debug-log are distinguished by the
		// low 20 bits, all single-word.
		want = 1
	default:
		want = 1
	}

	if i+want > len(opcodes) {
		want = len(opcodes) - i
	}
	if want < 1 {
		want = 1
	}
	return want
}

// Walk decodes opcodes into one note string per instruction. It is a
// pure function of its input (aside from the disasm capability call):
// no mutation, no allocation beyond the output slice. minimal toggles
// between the short and verbose note forms.
func Walk(opcodes []uint32, minimal bool, disasm Disassembler) []string {
	notes := make([]string, 0, len(opcodes))
	for i := 0; i < len(opcodes); {
		length := InstructionLength(opcodes, i)
		instr := opcodes[i : i+length]
		notes = append(notes, annotateInstruction(instr, minimal, disasm))
		i += length
	}
	return notes
}

func annotateInstruction(instr []uint32, minimal bool, disasm Disassembler) string {
	word := instr[0]
	n := topNibble(word)

	switch n {
	case 0x0:
		return annotateStoreStatic(instr, minimal, disasm)
	case 0x1:
		return fmt.Sprintf("If [%s] %s", addrString(instr), compareOpString(subNibble(word)))
	case 0x2:
		return "Else / End Conditional Block"
	case 0x3:
		if subNibble(word) == 0 {
			iterations := uint32(0)
			if len(instr) > 1 {
				iterations = instr[1]
			}
			return fmt.Sprintf("Start Loop (register %d, %d iterations)", (word>>20)&0xF, iterations)
		}
		return fmt.Sprintf("End Loop (register %d)", (word>>20)&0xF)
	case 0x4:
		return fmt.Sprintf("Load Register %d = [%s]", (word>>16)&0xF, addrString(instr))
	case 0x5:
		return fmt.Sprintf("Load Register %d from memory", (word>>16)&0xF)
	case 0x6:
		return fmt.Sprintf("[Register %d + offset] = [%s]", (word>>16)&0xF, addrString(instr))
	case 0x7:
		return fmt.Sprintf("Register %d %s static value", (word>>16)&0xF, arithOpString((word>>20)&0xF))
	case 0x8:
		return fmt.Sprintf("Begin Keypress Conditional Block (mask=0x%07X)", word&0x0FFFFFFF)
	case 0x9:
		return fmt.Sprintf("Register %d %s another register", (word>>16)&0xF, arithOpString((word>>20)&0xF))
	case 0xA:
		return fmt.Sprintf("[Register %d] = Register %d", (word>>16)&0xF, (word>>20)&0xF)
	case 0xC:
		return annotateRegisterFamily(instr, minimal, disasm)
	case 0xF:
		return fmt.Sprintf("Control Opcode 0x%08X", word)
	default:
		return fmt.Sprintf("Opcode Type %X", n)
	}
}

func addrString(instr []uint32) string {
	if len(instr) < 2 {
		return fmt.Sprintf("0x%02X", instr[0]&0xFF)
	}
	addr := (uint64(instr[0]&0xFF) << 32) | uint64(instr[1])
	return fmt.Sprintf("0x%010X", addr)
}

func compareOpString(sub uint32) string {
	ops := []string{">", ">=", "<", "<=", "==", "!="}
	if int(sub) < len(ops) {
		return ops[sub]
	}
	return "?"
}

func arithOpString(sub uint32) string {
	ops := []string{"+=", "-=", "*=", "<<=", ">>=", "&=", "|=", "^=", "!=", "="}
	if int(sub) < len(ops) {
		return ops[sub]
	}
	return "op"
}

func annotateStoreStatic(instr []uint32, minimal bool, disasm Disassembler) string {
	addr := addrString(instr)
	var value uint64
	if len(instr) >= 3 {
		value = uint64(instr[2])
	}
	if minimal {
		note := fmt.Sprintf("[%s] = 0x%X", addr, value)
		return note + disasmSuffix(uint32(value), 0, disasm)
	}
	note := fmt.Sprintf("[%s] = 0x%X (%d)", addr, value, value)
	if value <= math.MaxUint32 {
		f32 := math.Float32frombits(uint32(value))
		note += fmt.Sprintf(" f32=%g", f32)
	}
	return note + disasmSuffix(uint32(value), 0, disasm)
}

func annotateRegisterFamily(instr []uint32, minimal bool, disasm Disassembler) string {
	word := instr[0]
	switch subNibble(word) {
	case 0x0:
		return fmt.Sprintf("If Register %d %s static value", (word>>16)&0xF, compareOpString((word>>20)&0x7))
	case 0x1:
		return fmt.Sprintf("Save Register %d", (word>>16)&0xF)
	case 0x2:
		return fmt.Sprintf("Restore Register %d", (word>>16)&0xF)
	case 0x3:
		return fmt.Sprintf("Static Register %d Read/Write", (word>>16)&0xF)
	case 0x4:
		mask := uint64(0)
		if len(instr) >= 3 {
			mask = uint64(instr[1])<<32 | uint64(instr[2])
		}
		return fmt.Sprintf("Begin Extended Keypress Conditional Block (mask=0x%016X)", mask)
	default:
		return fmt.Sprintf("Opcode Type C%X", subNibble(word))
	}
}

// disasmSuffix asks disasm to render word and appends " asm=<mnemonic>"
// when non-empty; disassembler failures (empty string, or disasm==nil)
// are silently suppressed.
func disasmSuffix(word uint32, address uint64, disasm Disassembler) string {
	if disasm == nil {
		return ""
	}
	mnemonic := disasm.Disassemble(word, address)
	if mnemonic == "" {
		return ""
	}
	return " asm=" + mnemonic
}
