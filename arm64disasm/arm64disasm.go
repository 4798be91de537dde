// Package arm64disasm implements annotate.Disassembler over a real
// ARM64 instruction decoder, for use by the opcode annotator's
// store-static literal rendering (spec §4.7).
package arm64disasm

import (
	"encoding/binary"

	"golang.org/x/arch/arm64/arm64asm"
)

// Decoder renders a 32-bit word as its ARM64 mnemonic. The zero value
// is ready to use.
type Decoder struct{}

// New returns a ready-to-use Decoder.
func New() Decoder {
	return Decoder{}
}

// Disassemble decodes word as a little-endian ARM64 instruction and
// returns its GNU-syntax string, or "" if word is not a valid
// instruction encoding. address is accepted for interface symmetry with
// annotate.Disassembler but arm64asm's GNUSyntax does not need it.
func (Decoder) Disassemble(word uint32, address uint64) string {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, word)

	inst, err := arm64asm.Decode(buf)
	if err != nil {
		return ""
	}
	return arm64asm.GNUSyntax(inst)
}
