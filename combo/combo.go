// Package combo implements the combo gate (C6): wrapping a cheat's
// opcode body in a button-press-conditioned prologue/epilogue pair, and
// undoing it. See spec §4.6.
package combo

import (
	"context"
	"fmt"

	"github.com/tomvita/Breezehand-Overlay-sub000/cheat"
)

// prologueTopNibble identifies a combo-gate prologue opcode (top
// nibble 0x8, low 28 bits the keymask).
const prologueTopNibble = 0x8

// epilogue is the fixed combo-gate epilogue opcode, the same value as
// the folder-start sentinel (cheat.FolderStart, 0x20000000).
const epilogue = cheat.FolderStart

// maxOpcodes mirrors the cheat package's fixed opcode capacity.
const maxOpcodes = 0x100

func topNibble(word uint32) uint32 {
	return word >> 28
}

// AddCombo wraps e's opcodes in a combo-gate prologue/epilogue pair
// keyed on keymask (a 28-bit button mask), per §4.6. If the first
// opcode is already a combo-gate prologue, its mask is simply replaced
// in place. Returns an error if the result would exceed the fixed
// opcode capacity.
func AddCombo(e cheat.Entry, keymask uint32) (cheat.Entry, error) {
	out := e
	out.Opcodes = append([]uint32(nil), e.Opcodes...)

	if len(out.Opcodes) > 0 && topNibble(out.Opcodes[0]) == prologueTopNibble {
		out.Opcodes[0] = 0x80000000 | (keymask & 0x0FFFFFFF)
		return out, nil
	}

	if len(out.Opcodes)+2 > maxOpcodes {
		return e, fmt.Errorf("combo: adding a combo gate would exceed capacity (%d+2 > %d)", len(out.Opcodes), maxOpcodes)
	}

	wrapped := make([]uint32, 0, len(out.Opcodes)+2)
	wrapped = append(wrapped, 0x80000000|(keymask&0x0FFFFFFF))
	wrapped = append(wrapped, out.Opcodes...)
	wrapped = append(wrapped, epilogue)
	out.Opcodes = wrapped
	return out, nil
}

// RemoveCombo undoes AddCombo: if the first opcode is a combo-gate
// prologue and the last opcode has the epilogue's top nibble (0x2; the
// rest of that word is not checked), both are stripped. Otherwise e
// is returned unchanged along with ok=false ("no combo"), per §4.6.
func RemoveCombo(e cheat.Entry) (result cheat.Entry, ok bool) {
	n := len(e.Opcodes)
	if n < 2 {
		return e, false
	}
	if topNibble(e.Opcodes[0]) != prologueTopNibble {
		return e, false
	}
	if topNibble(e.Opcodes[n-1]) != topNibble(epilogue) {
		return e, false
	}

	out := e
	out.Opcodes = append([]uint32(nil), e.Opcodes[1:n-1]...)
	return out, true
}

// AddComboAndRegister applies AddCombo and re-registers the result with
// svc, detaching the prior entry first, since the cheat service has no
// mutate-in-place operation (§4.6).
func AddComboAndRegister(ctx context.Context, svc cheat.CheatService, e cheat.Entry, keymask uint32) (cheat.Entry, error) {
	updated, err := AddCombo(e, keymask)
	if err != nil {
		return e, err
	}
	return reRegister(ctx, svc, e, updated)
}

// RemoveComboAndRegister applies RemoveCombo and re-registers the
// result with svc, mirroring AddComboAndRegister.
func RemoveComboAndRegister(ctx context.Context, svc cheat.CheatService, e cheat.Entry) (cheat.Entry, bool, error) {
	updated, ok := RemoveCombo(e)
	if !ok {
		return e, false, nil
	}
	if _, err := reRegister(ctx, svc, e, updated); err != nil {
		return e, false, err
	}
	return updated, true, nil
}

func reRegister(ctx context.Context, svc cheat.CheatService, original, updated cheat.Entry) (cheat.Entry, error) {
	if original.IsMaster() {
		if err := svc.SetMaster(ctx, updated); err != nil {
			return original, err
		}
		return updated, nil
	}
	if err := svc.RemoveCheat(ctx, original.ID); err != nil {
		return original, err
	}
	if err := svc.AddCheat(ctx, updated); err != nil {
		return original, err
	}
	return updated, nil
}
