package combo

import (
	"reflect"
	"testing"

	"github.com/tomvita/Breezehand-Overlay-sub000/cheat"
)

func TestAddComboRoundTrip(t *testing.T) {
	e := cheat.Entry{
		ID:      1,
		Name:    "Test",
		Opcodes: []uint32{0x04000010, 0x00000000, 0xDEADBEEF},
	}

	wrapped, err := AddCombo(e, 0x00000200)
	if err != nil {
		t.Fatalf("AddCombo: %v", err)
	}
	want := []uint32{0x80000200, 0x04000010, 0x00000000, 0xDEADBEEF, 0x20000000}
	if !reflect.DeepEqual(wrapped.Opcodes, want) {
		t.Fatalf("AddCombo opcodes = %#x, want %#x", wrapped.Opcodes, want)
	}

	restored, ok := RemoveCombo(wrapped)
	if !ok {
		t.Fatalf("RemoveCombo reported no combo present")
	}
	if !reflect.DeepEqual(restored.Opcodes, e.Opcodes) {
		t.Fatalf("RemoveCombo opcodes = %#x, want original %#x", restored.Opcodes, e.Opcodes)
	}
}

func TestAddComboReplacesExistingPrologue(t *testing.T) {
	e := cheat.Entry{Opcodes: []uint32{0x80000200, 0x04000010, 0x20000000}}
	updated, err := AddCombo(e, 0x00000300)
	if err != nil {
		t.Fatalf("AddCombo: %v", err)
	}
	if len(updated.Opcodes) != len(e.Opcodes) {
		t.Fatalf("AddCombo on an already-gated entry should not grow the opcode list, got %d words", len(updated.Opcodes))
	}
	if updated.Opcodes[0] != 0x80000300 {
		t.Fatalf("updated prologue = %#x, want mask replaced", updated.Opcodes[0])
	}
}

func TestRemoveComboNoOpWithoutGate(t *testing.T) {
	e := cheat.Entry{Opcodes: []uint32{0x04000010, 0x00000000, 0xDEADBEEF}}
	result, ok := RemoveCombo(e)
	if ok {
		t.Fatalf("RemoveCombo should report no combo present")
	}
	if !reflect.DeepEqual(result.Opcodes, e.Opcodes) {
		t.Fatalf("RemoveCombo should leave opcodes unchanged, got %#x", result.Opcodes)
	}
}

func TestAddComboRejectsOverflow(t *testing.T) {
	opcodes := make([]uint32, 0x100-1)
	for i := range opcodes {
		opcodes[i] = 0x04000010
	}
	e := cheat.Entry{Opcodes: opcodes}
	if _, err := AddCombo(e, 0); err == nil {
		t.Fatalf("expected AddCombo to reject a wrap that would exceed capacity")
	}
}
