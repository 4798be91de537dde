package scantype

import "testing"

func TestByteWidthAndScanStep(t *testing.T) {
	cases := []struct {
		typ       Type
		wantWidth int
		wantStep  int
	}{
		{U8, 1, 1},
		{S8, 1, 1},
		{U16, 2, 1},
		{S16, 2, 1},
		{U32, 4, 4},
		{S32, 4, 4},
		{U64, 8, 8},
		{S64, 8, 8},
		{F32, 4, 4},
		{F64, 8, 8},
		{Pointer, 8, 8},
		{U40, 8, 8},
	}
	for _, c := range cases {
		if got := ByteWidth(c.typ); got != c.wantWidth {
			t.Errorf("ByteWidth(%v) = %d, want %d", c.typ, got, c.wantWidth)
		}
		if got := ScanStep(c.typ); got != c.wantStep {
			t.Errorf("ScanStep(%v) = %d, want %d", c.typ, got, c.wantStep)
		}
	}
}

func TestValid(t *testing.T) {
	if !U8.Valid() || !U40.Valid() {
		t.Errorf("expected U8 and U40 to be valid")
	}
	if Type(-1).Valid() {
		t.Errorf("expected -1 to be invalid")
	}
	if Type(100).Valid() {
		t.Errorf("expected 100 to be invalid")
	}
}

func TestLoadUnalignedRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	PutUnaligned(buf, 1, uint32(0xDEADBEEF))
	if got := LoadUnaligned[uint32](buf, 1); got != 0xDEADBEEF {
		t.Fatalf("got 0x%x, want 0xDEADBEEF", got)
	}
	PutUnaligned(buf, 3, float64(2.5))
	if got := LoadUnaligned[float64](buf, 3); got != 2.5 {
		t.Fatalf("got %v, want 2.5", got)
	}
}

func TestOperandAsU32(t *testing.T) {
	buf := make([]byte, 8)
	PutUnaligned(buf, 0, int32(-1))
	if got := OperandAsU32(S32, buf); got != 0xFFFFFFFF {
		t.Fatalf("S32 -1 -> got 0x%x, want 0xFFFFFFFF", got)
	}
	buf2 := make([]byte, 8)
	PutUnaligned(buf2, 0, float32(42))
	if got := OperandAsU32(F32, buf2); got != 42 {
		t.Fatalf("F32 42 -> got %d, want 42", got)
	}
}
