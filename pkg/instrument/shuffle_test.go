package instrument

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/stacklog/pkg/bytecode"
)

func TestEmitSwapPatterns(t *testing.T) {
	tests := []struct {
		top, under bytecode.Type
		want       []bytecode.Opcode
	}{
		{bytecode.Int, bytecode.ObjectType, []bytecode.Opcode{bytecode.OpSwap}},
		{bytecode.Long, bytecode.Int, []bytecode.Opcode{bytecode.OpDup2X1, bytecode.OpPop2}},
		{bytecode.Float, bytecode.Double, []bytecode.Opcode{bytecode.OpDupX2, bytecode.OpPop}},
		{bytecode.Double, bytecode.Long, []bytecode.Opcode{bytecode.OpDup2X2, bytecode.OpPop2}},
	}

	for _, tt := range tests {
		l := bytecode.NewListing("")
		if err := EmitSwap(l, tt.top, tt.under); err != nil {
			t.Errorf("EmitSwap(%s, %s): %v", tt.top, tt.under, err)
			continue
		}
		if diff := cmp.Diff(tt.want, l.Opcodes()); diff != "" {
			t.Errorf("EmitSwap(%s, %s) (-want +got):\n%s", tt.top, tt.under, diff)
			continue
		}

		sim := bytecode.NewSimulator()
		sim.Push("under", tt.under)
		sim.Push("top", tt.top)
		if err := sim.Run(l.Code); err != nil {
			t.Errorf("EmitSwap(%s, %s): simulate: %v", tt.top, tt.under, err)
			continue
		}
		if diff := cmp.Diff([]string{"top", "under"}, sim.Labels()); diff != "" {
			t.Errorf("EmitSwap(%s, %s) stack (-want +got):\n%s", tt.top, tt.under, diff)
		}
	}
}

func TestSwapRoundTrip(t *testing.T) {
	for _, v := range []bytecode.Type{bytecode.Int, bytecode.ObjectType, bytecode.Long, bytecode.Double} {
		t.Run(v.String(), func(t *testing.T) {
			sim := bytecode.NewSimulator()
			sim.Push("w", bytecode.Int)
			sim.Push("V", v)

			if err := SwapTwoWordsAndOneWord(sim, v); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"V", "w"}, sim.Labels()); diff != "" {
				t.Fatalf("after SwapTwoWordsAndOneWord (-want +got):\n%s", diff)
			}

			if err := SwapOneWordAndTwoWords(sim, v); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"w", "V"}, sim.Labels()); diff != "" {
				t.Fatalf("after SwapOneWordAndTwoWords (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSwapTwoWordsAndOneWordOps(t *testing.T) {
	l := bytecode.NewListing("")
	for _, err := range []error{
		SwapTwoWordsAndOneWord(l, bytecode.Long),
		SwapOneWordAndTwoWords(l, bytecode.Double),
		SwapOneWordAndTwoWords(l, bytecode.Int),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}

	want := []bytecode.Opcode{
		bytecode.OpDup2X1, bytecode.OpPop2,
		bytecode.OpDupX2, bytecode.OpPop,
		bytecode.OpSwap,
	}
	if diff := cmp.Diff(want, l.Opcodes()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDupPatternsPreserveOriginal(t *testing.T) {
	for pattern, op := range dupPatterns {
		sim := bytecode.NewSimulator()
		if pattern.under > 0 {
			sim.Push("under", typeOfWidth(pattern.under))
		}
		sim.Push("v", typeOfWidth(pattern.top))

		if err := sim.Apply(bytecode.Insn(op)); err != nil {
			t.Errorf("%s: %v", op, err)
			continue
		}
		want := []string{"v", "v"}
		if pattern.under > 0 {
			want = []string{"v", "under", "v"}
		}
		if diff := cmp.Diff(want, sim.Labels()); diff != "" {
			t.Errorf("%s (-want +got):\n%s", op, diff)
		}
	}
}

func typeOfWidth(w int) bytecode.Type {
	if w == 2 {
		return bytecode.Long
	}
	return bytecode.Int
}

func TestSwapRejectsWidthlessTypes(t *testing.T) {
	l := bytecode.NewListing("")

	if err := SwapTwoWordsAndOneWord(l, bytecode.Void); !errors.Is(err, ErrUnknownType) {
		t.Errorf("SwapTwoWordsAndOneWord(V) error = %v, want ErrUnknownType", err)
	}
	if err := SwapOneWordAndTwoWords(l, bytecode.RawType("Q")); !errors.Is(err, ErrUnknownType) {
		t.Errorf("SwapOneWordAndTwoWords(Q) error = %v, want ErrUnknownType", err)
	}
	if err := EmitSwap(l, bytecode.Int, bytecode.RawType("")); !errors.Is(err, ErrUnknownType) {
		t.Errorf("EmitSwap(I, \"\") error = %v, want ErrUnknownType", err)
	}
	if l.Len() != 0 {
		t.Errorf("rejected swaps wrote %v", l.Code)
	}
}
