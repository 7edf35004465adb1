package instrument

import (
	"fmt"

	"github.com/chazu/stacklog/pkg/bytecode"
)

// widthPattern keys a stack shuffle by slot widths: the value being copied
// or moved (top) and the value it passes over (under, 0 for none).
type widthPattern struct {
	top, under int
}

// dupPatterns copies the top value and inserts the copy below the next one.
var dupPatterns = map[widthPattern]bytecode.Opcode{
	{1, 0}: bytecode.OpDup,
	{2, 0}: bytecode.OpDup2,
	{1, 1}: bytecode.OpDupX1,
	{2, 1}: bytecode.OpDup2X1,
	{1, 2}: bytecode.OpDupX2,
	{2, 2}: bytecode.OpDup2X2,
}

// swapPatterns exchanges the top two values. Only two one-slot values have a
// native swap; every other pairing copies the top value below its
// neighbour and pops the original.
var swapPatterns = map[widthPattern][]bytecode.Opcode{
	{1, 1}: {bytecode.OpSwap},
	{2, 1}: {bytecode.OpDup2X1, bytecode.OpPop2},
	{1, 2}: {bytecode.OpDupX2, bytecode.OpPop},
	{2, 2}: {bytecode.OpDup2X2, bytecode.OpPop2},
}

// slotWidth returns the stack width of a value type. Void and malformed
// types occupy no slots and cannot take part in a shuffle.
func slotWidth(t bytecode.Type) (int, error) {
	if w := t.Width(); w == 1 || w == 2 {
		return w, nil
	}
	return 0, fmt.Errorf("%w: %q has no operand-stack width", ErrUnknownType, t.Descriptor())
}

// emitDupUnder copies the top value (width of value) below a neighbour of
// width under (0 for a plain duplicate). value must already be known to be
// a value type.
func emitDupUnder(sink bytecode.Sink, value bytecode.Type, under int) {
	sink.Emit(bytecode.Insn(dupPatterns[widthPattern{value.Width(), under}]))
}

// EmitSwap exchanges the top value (type top) with the one beneath it
// (type under), choosing the instruction sequence by their widths. A void
// or malformed type is an ErrUnknownType and emits nothing.
func EmitSwap(sink bytecode.Sink, top, under bytecode.Type) error {
	tw, err := slotWidth(top)
	if err != nil {
		return err
	}
	uw, err := slotWidth(under)
	if err != nil {
		return err
	}
	for _, op := range swapPatterns[widthPattern{tw, uw}] {
		sink.Emit(bytecode.Insn(op))
	}
	return nil
}

// SwapTwoWordsAndOneWord moves the top value beneath the one-slot value
// under it. A wide top (long, double) is copied under the narrow value
// with dup2_x1 and the original dropped with pop2; a narrow top is a swap.
//
//	..., w, V  ->  ..., V, w
func SwapTwoWordsAndOneWord(sink bytecode.Sink, top bytecode.Type) error {
	return EmitSwap(sink, top, bytecode.Int)
}

// SwapOneWordAndTwoWords is the mirror of SwapTwoWordsAndOneWord: a
// one-slot value on top moves beneath the value under it. t is the type of
// that lower value; when it is wide the sequence is dup_x2, pop, otherwise
// a swap.
//
//	..., V, w  ->  ..., w, V
func SwapOneWordAndTwoWords(sink bytecode.Sink, t bytecode.Type) error {
	return EmitSwap(sink, bytecode.Int, t)
}
