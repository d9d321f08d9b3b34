package vm

import (
	"sabr/internal/bytecode"
	"sabr/internal/token"
)

// stepArray implements array/string literal construction. OP_ARRAY opens an
// accumulator, OP_ARRAY_COMMA pops the data stack and appends to the
// innermost open one (letting array literals nest), and OP_ARRAY_END
// allocates the accumulated cells in the global pool and pushes (addr, len)
// — both values, since nothing in this VM's cell-tagged addresses encodes a
// length the way a languages with a string type would.
func (v *VM) stepArray(op bytecode.Op) error {
	switch op {
	case bytecode.OpArray:
		v.arrays = append(v.arrays, nil)
		return nil
	case bytecode.OpArrayComma:
		if len(v.arrays) == 0 {
			return &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "array comma outside array"}
		}
		val, err := v.popData(op)
		if err != nil {
			return err
		}
		top := len(v.arrays) - 1
		v.arrays[top] = append(v.arrays[top], val)
		return nil
	case bytecode.OpArrayEnd:
		if len(v.arrays) == 0 {
			return &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "array end outside array"}
		}
		top := len(v.arrays) - 1
		vals := v.arrays[top]
		v.arrays = v.arrays[:top]
		addr, err := v.storeArray(vals)
		if err != nil {
			return err
		}
		v.data.Push(token.FromInt(addr))
		v.data.Push(token.FromInt(int64(len(vals))))
		return nil
	}
	return nil
}

// storeArray bump-allocates len(vals) cells in the global pool and copies
// vals into them, returning the tagged base address.
func (v *VM) storeArray(vals []token.Value) (int64, error) {
	base, err := v.globalPool.bump(len(vals))
	if err != nil {
		return 0, err
	}
	for i, val := range vals {
		if err := v.globalPool.store(base+i, val); err != nil {
			return 0, err
		}
	}
	return int64(base), nil
}
