package vm

import (
	"sabr/internal/bytecode"
	"sabr/internal/token"
)

// stepAddr implements ADDR/REF/SET. ADDR pushes the active pool's current
// high-water mark without allocating — the address the next ALLOT would
// return, Forth's HERE. REF boxes the popped value into a freshly allotted
// single cell and pushes its address, the primitive for turning a bare
// Value into something FETCH/STORE can address. SET stores through an
// address obtained from ADDR/REF/ALLOT/ALLOC without requiring the caller
// to know which pool it came from.
func (v *VM) stepAddr(op bytecode.Op) error {
	switch op {
	case bytecode.OpAddr:
		p := v.activePool()
		addr := int64(p.markHere())
		if p == v.localPool {
			addr = tagLocal(p.markHere())
		}
		v.data.Push(token.FromInt(addr))
		return nil
	case bytecode.OpRef:
		val, err := v.popData(op)
		if err != nil {
			return err
		}
		p := v.activePool()
		base, err := p.bump(1)
		if err != nil {
			return err
		}
		if err := p.store(base, val); err != nil {
			return err
		}
		addr := int64(base)
		if p == v.localPool {
			addr = tagLocal(base)
		}
		v.data.Push(token.FromInt(addr))
		return nil
	case bytecode.OpSet:
		addr, err := v.popData(op)
		if err != nil {
			return err
		}
		val, err := v.popData(op)
		if err != nil {
			return err
		}
		p, base := v.poolFor(addr.Int())
		return p.store(base, val)
	}
	return nil
}
