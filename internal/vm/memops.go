package vm

import (
	"sabr/internal/bytecode"
	"sabr/internal/token"
)

// activePool returns the pool ALLOT/REF/ADDR should target: the local pool
// while a call frame is open (OP_LOCAL has run and not yet been closed),
// the global pool otherwise.
func (v *VM) activePool() *pool {
	if len(v.localFuncs) > 0 {
		return v.localPool
	}
	return v.globalPool
}

// poolFor routes a tagged address to the pool that owns it, per
// localPoolBase's address-space split.
func (v *VM) poolFor(addr int64) (*pool, int) {
	if addr >= localPoolBase {
		return v.localPool, int(addr - localPoolBase)
	}
	return v.globalPool, int(addr)
}

func tagLocal(addr int) int64 { return int64(addr) + localPoolBase }

// stepMemory implements ALLOC/RESIZE/FREE/ALLOT/FETCH/STORE. ALLOC always
// reserves in the global pool (a persistent allocation, outliving the call
// it was made in); ALLOT reserves in whichever pool is active for the
// current scope, so allocations made inside a function body are unwound by
// OP_LOCAL_END along with the rest of that call's local state. Both return
// a tagged address so FETCH/STORE/RESIZE/FREE can route without a type tag.
func (v *VM) stepMemory(op bytecode.Op) error {
	switch op {
	case bytecode.OpAlloc:
		size, err := v.popData(op)
		if err != nil {
			return err
		}
		base, err := v.globalPool.bump(int(size.Int()))
		if err != nil {
			return err
		}
		v.data.Push(token.FromInt(int64(base)))
		return nil
	case bytecode.OpAllot:
		size, err := v.popData(op)
		if err != nil {
			return err
		}
		p := v.activePool()
		base, err := p.bump(int(size.Int()))
		if err != nil {
			return err
		}
		addr := int64(base)
		if p == v.localPool {
			addr = tagLocal(base)
		}
		v.data.Push(token.FromInt(addr))
		return nil
	case bytecode.OpResize:
		addr, err := v.popData(op)
		if err != nil {
			return err
		}
		size, err := v.popData(op)
		if err != nil {
			return err
		}
		pool, base := v.poolFor(addr.Int())
		if err := pool.resize(base, int(size.Int())); err != nil {
			return err
		}
		v.data.Push(addr)
		return nil
	case bytecode.OpFree:
		addr, err := v.popData(op)
		if err != nil {
			return err
		}
		pool, base := v.poolFor(addr.Int())
		return pool.free(base)
	case bytecode.OpFetch:
		addr, err := v.popData(op)
		if err != nil {
			return err
		}
		pool, base := v.poolFor(addr.Int())
		val, err := pool.fetch(base)
		if err != nil {
			return err
		}
		v.data.Push(val)
		return nil
	case bytecode.OpStore:
		addr, err := v.popData(op)
		if err != nil {
			return err
		}
		val, err := v.popData(op)
		if err != nil {
			return err
		}
		pool, base := v.poolFor(addr.Int())
		return pool.store(base, val)
	}
	return nil
}
