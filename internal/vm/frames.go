package vm

import "sabr/internal/token"

// for-loop modes, matching the operand the compiler's `for`/`ufor`/`ffor`
// bakes into OP_FOR — see internal/compiler/control.go's forModeSigned et al.
const (
	forModeSigned = 0
	forModeUnsigned = 1
	forModeFloat = 2
)

// forFrame is one open for/ufor/ffor loop, per spec.md's VM state model:
// start/end/step/current plus the signed/unsigned/float mode.
type forFrame struct {
	mode                  int
	from, to, step        token.Value
	current               token.Value
	haveFrom, haveTo, haveStep bool
}

func (f *forFrame) next() {
	switch f.mode {
	case forModeFloat:
		f.current = token.FromFloat(f.current.Float() + f.step.Float())
	case forModeUnsigned:
		f.current = token.FromUint(f.current.Uint() + f.step.Uint())
	default:
		f.current = token.FromInt(f.current.Int() + f.step.Int())
	}
}

// continues reports whether the loop body should run for the current value.
// An unbounded loop (no `to` given) always continues, relying on an
// explicit `break`.
func (f *forFrame) continues() bool {
	if !f.haveTo {
		return true
	}
	switch f.mode {
	case forModeFloat:
		if f.step.Float() < 0 {
			return f.current.Float() > f.to.Float()
		}
		return f.current.Float() < f.to.Float()
	case forModeUnsigned:
		return f.current.Uint() < f.to.Uint()
	default:
		if f.step.Int() < 0 {
			return f.current.Int() > f.to.Int()
		}
		return f.current.Int() < f.to.Int()
	}
}

// callFrame records where OP_RETURN resumes execution after OP_EXEC jumps
// into a word's body.
type callFrame struct {
	returnPC int
}

// layout accumulates a struct's member offsets while its OP_DATAGROUP ...
// OP_DATAGROUP_END span executes inline. nameIdx is the struct's own
// identifier, bound once its name token is seen.
type layout struct {
	nameIdx    uint64
	haveName   bool
	fieldIdxs  []uint64
}
