package vm

import (
	"sabr/internal/bytecode"
	"sabr/internal/token"
)

// stepFor implements the for/ufor/ffor family: OP_FOR opens a frame carrying
// its signed/unsigned/float mode, OP_FOR_FROM/TO/STEP each pop one bound off
// the data stack, OP_FOR_CHECK either pushes the loop variable and falls
// through or jumps past `end`, OP_FOR_NEXT advances and jumps back to the
// check, and OP_FOR_END closes the frame.
func (v *VM) stepFor(op bytecode.Op, operand uint64, next int) (bool, error) {
	switch op {
	case bytecode.OpFor:
		v.forStack = append(v.forStack, &forFrame{
			mode: int(int64(operand)),
			step: token.FromInt(1),
		})
		return false, nil
	case bytecode.OpForFrom, bytecode.OpForTo, bytecode.OpForStep:
		f := v.topFor()
		if f == nil {
			return false, &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "no open for-loop"}
		}
		val, err := v.popData(op)
		if err != nil {
			return false, err
		}
		switch op {
		case bytecode.OpForFrom:
			f.from, f.haveFrom = val, true
			f.current = val
		case bytecode.OpForTo:
			f.to, f.haveTo = val, true
		case bytecode.OpForStep:
			f.step, f.haveStep = val, true
		}
		return false, nil
	case bytecode.OpForCheck:
		f := v.topFor()
		if f == nil {
			return false, &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "no open for-loop"}
		}
		if !f.continues() {
			v.pc = int(int64(operand))
			return true, nil
		}
		v.data.Push(f.current)
		return false, nil
	case bytecode.OpForNext:
		f := v.topFor()
		if f == nil {
			return false, &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "no open for-loop"}
		}
		f.next()
		v.pc = int(int64(operand))
		return true, nil
	case bytecode.OpForEnd:
		if len(v.forStack) > 0 {
			v.forStack = v.forStack[:len(v.forStack)-1]
		}
		return false, nil
	}
	return false, nil
}

func (v *VM) topFor() *forFrame {
	if len(v.forStack) == 0 {
		return nil
	}
	return v.forStack[len(v.forStack)-1]
}

// stepDatagroup implements struct/member. OP_DATAGROUP opens a member
// accumulator; the struct's own OP_VALUE;OP_DEFINE pair (recognized by the
// accumulator having no name yet) binds its size once OP_DATAGROUP_END
// closes it, rather than an entry pc — calling the struct's name later
// (OP_EXEC) allocates an instance instead of jumping to code. OP_MEMBER
// registers a field at the next 1-cell offset; OP_DATAGROUP_EXEC has no
// stack effect of its own, it exists only to mark where the accumulated
// layout is considered final (the compiler always places it right before
// OP_DATAGROUP_END).
func (v *VM) stepDatagroup(op bytecode.Op) (bool, error) {
	switch op {
	case bytecode.OpDatagroup:
		v.openLayouts = append(v.openLayouts, &layout{})
		return false, nil
	case bytecode.OpMember:
		l := v.topLayout()
		if l == nil {
			return false, &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "member outside struct"}
		}
		field, err := v.popData(op)
		if err != nil {
			return false, err
		}
		offset := len(l.fieldIdxs)
		v.members[field.Uint()] = offset
		l.fieldIdxs = append(l.fieldIdxs, field.Uint())
		return false, nil
	case bytecode.OpDatagroupExec:
		return false, nil
	case bytecode.OpDatagroupEnd:
		l := v.topLayout()
		if l == nil {
			return false, &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "end outside struct"}
		}
		v.openLayouts = v.openLayouts[:len(v.openLayouts)-1]
		if l.haveName {
			v.structs[l.nameIdx] = len(l.fieldIdxs)
		}
		return false, nil
	}
	return false, nil
}

func (v *VM) topLayout() *layout {
	if len(v.openLayouts) == 0 {
		return nil
	}
	return v.openLayouts[len(v.openLayouts)-1]
}
