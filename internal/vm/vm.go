// Package vm executes the flat bytecode internal/compiler emits: a fetch/
// decode/dispatch loop over a data stack, a switch-subject stack, a
// for-loop frame stack, a call stack of return addresses paired with a
// local-word dictionary stack, and two bump-allocated memory pools (one
// global, one scoped to the innermost call).
package vm

import (
	"sabr/internal/bytecode"
	"sabr/internal/token"
)

// localPoolBase separates the two memory pools' addresses within a single
// tagged-free Value: the local (per-call, auto-freed) pool's cells are
// offset by this constant so OP_FETCH/OP_STORE/OP_RESIZE/OP_FREE can route
// to the right pool from the address alone, the same way the rest of this
// VM discriminates by convention rather than a runtime type tag.
const localPoolBase = 1 << 32

// VM executes one Bytecode program to completion or to a runtime Error.
type VM struct {
	bc *bytecode.Bytecode
	pc int

	data   Stack
	switches Stack

	forStack   []*forFrame
	callStack  []callFrame

	funcs       map[uint64]int
	localFuncs  []map[uint64]int
	structs     map[uint64]int
	members     map[uint64]int

	openLayouts []*layout
	arrays       [][]token.Value

	globalPool    *pool
	localPool     *pool
	localMemMarks []int

	bifs BIF

	out writer
	in   reader
}

// writer is the minimal surface OP_PUTC/PUTI/.../SHOW need; satisfied by
// *bufio.Writer in cmd's wiring and by a strings.Builder in tests.
type writer interface {
	WriteString(s string) (int, error)
}

// reader is the minimal surface OP_GETC/GETI/.../GETS need to pull typed
// values off an input stream; satisfied by *bufio.Reader.
type reader interface {
	ReadRune() (r rune, size int, err error)
	UnreadRune() error
}

// Option configures a VM at construction, following the functional-options
// idiom the rest of this pack's example repos use for their own
// constructors (e.g. jcorbin-gothird's With... family).
type Option func(*VM)

// WithBIFs registers the built-in-function library OP_CALL_BIF dispatches
// to. Without this option, any CALL_BIF fails with UnknownWord.
func WithBIFs(b BIF) Option { return func(v *VM) { v.bifs = b } }

// WithOutput registers the sink OP_PUTC/PUTI/PUTU/PUTF/PUTS/SHOW write to.
func WithOutput(w writer) Option { return func(v *VM) { v.out = w } }

// WithInput registers the source OP_GETC/GETI/GETU/GETF/GETS read from.
func WithInput(r reader) Option { return func(v *VM) { v.in = r } }

// WithPoolLimit caps the global and local memory pools at max cells each (0
// means unbounded).
func WithPoolLimit(max int) Option {
	return func(v *VM) {
		v.globalPool = newPool(max)
		v.localPool = newPool(max)
	}
}

// New creates a VM ready to Run bc.
func New(bc *bytecode.Bytecode, opts ...Option) *VM {
	v := &VM{
		bc:         bc,
		funcs:      make(map[uint64]int),
		structs:    make(map[uint64]int),
		members:    make(map[uint64]int),
		globalPool: newPool(0),
		localPool:  newPool(0),
		bifs:       NopBIFs{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run hoists every top-level word definition in bc (struct names are bound
// later, when dispatch reaches their OP_DATAGROUP_END), then executes
// from offset 0 until OP_EXIT or the end of the stream.
func (v *VM) Run() error {
	return v.RunFrom(0)
}

// RunFrom re-hoists definitions over the current bytecode (cheap and
// idempotent: it only ever rewrites v.funcs entries to the same values
// given the same bytes) and resumes dispatch at pc. A REPL uses this to
// append instructions to bc between lines and execute only the newly
// appended tail, instead of re-running the whole program from 0 and
// repeating every earlier line's side effects.
func (v *VM) RunFrom(pc int) error {
	v.hoistDefinitions()
	v.pc = pc
	for v.pc < len(v.bc.Code) {
		op, operand, next, ok := v.bc.Decode(v.pc)
		if !ok {
			return &Error{Kind: UnknownOpcode, PC: v.pc, Detail: "truncated instruction"}
		}
		taken, err := v.step(op, operand, next)
		if err != nil {
			return err
		}
		if !taken {
			v.pc = next
		}
	}
	return nil
}

// hoistDefinitions performs a single linear pass over the whole bytecode
// stream, ignoring control flow, registering top-level OP_VALUE;OP_DEFINE
// name bindings. This is necessary because func/macro compiles its name
// binding *inside* the very span its own leading OP_JUMP skips over at
// runtime (the jump exists so defining a word doesn't also execute its
// body) — sequential dispatch starting at pc 0 would never reach that
// OP_DEFINE on its own.
//
// Two kinds of OP_DEFINE must NOT be hoisted, and are left for ordinary
// dispatch to bind for real:
//   - one that names a struct (tracked via inStruct) — a struct's body is
//     never skipped the way func/macro's is, so it binds correctly the
//     first time dispatch actually reaches it, and hoisting it too would
//     wrongly register the struct's name as a callable word;
//   - one lexically nested inside a func body (localDepth > 0, tracked via
//     OP_LOCAL/OP_LOCAL_END) — it belongs to that func's local dictionary
//     frame, which only exists once the func is actually called, so
//     hoisting it now would leak it into the global dictionary instead.
//
// See DESIGN.md for the reasoning.
func (v *VM) hoistDefinitions() {
	var lastValue uint64
	inStruct := false
	localDepth := 0
	pc := 0
	for pc < len(v.bc.Code) {
		op, operand, next, ok := v.bc.Decode(pc)
		if !ok {
			break
		}
		switch op {
		case bytecode.OpDatagroup:
			inStruct = true
		case bytecode.OpDatagroupEnd:
			inStruct = false
		case bytecode.OpLocal:
			localDepth++
		case bytecode.OpLocalEnd:
			if localDepth > 0 {
				localDepth--
			}
		case bytecode.OpValue:
			lastValue = operand
		case bytecode.OpDefine:
			if !inStruct && localDepth == 0 {
				v.funcs[lastValue] = next
			}
		}
		pc = next
	}
}

// defineWord binds name to pc in the innermost open local scope, or
// globally if none is open.
func (v *VM) defineWord(name uint64, pc int) {
	if len(v.localFuncs) > 0 {
		v.localFuncs[len(v.localFuncs)-1][name] = pc
		return
	}
	v.funcs[name] = pc
}

func (v *VM) lookupWord(name uint64) (int, bool) {
	for i := len(v.localFuncs) - 1; i >= 0; i-- {
		if pc, ok := v.localFuncs[i][name]; ok {
			return pc, true
		}
	}
	pc, ok := v.funcs[name]
	return pc, ok
}

func (v *VM) popData(op bytecode.Op) (token.Value, error) {
	val, ok := v.data.Pop()
	if !ok {
		return token.Value{}, &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op}
	}
	return val, nil
}

func (v *VM) pop2(op bytecode.Op) (token.Value, token.Value, error) {
	b, err := v.popData(op)
	if err != nil {
		return token.Value{}, token.Value{}, err
	}
	a, err := v.popData(op)
	if err != nil {
		return token.Value{}, token.Value{}, err
	}
	return a, b, nil
}

// step executes one instruction. taken reports whether the handler already
// set v.pc (a branch was followed); when false, Run advances to next.
func (v *VM) step(op bytecode.Op, operand uint64, next int) (bool, error) {
	switch op {
	case bytecode.OpNone:
		return false, nil
	case bytecode.OpExit:
		v.pc = len(v.bc.Code)
		return true, nil
	case bytecode.OpValue:
		v.data.Push(token.FromUint(operand))
		return false, nil

	case bytecode.OpIf:
		cond, err := v.popData(op)
		if err != nil {
			return false, err
		}
		if cond.Int() == 0 {
			v.pc = int(int64(operand))
			return true, nil
		}
		return false, nil
	case bytecode.OpJump:
		v.pc = int(int64(operand))
		return true, nil

	case bytecode.OpFor, bytecode.OpForFrom, bytecode.OpForTo, bytecode.OpForStep,
		bytecode.OpForCheck, bytecode.OpForNext, bytecode.OpForEnd:
		return v.stepFor(op, operand, next)

	case bytecode.OpSwitch:
		subj, err := v.popData(op)
		if err != nil {
			return false, err
		}
		v.switches.Push(subj)
		return false, nil
	case bytecode.OpSwitchCase:
		subj, ok := v.switches.Peek()
		if !ok {
			return false, &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "no open switch"}
		}
		v.data.Push(subj)
		return false, nil
	case bytecode.OpSwitchEnd:
		if _, ok := v.switches.Pop(); !ok {
			return false, &Error{Kind: DataStackUnderflow, PC: v.pc, Op: op, Detail: "no open switch"}
		}
		return false, nil

	case bytecode.OpExec:
		return v.stepExec(operand, next)
	case bytecode.OpReturn:
		if len(v.callStack) == 0 {
			v.pc = len(v.bc.Code)
			return true, nil
		}
		frame := v.callStack[len(v.callStack)-1]
		v.callStack = v.callStack[:len(v.callStack)-1]
		v.pc = frame.returnPC
		return true, nil
	case bytecode.OpLocal:
		v.localFuncs = append(v.localFuncs, make(map[uint64]int))
		v.localMemMarks = append(v.localMemMarks, v.localPool.markHere())
		return false, nil
	case bytecode.OpLocalEnd:
		if len(v.localFuncs) > 0 {
			v.localFuncs = v.localFuncs[:len(v.localFuncs)-1]
		}
		if len(v.localMemMarks) > 0 {
			mark := v.localMemMarks[len(v.localMemMarks)-1]
			v.localMemMarks = v.localMemMarks[:len(v.localMemMarks)-1]
			if err := v.localPool.free(mark); err != nil {
				return false, err
			}
		}
		return false, nil
	case bytecode.OpDefine:
		name, err := v.popData(op)
		if err != nil {
			return false, err
		}
		if l := v.topLayout(); l != nil && !l.haveName {
			l.nameIdx, l.haveName = name.Uint(), true
			return false, nil
		}
		v.defineWord(name.Uint(), next)
		return false, nil

	case bytecode.OpDatagroup, bytecode.OpMember, bytecode.OpDatagroupEnd, bytecode.OpDatagroupExec:
		return v.stepDatagroup(op)

	case bytecode.OpCallBIF:
		id, err := v.popData(op)
		if err != nil {
			return false, err
		}
		if err := v.bifs.Call(id.Uint(), &v.data); err != nil {
			return false, err
		}
		return false, nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
		bytecode.OpUDiv, bytecode.OpUMod, bytecode.OpNeg, bytecode.OpInc, bytecode.OpDec,
		bytecode.OpEqu, bytecode.OpNeq, bytecode.OpGrt, bytecode.OpGeq, bytecode.OpLst, bytecode.OpLeq,
		bytecode.OpUGrt, bytecode.OpUGeq, bytecode.OpULst, bytecode.OpULeq,
		bytecode.OpFAdd, bytecode.OpFSub, bytecode.OpFMul, bytecode.OpFDiv, bytecode.OpFMod, bytecode.OpFNeg,
		bytecode.OpFEqu, bytecode.OpFNeq, bytecode.OpFGrt, bytecode.OpFGeq, bytecode.OpFLst, bytecode.OpFLeq,
		bytecode.OpBAnd, bytecode.OpBOr, bytecode.OpBXor, bytecode.OpBNot, bytecode.OpBLsft, bytecode.OpBRsft,
		bytecode.OpItoF, bytecode.OpUtoF, bytecode.OpFtoI, bytecode.OpFtoU:
		return false, v.stepArith(op)

	case bytecode.OpDrop, bytecode.OpNip, bytecode.OpDup, bytecode.OpOver, bytecode.OpTuck, bytecode.OpSwap, bytecode.OpRot,
		bytecode.OpTDrop, bytecode.OpTNip, bytecode.OpTDup, bytecode.OpTOver, bytecode.OpTTuck, bytecode.OpTSwap, bytecode.OpTRot:
		return false, v.stepStack(op)

	case bytecode.OpAlloc, bytecode.OpResize, bytecode.OpFree, bytecode.OpAllot, bytecode.OpFetch, bytecode.OpStore:
		return false, v.stepMemory(op)

	case bytecode.OpArray, bytecode.OpArrayComma, bytecode.OpArrayEnd:
		return false, v.stepArray(op)

	case bytecode.OpAddr, bytecode.OpRef, bytecode.OpSet:
		return false, v.stepAddr(op)

	case bytecode.OpGetC, bytecode.OpGetI, bytecode.OpGetU, bytecode.OpGetF, bytecode.OpGetS,
		bytecode.OpPutC, bytecode.OpPutI, bytecode.OpPutU, bytecode.OpPutF, bytecode.OpPutS, bytecode.OpShow:
		return false, v.stepIO(op)
	}

	return false, &Error{Kind: UnknownOpcode, PC: v.pc, Op: op}
}

// stepExec resolves an identifier to a callable word, a struct constructor,
// or a member accessor, in that order — see DESIGN.md for why a single
// OP_EXEC has to carry all three meanings given the canonical opcode table
// has no dedicated CALL/NEW/FIELD ops.
func (v *VM) stepExec(name uint64, next int) (bool, error) {
	if entry, ok := v.lookupWord(name); ok {
		v.callStack = append(v.callStack, callFrame{returnPC: next})
		v.pc = entry
		return true, nil
	}
	if size, ok := v.structs[name]; ok {
		base, err := v.globalPool.bump(size)
		if err != nil {
			return false, err
		}
		v.data.Push(token.FromUint(uint64(base)))
		return false, nil
	}
	if offset, ok := v.members[name]; ok {
		addr, err := v.popData(bytecode.OpExec)
		if err != nil {
			return false, err
		}
		v.data.Push(token.FromInt(addr.Int() + int64(offset)))
		return false, nil
	}
	return false, &Error{Kind: UnknownWord, PC: v.pc, Op: bytecode.OpExec, Detail: "undefined word"}
}
