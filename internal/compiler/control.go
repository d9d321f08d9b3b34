package compiler

import (
	"sabr/internal/bytecode"
	"sabr/internal/token"
)

type keywordID int

const (
	kwIf keywordID = iota
	kwElse
	kwEnd
	kwLoop
	kwWhile
	kwBreak
	kwContinue
	kwFor
	kwUfor
	kwFfor
	kwFrom
	kwTo
	kwStep
	kwSwitch
	kwCase
	kwPass
	kwFunc
	kwMacro
	kwReturn
	kwStruct
	kwMember
	kwDefer
)

var keywords = map[string]keywordID{
	"if": kwIf, "else": kwElse, "end": kwEnd,
	"loop": kwLoop, "while": kwWhile, "break": kwBreak, "continue": kwContinue,
	"for": kwFor, "ufor": kwUfor, "ffor": kwFfor,
	"from": kwFrom, "to": kwTo, "step": kwStep,
	"switch": kwSwitch, "case": kwCase, "pass": kwPass,
	"func": kwFunc, "macro": kwMacro, "return": kwReturn,
	"struct": kwStruct, "member": kwMember, "defer": kwDefer,
}

type frameKind int

const (
	frameIf frameKind = iota
	frameLoop
	frameFor
	frameSwitch
	frameFunc
	frameStruct
)

// frame is one open structured-control construct, pushed by its opening
// keyword and popped — with all of its pending jumps back-patched — by the
// matching `end`.
type frame struct {
	kind   frameKind
	opener token.Token

	// if/else
	ifPatch   int
	elsePatch int
	hasElse   bool

	// loop/while
	loopStart    int
	whilePatch   int
	hasWhile     bool
	breakPatches []int

	// for
	forCheckPatch int
	forCheckAddr  int
	sawFrom       bool
	sawTo         bool
	sawStep       bool

	// switch
	pendingChain []caseSite
	everCase     bool
	sawPass      bool
	passPatches  []int

	// func
	funcName      string
	skipPatch     int
	entryAddr     int
	returnPatches []int
	deferred      [][]token.Token

	// struct
	structPatch int
}

func (c *Compiler) pushFrame(f *frame) { c.frames = append(c.frames, f) }

func (c *Compiler) topFrame() *frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func (c *Compiler) popFrame() *frame {
	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	return f
}

// topFrameOfKind finds the innermost open frame of kind, used by break and
// continue to reach past an intervening if/switch into their owning
// loop/for.
func (c *Compiler) topFrameOfKind(kinds ...frameKind) *frame {
	for i := len(c.frames) - 1; i >= 0; i-- {
		for _, k := range kinds {
			if c.frames[i].kind == k {
				return c.frames[i]
			}
		}
	}
	return nil
}

func (c *Compiler) compileKeyword(cur *cursor, kw keywordID, t token.Token) error {
	switch kw {
	case kwIf:
		return c.compileIf(t)
	case kwElse:
		return c.compileElse(t)
	case kwLoop:
		return c.compileLoop(t)
	case kwWhile:
		return c.compileWhile(t)
	case kwBreak:
		return c.compileBreak(t)
	case kwContinue:
		return c.compileContinue(t)
	case kwFor, kwUfor, kwFfor:
		return c.compileFor(kw, t)
	case kwFrom:
		return c.compileForBound(t, boundFrom)
	case kwTo:
		return c.compileForBound(t, boundTo)
	case kwStep:
		return c.compileForBound(t, boundStep)
	case kwSwitch:
		return c.compileSwitch(t)
	case kwCase:
		return c.compileCase(t)
	case kwPass:
		return c.compilePass(t)
	case kwFunc, kwMacro:
		return c.compileFunc(cur, kw, t)
	case kwReturn:
		return c.compileReturn(t)
	case kwStruct:
		return c.compileStruct(cur, t)
	case kwMember:
		return c.compileMember(cur, t)
	case kwDefer:
		return c.compileDefer(cur, t)
	case kwEnd:
		return c.compileEnd(t)
	}
	return nil
}

// --- if / else / end ---

func (c *Compiler) compileIf(t token.Token) error {
	patch := c.bc.EmitIndex(bytecode.OpIf, 0)
	c.pushFrame(&frame{kind: frameIf, opener: t, ifPatch: patch})
	return nil
}

func (c *Compiler) compileElse(t token.Token) error {
	f := c.topFrame()
	if f == nil || f.kind != frameIf || f.hasElse {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	f.elsePatch = c.bc.EmitIndex(bytecode.OpJump, 0)
	c.bc.PatchIndex(f.ifPatch, c.bc.Offset())
	f.hasElse = true
	return nil
}

// --- loop / while / break / continue ---

func (c *Compiler) compileLoop(t token.Token) error {
	c.pushFrame(&frame{kind: frameLoop, opener: t, loopStart: c.bc.Offset()})
	return nil
}

func (c *Compiler) compileWhile(t token.Token) error {
	f := c.topFrame()
	if f == nil || f.kind != frameLoop || f.hasWhile {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	f.whilePatch = c.bc.EmitIndex(bytecode.OpIf, 0)
	f.hasWhile = true
	return nil
}

func (c *Compiler) compileBreak(t token.Token) error {
	f := c.topFrameOfKind(frameLoop, frameFor)
	if f == nil {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	patch := c.bc.EmitIndex(bytecode.OpJump, 0)
	f.breakPatches = append(f.breakPatches, patch)
	return nil
}

func (c *Compiler) compileContinue(t token.Token) error {
	f := c.topFrameOfKind(frameLoop, frameFor)
	if f == nil {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	if f.kind == frameFor {
		// OP_FOR_NEXT advances the loop variable before jumping back to the
		// check; a plain jump would re-test the same value forever.
		c.bc.EmitIndex(bytecode.OpForNext, f.forCheckAddr)
		return nil
	}
	c.bc.EmitIndex(bytecode.OpJump, f.loopStart)
	return nil
}

// --- for / ufor / ffor / from / to / step ---

type forBound int

const (
	boundFrom forBound = iota
	boundTo
	boundStep
)

// forMode values distinguish for/ufor/ffor at runtime: the canonical opcode
// table has a single OP_FOR (no per-variant opcodes), so the compiler pushes
// the mode as OP_FOR's own operand for the VM's FOR_CHECK/FOR_NEXT to read
// back out of the loop's frame.
const (
	forModeSigned   = 0
	forModeUnsigned = 1
	forModeFloat    = 2
)

func (c *Compiler) compileFor(kw keywordID, t token.Token) error {
	mode := forModeSigned
	switch kw {
	case kwUfor:
		mode = forModeUnsigned
	case kwFfor:
		mode = forModeFloat
	}
	c.bc.EmitIndex(bytecode.OpFor, mode)
	f := &frame{kind: frameFor, opener: t}
	c.reserveForCheck(f)
	c.pushFrame(f)
	return nil
}

// reserveForCheck reserves a 9-byte OP_NONE placeholder for the loop's
// condition check. `for` reserves one immediately, and each from/to/step
// reserves a fresh one of its own; only the last reservation standing when
// `end` is reached is promoted to a real OP_FOR_CHECK, so the check always
// lands right after whichever bound was set last.
func (c *Compiler) reserveForCheck(f *frame) {
	addr := c.bc.Offset()
	operandOffset := c.bc.EmitIndex(bytecode.OpNone, 0)
	f.forCheckAddr = addr
	f.forCheckPatch = operandOffset
}

func (c *Compiler) compileForBound(t token.Token, b forBound) error {
	f := c.topFrame()
	if f == nil || f.kind != frameFor {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	var op bytecode.Op
	switch b {
	case boundFrom:
		if f.sawFrom {
			return &Error{Kind: DuplicateFromToStep, Text: t.Text, Origin: t.Origin}
		}
		f.sawFrom = true
		op = bytecode.OpForFrom
	case boundTo:
		if f.sawTo {
			return &Error{Kind: DuplicateFromToStep, Text: t.Text, Origin: t.Origin}
		}
		f.sawTo = true
		op = bytecode.OpForTo
	case boundStep:
		if f.sawStep {
			return &Error{Kind: DuplicateFromToStep, Text: t.Text, Origin: t.Origin}
		}
		f.sawStep = true
		op = bytecode.OpForStep
	}
	c.bc.Emit(op)
	c.reserveForCheck(f)
	return nil
}

// --- switch / case / pass ---

// caseSite is one open `case` within the chain currently being accumulated:
// the byte offset of its OP_EQU opcode (rewritable to OP_NEQ) and the patch
// offset of its OP_IF operand.
type caseSite struct {
	eqOffset int
	ifPatch  int
}

func (c *Compiler) compileSwitch(t token.Token) error {
	c.bc.Emit(bytecode.OpSwitch)
	c.pushFrame(&frame{kind: frameSwitch, opener: t})
	return nil
}

// compileCase emits a candidate test: OP_SWITCH_CASE duplicates the switch
// subject, OP_EQU compares it against the value just pushed, and OP_IF jumps
// past the whole group on a miss. Consecutive cases sharing one body (no
// pass between them) are resolved once the chain's pass is reached.
func (c *Compiler) compileCase(t token.Token) error {
	f := c.topFrame()
	if f == nil || f.kind != frameSwitch {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	c.bc.Emit(bytecode.OpSwitchCase)
	eqOffset := c.bc.Emit(bytecode.OpEqu)
	ifPatch := c.bc.EmitIndex(bytecode.OpIf, 0)
	f.pendingChain = append(f.pendingChain, caseSite{eqOffset: eqOffset, ifPatch: ifPatch})
	f.everCase = true
	return nil
}

// compilePass closes the chain of cases accumulated since the last pass (or
// since switch). The chain's terminal case keeps OP_EQU, with its miss
// target set to just past this pass once pass's own OP_JUMP is emitted — a
// miss falls through to the next group's test, or past switch if this was
// the last one. Every earlier case in the chain shares the terminal's body:
// their OP_EQU is rewritten to OP_NEQ and their OP_IF target becomes the
// offset of this pass instruction itself, so a match short-circuits
// straight into the break pass performs on a real hit — mirroring a C
// switch's fallthrough groups (`case 1: case 2: case 3: break;`) ahead of a
// shared body that only the chain's miss path reaches.
func (c *Compiler) compilePass(t token.Token) error {
	f := c.topFrame()
	if f == nil || f.kind != frameSwitch || len(f.pendingChain) == 0 {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	terminal := f.pendingChain[len(f.pendingChain)-1]
	passStart := c.bc.Offset()
	for _, site := range f.pendingChain[:len(f.pendingChain)-1] {
		c.bc.Code[site.eqOffset] = byte(bytecode.OpNeq)
		c.bc.PatchIndex(site.ifPatch, passStart)
	}
	passPatch := c.bc.EmitIndex(bytecode.OpJump, 0)
	c.bc.PatchIndex(terminal.ifPatch, c.bc.Offset())
	f.passPatches = append(f.passPatches, passPatch)
	f.pendingChain = nil
	f.sawPass = true
	return nil
}

// --- end: closes whichever frame is on top ---

func (c *Compiler) compileEnd(t token.Token) error {
	f := c.topFrame()
	if f == nil {
		return &Error{Kind: UnmatchedEnd, Text: t.Text, Origin: t.Origin}
	}
	c.popFrame()

	switch f.kind {
	case frameIf:
		after := c.bc.Offset()
		if f.hasElse {
			c.bc.PatchIndex(f.elsePatch, after)
		} else {
			c.bc.PatchIndex(f.ifPatch, after)
		}
	case frameLoop:
		c.bc.EmitIndex(bytecode.OpJump, f.loopStart)
		after := c.bc.Offset()
		if f.hasWhile {
			c.bc.PatchIndex(f.whilePatch, after)
		}
		for _, p := range f.breakPatches {
			c.bc.PatchIndex(p, after)
		}
	case frameFor:
		// Promote the last-reserved placeholder (from `for` itself, or the
		// last from/to/step seen) into the real condition check.
		c.bc.Code[f.forCheckAddr] = byte(bytecode.OpForCheck)
		c.bc.EmitIndex(bytecode.OpForNext, f.forCheckAddr)
		after := c.bc.Offset()
		c.bc.Emit(bytecode.OpForEnd)
		c.bc.PatchIndex(f.forCheckPatch, after)
		for _, p := range f.breakPatches {
			c.bc.PatchIndex(p, after)
		}
	case frameSwitch:
		if !f.everCase || !f.sawPass || len(f.pendingChain) != 0 {
			return &Error{Kind: MalformedSwitch, Text: f.opener.Text, Origin: f.opener.Origin}
		}
		c.bc.Emit(bytecode.OpSwitchEnd)
		after := c.bc.Offset()
		for _, p := range f.passPatches {
			c.bc.PatchIndex(p, after)
		}
	case frameFunc:
		return c.closeFunc(f)
	case frameStruct:
		return c.closeStruct(f)
	}
	return nil
}
