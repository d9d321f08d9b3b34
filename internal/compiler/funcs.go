package compiler

import (
	"sabr/internal/bytecode"
	"sabr/internal/token"
)

// compileFunc opens a func/macro body. The construct needs a skip-over jump
// so that defining it inline doesn't also execute it, plus a dictionary
// binding from its name to the body's entry point. Neither OP_LOCAL nor
// OP_DEFINE carry an operand (the canonical opcode table marks both
// operand-free), so the skip is realized as a plain OP_JUMP and the name is
// passed to OP_DEFINE on the value stack rather than as an instruction
// operand — mirroring how OP_MEMBER also takes its identifier off the stack.
// `func` establishes a local-dictionary frame at runtime (OP_LOCAL/
// OP_LOCAL_END); `macro` shares the caller's frame, so it omits both.
func (c *Compiler) compileFunc(cur *cursor, kw keywordID, t token.Token) error {
	skipPatch := c.bc.EmitIndex(bytecode.OpJump, 0)

	if cur.more() {
		name := cur.next()
		idx := c.Intern(name.Text)
		c.bc.EmitValue(bytecode.OpValue, token.FromUint(idx))
		c.bc.Emit(bytecode.OpDefine)
	}

	entry := c.bc.Offset()
	if kw == kwFunc {
		c.bc.Emit(bytecode.OpLocal)
	}
	c.pushFrame(&frame{kind: frameFunc, opener: t, skipPatch: skipPatch, entryAddr: entry})
	return nil
}

func (c *Compiler) compileReturn(t token.Token) error {
	f := c.topFrameOfKind(frameFunc)
	if f == nil {
		return &Error{Kind: ReturnOutsideFunction, Text: t.Text, Origin: t.Origin}
	}
	patch := c.bc.EmitIndex(bytecode.OpJump, 0)
	f.returnPatches = append(f.returnPatches, patch)
	return nil
}

// compileDefer records the token span of a `defer { ... }` block against the
// innermost enclosing func/macro frame; its bytecode is compiled in reverse
// (LIFO) registration order at the frame's `end`, just before its
// OP_LOCAL_END/OP_RETURN, and every `return` in the frame jumps to it.
func (c *Compiler) compileDefer(cur *cursor, t token.Token) error {
	f := c.topFrameOfKind(frameFunc)
	if f == nil {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	if !cur.more() {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	body := cur.next()
	inner := body.Text
	if len(inner) >= 2 && inner[0] == '{' && inner[len(inner)-1] == '}' {
		inner = inner[1 : len(inner)-1]
	}
	toks, err := tokenizeFragment(inner, body)
	if err != nil {
		return err
	}
	f.deferred = append(f.deferred, toks)
	return nil
}

func (c *Compiler) closeFunc(f *frame) error {
	// Every return lands here, ahead of the deferred code, so deferred
	// blocks run on an early return as well as on fall-through.
	epilogue := c.bc.Offset()
	for i := len(f.deferred) - 1; i >= 0; i-- {
		cur := &cursor{toks: f.deferred[i]}
		for cur.more() {
			dt := cur.next()
			if err := c.compileToken(cur, dt); err != nil {
				return err
			}
		}
	}

	if f.opener.Text == "func" {
		c.bc.Emit(bytecode.OpLocalEnd)
	}
	c.bc.Emit(bytecode.OpReturn)
	after := c.bc.Offset()

	for _, p := range f.returnPatches {
		c.bc.PatchIndex(p, epilogue)
	}
	c.bc.PatchIndex(f.skipPatch, after)
	return nil
}

// --- struct / member ---

// compileStruct opens a member accumulator. OP_DATAGROUP is itself
// operand-bearing (unlike OP_LOCAL), so its own operand carries the
// skip-to-after-end target directly. The struct's name is emitted the same
// way a func's is, via OP_VALUE + OP_DEFINE; inside an open OP_DATAGROUP the
// VM takes that OP_DEFINE as the layout's name and binds it to the struct's
// size, not to an entry point.
func (c *Compiler) compileStruct(cur *cursor, t token.Token) error {
	patch := c.bc.EmitIndex(bytecode.OpDatagroup, 0)
	if cur.more() {
		name := cur.next()
		idx := c.Intern(name.Text)
		c.bc.EmitValue(bytecode.OpValue, token.FromUint(idx))
		c.bc.Emit(bytecode.OpDefine)
	}
	c.pushFrame(&frame{kind: frameStruct, opener: t, structPatch: patch})
	return nil
}

// compileMember names a field: `member` takes its identifier the same way
// OP_DEFINE does — off the value stack, via a preceding OP_VALUE — so the
// name token that follows `member` in the source is interned and pushed
// rather than compiled as an ordinary OP_EXEC call.
func (c *Compiler) compileMember(cur *cursor, t token.Token) error {
	f := c.topFrame()
	if f == nil || f.kind != frameStruct {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	if !cur.more() {
		return &Error{Kind: UnmatchedIntermediate, Text: t.Text, Origin: t.Origin}
	}
	name := cur.next()
	idx := c.Intern(name.Text)
	c.bc.EmitValue(bytecode.OpValue, token.FromUint(idx))
	c.bc.Emit(bytecode.OpMember)
	return nil
}

func (c *Compiler) closeStruct(f *frame) error {
	c.bc.Emit(bytecode.OpDatagroupExec)
	c.bc.Emit(bytecode.OpDatagroupEnd)
	after := c.bc.Offset()
	c.bc.PatchIndex(f.structPatch, after)
	return nil
}
