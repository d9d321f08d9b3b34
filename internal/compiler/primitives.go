package compiler

import "sabr/internal/bytecode"

// primitiveOps is the surface spelling of every fixed-arity, no-operand
// runtime word: the RuntimeKeyword(id) half of the Word dictionary (the
// other half being the structured-control keywords in control.go). Unlike
// a user identifier, which compiles to OP_EXEC and is resolved against the
// word dictionary at runtime, these compile directly to their opcode — the
// same relationship the preprocessor's own `#`-prefixed stack/arithmetic
// directives (internal/preproc/directive.go) have to their compile-time
// counterparts, minus the `#`.
var primitiveOps = map[string]bytecode.Op{
	"drop": bytecode.OpDrop, "nip": bytecode.OpNip, "dup": bytecode.OpDup,
	"over": bytecode.OpOver, "tuck": bytecode.OpTuck, "swap": bytecode.OpSwap, "rot": bytecode.OpRot,
	"2drop": bytecode.OpTDrop, "2nip": bytecode.OpTNip, "2dup": bytecode.OpTDup,
	"2over": bytecode.OpTOver, "2tuck": bytecode.OpTTuck, "2swap": bytecode.OpTSwap, "2rot": bytecode.OpTRot,

	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul, "/": bytecode.OpDiv, "%": bytecode.OpMod,
	"u/": bytecode.OpUDiv, "u%": bytecode.OpUMod,
	"neg": bytecode.OpNeg, "1+": bytecode.OpInc, "1-": bytecode.OpDec,

	"=": bytecode.OpEqu, "!=": bytecode.OpNeq, "<": bytecode.OpLst, "<=": bytecode.OpLeq,
	">": bytecode.OpGrt, ">=": bytecode.OpGeq,
	"u<": bytecode.OpULst, "u<=": bytecode.OpULeq, "u>": bytecode.OpUGrt, "u>=": bytecode.OpUGeq,

	"f+": bytecode.OpFAdd, "f-": bytecode.OpFSub, "f*": bytecode.OpFMul, "f/": bytecode.OpFDiv, "f%": bytecode.OpFMod,
	"fneg": bytecode.OpFNeg,
	"f=": bytecode.OpFEqu, "f!=": bytecode.OpFNeq, "f<": bytecode.OpFLst, "f<=": bytecode.OpFLeq,
	"f>": bytecode.OpFGrt, "f>=": bytecode.OpFGeq,

	"&": bytecode.OpBAnd, "|": bytecode.OpBOr, "^": bytecode.OpBXor, "~": bytecode.OpBNot,
	"<<": bytecode.OpBLsft, ">>": bytecode.OpBRsft,

	"alloc": bytecode.OpAlloc, "resize": bytecode.OpResize, "free": bytecode.OpFree, "allot": bytecode.OpAllot,
	"@": bytecode.OpFetch, "!": bytecode.OpStore,

	"itof": bytecode.OpItoF, "utof": bytecode.OpUtoF, "ftoi": bytecode.OpFtoI, "ftou": bytecode.OpFtoU,

	"here": bytecode.OpAddr, "ref": bytecode.OpRef, "set": bytecode.OpSet,

	"bif": bytecode.OpCallBIF,

	"getc": bytecode.OpGetC, "geti": bytecode.OpGetI, "getu": bytecode.OpGetU,
	"getf": bytecode.OpGetF, "gets": bytecode.OpGetS,
	"putc": bytecode.OpPutC, "puti": bytecode.OpPutI, "putu": bytecode.OpPutU,
	"putf": bytecode.OpPutF, "puts": bytecode.OpPutS,
	"show": bytecode.OpShow,
}
