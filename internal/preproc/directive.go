package preproc

// Directive identifies one of the preprocessor's built-in `#`-prefixed
// meta-language words. Numbering has no external contract (unlike
// bytecode.Op) — it only has to agree with the names table below and the
// dispatch switch in dispatch.go.
type Directive int

const (
	DDef Directive = iota
	DMacro
	DIsDef
	DUndef
	DGetDef
	DLDef
	DLMacro
	DLIsDef
	DLUndef
	DLGetDef

	DImport
	DInclude

	DEval
	DIf

	DConcat
	DSubstr
	DCompare
	DLen

	DDrop
	DNip
	DDup
	DOver
	DTuck
	DSwap
	DRot
	D2Drop
	D2Nip
	D2Dup
	D2Over
	D2Tuck
	D2Swap
	D2Rot

	DAdd
	DSub
	DMul
	DDiv
	DMod
	DUDiv
	DUMod

	DEqu
	DNeq
	DGrt
	DGeq
	DLst
	DLeq
	DUGrt
	DUGeq
	DULst
	DULeq

	DFAdd
	DFSub
	DFMul
	DFDiv
	DFMod

	DFGrt
	DFGeq
	DFLst
	DFLeq

	DAnd
	DOr
	DXor
	DNot
	DLsft
	DRsft

	DFtoI
	DItoF

	DFmtI
	DFmtU
	DFmtF

	DBreak
	DContinue
)

// directiveNames is the `#`-prefixed spelling recognized in source text,
// matching the catalog in the original preprocessor's keyword table (with
// the definition-family directives and #break/#continue filled in, which
// that table omitted but the compiler's dispatcher still recognized).
var directiveNames = map[string]Directive{
	"#def": DDef, "#macro": DMacro, "#isdef": DIsDef, "#undef": DUndef, "#getdef": DGetDef,
	"#ldef": DLDef, "#lmacro": DLMacro, "#lisdef": DLIsDef, "#lundef": DLUndef, "#lgetdef": DLGetDef,

	"#import": DImport, "#include": DInclude,

	"#eval": DEval, "#if": DIf,

	"#concat": DConcat, "#substr": DSubstr, "#compare": DCompare, "#len": DLen,

	"#drop": DDrop, "#nip": DNip, "#dup": DDup, "#over": DOver, "#tuck": DTuck, "#swap": DSwap, "#rot": DRot,
	"#2drop": D2Drop, "#2nip": D2Nip, "#2dup": D2Dup, "#2over": D2Over, "#2tuck": D2Tuck, "#2swap": D2Swap, "#2rot": D2Rot,

	"#+": DAdd, "#-": DSub, "#*": DMul, "#/": DDiv, "#%": DMod, "#u/": DUDiv, "#u%": DUMod,

	"#=": DEqu, "#!=": DNeq, "#<": DLst, "#<=": DLeq, "#>": DGrt, "#>=": DGeq,
	"#u<": DULst, "#u<=": DULeq, "#u>": DUGrt, "#u>=": DUGeq,

	"#f+": DFAdd, "#f-": DFSub, "#f*": DFMul, "#f/": DFDiv, "#f%": DFMod,
	"#f<": DFLst, "#f<=": DFLeq, "#f>": DFGrt, "#f>=": DFGeq,

	"#&": DAnd, "#|": DOr, "#^": DXor, "#~": DNot, "#<<": DLsft, "#>>": DRsft,

	"#ftoi": DFtoI, "#itof": DItoF,

	"#fmti": DFmtI, "#fmtu": DFmtU, "#fmtf": DFmtF,

	"#break": DBreak, "#continue": DContinue,
}
