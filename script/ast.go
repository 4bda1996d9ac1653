package script

// Program is the top-level AST: a sequence of lines, in source order.
type Program struct {
	Lines []Line
}

// Line is a top-level construct: a function definition, a bare call,
// or a bare term (which lowers to nothing).
type Line struct {
	FuncDef *FuncDef
	Call    *Call
	Term    *Term
}

// FuncDef is `fn ident(params) { statements }`.
type FuncDef struct {
	Name   string
	Params []string
	Body   []Statement
}

// Call is `ident(args)`.
type Call struct {
	Name string
	Args []Expression
}

// Statement is `return term;` or a bare expression.
type Statement struct {
	Return *Term
	Expr   *Expression
}

// Expression is a term or a nested function call.
type Expression struct {
	Term *Term
	Call *Call
}

// TermKind discriminates the variants of Term.
type TermKind int

const (
	TermIdent TermKind = iota
	TermNumber
	TermString
	// TermPointerRef is synthesized during lowering for a hoisted
	// string literal; it never comes directly from the parser.
	TermPointerRef
)

// Term is an identifier, an unsigned integer, or a string literal (or,
// post-hoisting, a synthesized pointer reference to hoisted data).
type Term struct {
	Kind   TermKind
	Ident  string
	Number uint64
	Str    string
	Label  string // TermPointerRef: the hoisted label name
}
