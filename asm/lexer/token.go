// Package lexer tokenizes the textual IR grammar, as a state-function
// scanner in the style Rob Pike's "Lexical Scanning in Go" talk
// popularized, run as a single eager pass that appends tokens to a
// slice: the recursive-descent parser (asm/parser) wants random-access
// lookahead, so the token stream is materialized up front rather than
// streamed.
package lexer

import "fmt"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind identifies the lexical class of a Token.
type Kind uint8

const (
	EOF Kind = iota
	Error
	Ident    // bare word: a keyword, type name, opcode mnemonic, or predicate,
	// resolved by the parser (the grammar position decides which).
	Int    // integer literal
	Float  // floating-point literal
	Str    // "..." string literal
	Global // @name
	Local  // %name
	Label  // $name
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Colon
	Equals
	Lt
	Gt
	Ellipsis
)

var kindNames = [...]string{
	EOF: "EOF", Error: "error", Ident: "identifier", Int: "integer",
	Float: "float", Str: "string", Global: "@name", Local: "%name", Label: "$name",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]", Comma: ",", Colon: ":", Equals: "=",
	Lt: "<", Gt: ">", Ellipsis: "...",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Token is one lexeme scanned from the source, with the position the
// parser reports errors at.
type Token struct {
	Kind Kind
	Val  string
	Line int
	Col  int
}

func (t Token) String() string {
	if t.Kind == Ident || t.Kind == Global || t.Kind == Local || t.Kind == Label || t.Kind == Int || t.Kind == Float || t.Kind == Str {
		return fmt.Sprintf("%s %q (line %d:%d)", t.Kind, t.Val, t.Line, t.Col)
	}
	return fmt.Sprintf("%s (line %d:%d)", t.Kind, t.Line, t.Col)
}
