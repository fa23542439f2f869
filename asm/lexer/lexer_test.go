// Tests the lexer by verifying that a sample textual IR snippet is
// tokenized into an expected Token stream: a slice of expected tokens is
// compared position by position against what Tokenize produces.
package lexer

import "testing"

func TestTokenizeFunctionSignature(t *testing.T) {
	src := "define i32 @add(i32, i32) {\nentry:\n\tret 0: i32\n}\n"
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	exp := []Token{
		{Kind: Ident, Val: "define", Line: 1, Col: 1},
		{Kind: Ident, Val: "i32", Line: 1, Col: 8},
		{Kind: Global, Val: "add", Line: 1, Col: 13},
		{Kind: LParen, Val: "(", Line: 1, Col: 16},
		{Kind: Ident, Val: "i32", Line: 1, Col: 17},
		{Kind: Comma, Val: ",", Line: 1, Col: 20},
		{Kind: Ident, Val: "i32", Line: 1, Col: 22},
		{Kind: RParen, Val: ")", Line: 1, Col: 25},
		{Kind: LBrace, Val: "{", Line: 1, Col: 27},
		{Kind: Ident, Val: "entry", Line: 2, Col: 1},
		{Kind: Colon, Val: ":", Line: 2, Col: 6},
		{Kind: Ident, Val: "ret", Line: 3, Col: 2},
		{Kind: Int, Val: "0", Line: 3, Col: 6},
		{Kind: Colon, Val: ":", Line: 3, Col: 7},
		{Kind: Ident, Val: "i32", Line: 3, Col: 9},
		{Kind: RBrace, Val: "}", Line: 4, Col: 1},
	}
	if len(toks) != len(exp) {
		t.Fatalf("token count mismatch: got %d, want %d (%v)", len(toks), len(exp), toks)
	}
	for i, want := range exp {
		got := toks[i]
		if got.Kind != want.Kind || got.Val != want.Val || got.Line != want.Line || got.Col != want.Col {
			t.Fatalf("token %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestTokenizeComment(t *testing.T) {
	toks, err := Tokenize("; a comment\ndefine")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(toks) != 1 || toks[0].Kind != Ident || toks[0].Val != "define" {
		t.Fatalf("expected a single 'define' identifier, got %v", toks)
	}
}

func TestTokenizeSigilNames(t *testing.T) {
	toks, err := Tokenize("@glob %loc $lab")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := []struct {
		kind Kind
		val  string
	}{
		{Global, "glob"}, {Local, "loc"}, {Label, "lab"},
	}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(toks))
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Val != w.val {
			t.Fatalf("token %d: got %+v, want kind %s val %q", i, toks[i], w.kind, w.val)
		}
	}
}

func TestTokenizeFloatAndEllipsis(t *testing.T) {
	toks, err := Tokenize("3.14 (i32, ...)")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if toks[0].Kind != Float || toks[0].Val != "3.14" {
		t.Fatalf("expected float 3.14, got %+v", toks[0])
	}
	var sawEllipsis bool
	for _, tok := range toks {
		if tok.Kind == Ellipsis {
			sawEllipsis = true
		}
	}
	if !sawEllipsis {
		t.Fatal("expected an Ellipsis token")
	}
}

func TestTokenizeUnclosedStringErrors(t *testing.T) {
	_, err := Tokenize(`module = "unterminated`)
	if err == nil {
		t.Fatal("expected an error for an unclosed string literal")
	}
}
