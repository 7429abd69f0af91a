package frontend

import "testing"

func lexAll(t *testing.T, src string) []token {
	t.Helper()
	toks, err := Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize(%q) error: %s", src, err)
	}
	return toks
}

func TestLexerKeywordsAndIdentifiers(t *testing.T) {
	toks := lexAll(t, "class Foo extends Bar self")
	want := []tokenType{tokClass, tokTypeIdentifier, tokExtends, tokTypeIdentifier, tokSelf, tokEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i1, w := range want {
		if toks[i1].typ != w {
			t.Errorf("token %d: got %s, want %s", i1, tokenName(toks[i1].typ), tokenName(w))
		}
	}
}

func TestLexerIntegerLiterals(t *testing.T) {
	toks := lexAll(t, "42 0x2A 0")
	for _, i1 := range []int{0, 1, 2} {
		if toks[i1].typ != tokInteger {
			t.Errorf("token %d: got %s, want integer", i1, tokenName(toks[i1].typ))
		}
	}
}

func TestLexerStringLiteralPreservesEscapes(t *testing.T) {
	toks := lexAll(t, `"a\tb"`)
	if toks[0].typ != tokString {
		t.Fatalf("expected a string token, got %s", tokenName(toks[0].typ))
	}
	if toks[0].val != `"a\tb"` {
		t.Errorf("token text = %q, want the raw lexeme %q", toks[0].val, `"a\tb"`)
	}
	s, err := unescape(toks[0].val)
	if err != nil {
		t.Fatalf("unescape error: %s", err)
	}
	if s != "a\tb" {
		t.Errorf("unescape(%q) = %q, want %q", toks[0].val, s, "a\tb")
	}
}

func TestLexerOperators(t *testing.T) {
	toks := lexAll(t, "<- <= < = + - * / ^")
	want := []tokenType{tokAssign, tokLowerEqual, tokLower, tokEquals, tokPlus, tokMinus, tokTimes, tokDiv, tokPow, tokEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i1, w := range want {
		if toks[i1].typ != w {
			t.Errorf("token %d: got %s, want %s", i1, tokenName(toks[i1].typ), tokenName(w))
		}
	}
}

func TestLexerLineAndBlockComments(t *testing.T) {
	toks := lexAll(t, "1 // a comment\n2 /* block\ncomment */ 3")
	var ints []token
	for _, tk := range toks {
		if tk.typ == tokInteger {
			ints = append(ints, tk)
		}
	}
	if len(ints) != 3 {
		t.Fatalf("expected 3 integers after stripping comments, got %d", len(ints))
	}
}

func TestLexerRejectsUnterminatedString(t *testing.T) {
	_, err := Tokenize(`"abc`)
	if err == nil {
		t.Error("expected a lexical error for an unterminated string")
	}
}
