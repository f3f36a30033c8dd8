package lexer

import (
	"testing"

	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexerBasicTokens(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{
			name: "hello world call",
			src:  `printf("Hello\n")`,
			want: []token.Kind{token.IDENTIFIER, token.LEFT_PAREN, token.STRING_LITERAL, token.RIGHT_PAREN, token.EOF},
		},
		{
			name: "integer and float suffixes",
			src:  `1i64 2.5f32 3`,
			want: []token.Kind{token.INTEGER_LITERAL, token.FLOAT_LITERAL, token.INTEGER_LITERAL, token.EOF},
		},
		{
			name: "compound operators",
			src:  `a += 1 == b != c <= d >= e && f || !g`,
			want: []token.Kind{
				token.IDENTIFIER, token.PLUS_ASSIGN, token.INTEGER_LITERAL, token.EQUAL_EQUAL,
				token.IDENTIFIER, token.BANG_EQUAL, token.IDENTIFIER, token.LESS_EQUAL,
				token.IDENTIFIER, token.GREATER_EQUAL, token.IDENTIFIER, token.AND_AND,
				token.IDENTIFIER, token.OR_OR, token.BANG, token.IDENTIFIER, token.EOF,
			},
		},
		{
			name: "newline significance",
			src:  "let a = 1\nlet b = 2",
			want: []token.Kind{
				token.LET, token.IDENTIFIER, token.ASSIGN, token.INTEGER_LITERAL, token.NEWLINE,
				token.LET, token.IDENTIFIER, token.ASSIGN, token.INTEGER_LITERAL, token.EOF,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := diagnostics.New()
			lx := New("test.pang", []byte(tt.src), col)
			got := kinds(lx.Tokenize())
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("token %d: got %v, want %v (full: %v)", i, got[i], tt.want[i], got)
				}
			}
		})
	}
}

func TestLexerSuffixDefaults(t *testing.T) {
	col := diagnostics.New()
	lx := New("test.pang", []byte("2147483648 3.14"), col)
	toks := lx.Tokenize()

	if toks[0].Kind != token.INTEGER_LITERAL || toks[0].Value.Int != 2147483648 {
		t.Fatalf("unexpected first token: %+v", toks[0])
	}
	if toks[1].Kind != token.FLOAT_LITERAL {
		t.Fatalf("unexpected second token: %+v", toks[1])
	}
}

func TestLexerNestedBlockCommentAndUnterminatedString(t *testing.T) {
	col := diagnostics.New()
	src := `/* outer /* inner */ still in */ "oops`
	lx := New("test.pang", []byte(src), col)
	_ = lx.Tokenize()

	if col.ErrorCount() != 1 {
		t.Fatalf("want exactly one error, got %d: %+v", col.ErrorCount(), col.Diags)
	}
	if col.Diags[0].Message != "unterminated string literal" {
		t.Fatalf("unexpected diagnostic: %q", col.Diags[0].Message)
	}
}

func TestLexerUnknownEscapeRecovers(t *testing.T) {
	col := diagnostics.New()
	lx := New("test.pang", []byte(`"a\qb"`), col)
	toks := lx.Tokenize()

	if len(col.Diags) != 1 {
		t.Fatalf("want one recorded diagnostic, got %d", len(col.Diags))
	}
	if toks[0].Value.Str != "aqb" {
		t.Fatalf("want literal passthrough 'aqb', got %q", toks[0].Value.Str)
	}
}

func TestLexerEOFIsAlwaysLast(t *testing.T) {
	col := diagnostics.New()
	lx := New("test.pang", []byte("  \n  "), col)
	toks := lx.Tokenize()
	if toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("last token must be EOF, got %v", toks)
	}
}
