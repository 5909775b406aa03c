package query

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// sqlLexer tokenizes the subset of SQL the classifier reads. Rules are tried
// in order, so comments come before operators and punctuation before the
// catch-all.
var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*|/\*(?:[^*]|\*[^/])*\*/`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `'(?:''|[^'])*'`},
	{Name: "QuotedIdent", Pattern: "\"(?:\"\"|[^\"])*\"|`[^`]*`|\\[[^\\]]*\\]"},
	{Name: "Number", Pattern: `\d+(?:\.\d*)?(?:[eE][-+]?\d+)?|\.\d+`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_$]*`},
	{Name: "Punct", Pattern: `[(),.;*]`},
	{Name: "Operator", Pattern: `\|\||<>|!=|<=|>=|==|<<|>>|[-+/%=<>&|~]`},
	{Name: "Param", Pattern: `[?:@$][\p{L}\p{N}_]*`},
	{Name: "Other", Pattern: `.`},
})

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokQuoted
	tokString
	tokNumber
	tokPunct
	tokOperator
	tokParam
	tokOther
)

var (
	symbols      = sqlLexer.Symbols()
	kindBySymbol = map[lexer.TokenType]tokenKind{
		symbols["Ident"]:       tokIdent,
		symbols["QuotedIdent"]: tokQuoted,
		symbols["String"]:      tokString,
		symbols["Number"]:      tokNumber,
		symbols["Punct"]:       tokPunct,
		symbols["Operator"]:    tokOperator,
		symbols["Param"]:       tokParam,
		symbols["Other"]:       tokOther,
	}
	skipSymbols = map[lexer.TokenType]bool{
		symbols["Comment"]:    true,
		symbols["Whitespace"]: true,
		lexer.EOF:             true,
	}
)

// token is a significant lexeme with its byte span in the analysed text.
type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

func (t token) is(punct string) bool {
	return t.kind == tokPunct && t.text == punct
}

func (t token) keyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

// name returns the identifier a token spells, unquoting quoted identifiers.
func (t token) name() (string, bool) {
	switch t.kind {
	case tokIdent:
		return t.text, true
	case tokQuoted:
		return unquoteIdent(t.text), true
	default:
		return "", false
	}
}

func tokenize(text string) ([]token, error) {
	lex, err := sqlLexer.LexString("", text)
	if err != nil {
		return nil, fmt.Errorf("lex: %w", err)
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("lex: %w", err)
	}

	tokens := make([]token, 0, len(raw))
	for _, r := range raw {
		if skipSymbols[r.Type] {
			continue
		}
		tokens = append(tokens, token{
			kind:  kindBySymbol[r.Type],
			text:  r.Value,
			start: r.Pos.Offset,
			end:   r.Pos.Offset + len(r.Value),
		})
	}
	return tokens, nil
}

func unquoteIdent(s string) string {
	if len(s) < 2 {
		return s
	}
	switch s[0] {
	case '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case '`', '[':
		return s[1 : len(s)-1]
	}
	return s
}

// span returns the source text covered by tokens.
func span(src string, tokens []token) string {
	if len(tokens) == 0 {
		return ""
	}
	return src[tokens[0].start:tokens[len(tokens)-1].end]
}

// Normalize drops comments, collapses whitespace runs (newlines included)
// into single spaces and strips trailing semicolons. Only the analysis copy
// of a query is normalized; the engine always receives the text as written.
func Normalize(queryText string) string {
	s := strings.Join(strings.Fields(stripComments(queryText)), " ")
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}

// stripComments replaces every comment with a space. Text the lexer rejects
// is returned unchanged.
func stripComments(text string) string {
	lex, err := sqlLexer.LexString("", text)
	if err != nil {
		return text
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range raw {
		switch r.Type {
		case lexer.EOF:
		case symbols["Comment"]:
			b.WriteByte(' ')
		default:
			b.WriteString(r.Value)
		}
	}
	return b.String()
}

// FirstKeyword returns the upper-cased first keyword of queryText, skipping
// comments and opening parentheses. It is empty when the text starts with
// anything else.
func FirstKeyword(queryText string) string {
	tokens, err := tokenize(queryText)
	if err != nil {
		return ""
	}
	for _, t := range tokens {
		if t.is("(") {
			continue
		}
		if t.kind == tokIdent {
			return strings.ToUpper(t.text)
		}
		return ""
	}
	return ""
}

// HasKeyword reports whether kw appears as a bare keyword in queryText.
// String literals, quoted identifiers and comments never match.
func HasKeyword(queryText, kw string) bool {
	tokens, err := tokenize(queryText)
	if err != nil {
		return false
	}
	for _, t := range tokens {
		if t.keyword(kw) {
			return true
		}
	}
	return false
}
