package query

import (
	"fmt"
	"strings"

	"github.com/joacominatel/litequery/internal/database"
)

// Shape is one of the SELECT forms the classifier recognises.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeSimple is SELECT cols FROM tables.
	ShapeSimple
	// ShapeFiltered is ShapeSimple followed by WHERE, ORDER BY or LIMIT.
	ShapeFiltered
	// ShapeJoined is SELECT cols FROM tables INNER JOIN table ON cond.
	ShapeJoined
	// ShapeJoinedFiltered is ShapeJoined followed by WHERE, ORDER BY or LIMIT.
	ShapeJoinedFiltered
)

func (s Shape) String() string {
	switch s {
	case ShapeSimple:
		return "simple"
	case ShapeFiltered:
		return "filtered"
	case ShapeJoined:
		return "joined"
	case ShapeJoinedFiltered:
		return "joined-filtered"
	default:
		return "unknown"
	}
}

// Joined reports whether the shape carries an INNER JOIN.
func (s Shape) Joined() bool {
	return s == ShapeJoined || s == ShapeJoinedFiltered
}

// tableRef is one entry of a FROM list.
type tableRef struct {
	Name  string
	Alias string
}

// statement is the parse of a recognised SELECT.
//
//	select     = "SELECT" [ "DISTINCT" | "ALL" ] items "FROM" tables [ join ] [ tail ]
//	items      = item { "," item }
//	tables     = table { "," table }
//	table      = name [ [ "AS" ] alias ]
//	join       = "INNER" "JOIN" table "ON" condition
//	tail       = ( "WHERE" | "ORDER" | "LIMIT" ) ...
type statement struct {
	shape  Shape
	src    string
	items  [][]token
	tables []tableRef
	join   *tableRef
}

var (
	tailKeywords = []string{"WHERE", "ORDER", "LIMIT"}
	joinKeywords = []string{"JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL", "OUTER"}
	// setKeywords name clauses outside the recognised grammar.
	setKeywords = []string{"UNION", "INTERSECT", "EXCEPT", "GROUP", "HAVING", "OVER", "WINDOW"}
)

func unsupported(query, format string, args ...any) error {
	return &database.Error{
		Kind:   database.KindUnsupportedConstruct,
		Query:  query,
		Detail: fmt.Sprintf(format, args...),
	}
}

func keywordIn(t token, kws []string) bool {
	for _, kw := range kws {
		if t.keyword(kw) {
			return true
		}
	}
	return false
}

// IsSelect reports whether queryText is a SELECT statement.
func IsSelect(queryText string) bool {
	tokens, err := tokenize(queryText)
	if err != nil || len(tokens) == 0 {
		return false
	}
	return tokens[0].keyword("SELECT")
}

// Classify returns the shape of queryText without consulting the schema.
func Classify(queryText string) (Shape, error) {
	stmt, err := parse(Normalize(queryText))
	if err != nil {
		return ShapeUnknown, err
	}
	return stmt.shape, nil
}

func parse(src string) (*statement, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, unsupported(src, "%v", err)
	}
	if len(tokens) == 0 || !tokens[0].keyword("SELECT") {
		return nil, unsupported(src, "not a SELECT statement")
	}
	if err := rejectUnsupported(src, tokens); err != nil {
		return nil, err
	}

	stmt := &statement{src: src}
	pos := 1
	if pos < len(tokens) && (tokens[pos].keyword("DISTINCT") || tokens[pos].keyword("ALL")) {
		pos++
	}

	// Projection runs to the first FROM outside parentheses.
	from := indexAtDepthZero(tokens, pos, func(t token) bool { return t.keyword("FROM") })
	if from < 0 {
		return nil, unsupported(src, "SELECT without FROM")
	}
	stmt.items = splitTopLevel(tokens[pos:from])
	if len(stmt.items) == 0 {
		return nil, unsupported(src, "empty projection")
	}
	for _, item := range stmt.items {
		if len(item) == 0 {
			return nil, unsupported(src, "empty projection item")
		}
	}

	pos = from + 1
	stop := indexAtDepthZero(tokens, pos, func(t token) bool {
		return keywordIn(t, tailKeywords) || keywordIn(t, joinKeywords)
	})
	end := stop
	if stop < 0 {
		end = len(tokens)
	}
	if stmt.tables, err = parseTableList(src, tokens[pos:end]); err != nil {
		return nil, err
	}

	switch {
	case stop < 0:
		stmt.shape = ShapeSimple
	case keywordIn(tokens[stop], tailKeywords):
		stmt.shape = ShapeFiltered
	case tokens[stop].keyword("INNER") && stop+1 < len(tokens) && tokens[stop+1].keyword("JOIN"):
		if err := stmt.parseJoin(tokens, stop+2); err != nil {
			return nil, err
		}
	default:
		return nil, unsupported(src, "only a single INNER JOIN is supported")
	}
	return stmt, nil
}

// parseJoin reads "table ON condition [tail]" starting at pos.
func (s *statement) parseJoin(tokens []token, pos int) error {
	on := indexAtDepthZero(tokens, pos, func(t token) bool { return t.keyword("ON") })
	if on < 0 {
		return unsupported(s.src, "INNER JOIN without ON")
	}
	refs, err := parseTableList(s.src, tokens[pos:on])
	if err != nil {
		return err
	}
	if len(refs) != 1 {
		return unsupported(s.src, "INNER JOIN must name exactly one table")
	}
	s.join = &refs[0]

	rest := on + 1
	if idx := indexAtDepthZero(tokens, rest, func(t token) bool { return keywordIn(t, joinKeywords) }); idx >= 0 {
		return unsupported(s.src, "only a single INNER JOIN is supported")
	}
	tail := indexAtDepthZero(tokens, rest, func(t token) bool { return keywordIn(t, tailKeywords) })
	if tail == rest || rest >= len(tokens) {
		return unsupported(s.src, "INNER JOIN without a join condition")
	}
	if tail < 0 {
		s.shape = ShapeJoined
	} else {
		s.shape = ShapeJoinedFiltered
	}
	return nil
}

// rejectUnsupported stops subqueries, set operations, grouping, windows and
// global function calls before shape matching.
func rejectUnsupported(src string, tokens []token) error {
	for i, t := range tokens {
		switch {
		case i > 0 && t.keyword("SELECT"):
			return unsupported(src, "subqueries are not supported")
		case keywordIn(t, setKeywords):
			return unsupported(src, "%s is not supported", strings.ToUpper(t.text))
		case t.kind == tokIdent && isGlobalFunction(t.text) &&
			i+1 < len(tokens) && tokens[i+1].is("(") &&
			(i == 0 || !tokens[i-1].is(".")):
			return unsupported(src, "global function %s() has no table", t.text)
		}
	}
	return nil
}

func parseTableList(src string, tokens []token) ([]tableRef, error) {
	segments := splitTopLevel(tokens)
	if len(segments) == 0 {
		return nil, unsupported(src, "missing table list")
	}

	refs := make([]tableRef, 0, len(segments))
	for _, seg := range segments {
		ref, ok := parseTableRef(seg)
		if !ok {
			return nil, unsupported(src, "unsupported table expression %q", span(src, seg))
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseTableRef(seg []token) (tableRef, bool) {
	var ref tableRef
	var ok bool
	switch len(seg) {
	case 1:
		ref.Name, ok = seg[0].name()
	case 2:
		if ref.Name, ok = seg[0].name(); ok {
			ref.Alias, ok = seg[1].name()
		}
	case 3:
		if !seg[1].keyword("AS") {
			return ref, false
		}
		if ref.Name, ok = seg[0].name(); ok {
			ref.Alias, ok = seg[2].name()
		}
	}
	return ref, ok
}

// splitTopLevel splits tokens on commas outside parentheses.
func splitTopLevel(tokens []token) [][]token {
	if len(tokens) == 0 {
		return nil
	}
	var parts [][]token
	depth, start := 0, 0
	for i, t := range tokens {
		switch {
		case t.is("("):
			depth++
		case t.is(")"):
			depth--
		case t.is(",") && depth == 0:
			parts = append(parts, tokens[start:i])
			start = i + 1
		}
	}
	return append(parts, tokens[start:])
}

// indexAtDepthZero returns the index of the first token at or after from that
// matches and is not inside parentheses, or -1.
func indexAtDepthZero(tokens []token, from int, match func(token) bool) int {
	depth := 0
	for i := from; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.is("("):
			depth++
		case t.is(")"):
			depth--
		case depth == 0 && match(t):
			return i
		}
	}
	return -1
}
