package validate

import (
	"strings"
	"unicode"

	"github.com/mkessler/mapgate-go/internal/models"
)

// Statement verbs that may start a command. Everything else, DDL included,
// is rejected outright.
var allowedVerbs = map[string]struct{}{
	"select": {},
	"insert": {},
	"merge":  {},
}

// Keywords that are forbidden anywhere in a statement, regardless of
// position. EXECUTE covers dynamic SQL (EXECUTE IMMEDIATE).
var forbiddenAnywhere = map[string]struct{}{
	"drop": {}, "alter": {}, "create": {}, "truncate": {},
	"grant": {}, "revoke": {}, "execute": {}, "call": {},
}

// sqlKeywords are tokens that are part of the statement grammar and never
// resolve against the schema. Includes type names used in CAST expressions.
var sqlKeywords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "insert": {}, "into": {},
	"values": {}, "merge": {}, "using": {}, "when": {}, "matched": {},
	"then": {}, "update": {}, "set": {}, "delete": {}, "as": {}, "on": {},
	"and": {}, "or": {}, "not": {}, "null": {}, "is": {}, "in": {},
	"exists": {}, "between": {}, "like": {}, "case": {}, "else": {},
	"end": {}, "join": {}, "left": {}, "right": {}, "inner": {},
	"outer": {}, "full": {}, "cross": {}, "group": {}, "order": {},
	"by": {}, "asc": {}, "desc": {}, "limit": {}, "offset": {},
	"having": {}, "distinct": {}, "union": {}, "all": {}, "true": {},
	"false": {}, "interval": {},
	// Type names.
	"string": {}, "int64": {}, "float64": {}, "numeric": {},
	"bignumeric": {}, "bool": {}, "bytes": {}, "date": {}, "datetime": {},
	"time": {}, "timestamp": {}, "json": {},
}

// Function allow-list. An identifier followed by an opening parenthesis must
// be one of these; unknown functions are rejected rather than resolved.
var allowedFunctions = map[string]struct{}{
	"cast": {}, "safe_cast": {}, "coalesce": {}, "nullif": {},
	"ifnull": {}, "concat": {}, "upper": {}, "lower": {}, "trim": {},
	"round": {}, "abs": {}, "length": {}, "substr": {}, "replace": {},
	"current_timestamp": {}, "current_date": {}, "now": {},
	"parse_date": {}, "format_date": {}, "date": {}, "timestamp": {},
	"count": {}, "sum": {}, "min": {}, "max": {}, "avg": {},
}

type tokenKind int

const (
	tokPath tokenKind = iota // identifier, possibly dotted or backtick-quoted
	tokSymbol
	tokLiteral
)

type token struct {
	kind tokenKind
	text string   // symbol text or literal placeholder
	path []string // for tokPath, the dot-separated segments (original case)
}

// ValidateStatement checks a generated statement against the captured
// schemas. It enforces the command allow-list, rejects multi-statement and
// dynamic input, and verifies that every table and column reference resolves
// to the allowed schema set. Returns UnsafeStatementError or
// HallucinatedReferenceError; a nil return means the statement may be handed
// to the connector.
func ValidateStatement(stmt string, allowed []models.SchemaDescriptor) error {
	stripped, err := stripComments(stmt)
	if err != nil {
		return err
	}

	commands, err := splitCommands(stripped)
	if err != nil {
		return err
	}
	if len(commands) == 0 {
		return &UnsafeStatementError{Reason: "empty statement"}
	}
	if len(commands) > 1 {
		return &UnsafeStatementError{Reason: "multiple top-level commands are not allowed"}
	}

	tokens, err := tokenize(commands[0])
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return &UnsafeStatementError{Reason: "empty statement"}
	}

	first := tokens[0]
	if first.kind != tokPath || len(first.path) != 1 {
		return &UnsafeStatementError{Reason: "statement must start with an allowed command verb"}
	}
	verb := strings.ToLower(first.path[0])
	if _, ok := allowedVerbs[verb]; !ok {
		return &UnsafeStatementError{Reason: "command " + strings.ToUpper(verb) + " is not on the allow-list"}
	}

	for _, t := range tokens {
		if t.kind == tokPath && len(t.path) == 1 {
			if _, bad := forbiddenAnywhere[strings.ToLower(t.path[0])]; bad {
				return &UnsafeStatementError{Reason: "forbidden keyword " + strings.ToUpper(t.path[0])}
			}
		}
	}

	return checkReferences(tokens, newSchemaIndex(allowed))
}

// schemaIndex resolves table and column references, case-insensitively.
type schemaIndex struct {
	datasets map[string]struct{}
	tables   map[string]models.SchemaDescriptor
	columns  map[string]struct{} // union of all column names
}

func newSchemaIndex(allowed []models.SchemaDescriptor) *schemaIndex {
	idx := &schemaIndex{
		datasets: make(map[string]struct{}),
		tables:   make(map[string]models.SchemaDescriptor),
		columns:  make(map[string]struct{}),
	}
	for _, s := range allowed {
		idx.datasets[strings.ToLower(s.Dataset)] = struct{}{}
		idx.tables[strings.ToLower(s.Table)] = s
		for _, c := range s.Columns {
			idx.columns[strings.ToLower(c.Name)] = struct{}{}
		}
	}
	return idx
}

func (idx *schemaIndex) knownDataset(name string) bool {
	_, ok := idx.datasets[strings.ToLower(name)]
	return ok
}

func (idx *schemaIndex) knownTable(name string) bool {
	_, ok := idx.tables[strings.ToLower(name)]
	return ok
}

func (idx *schemaIndex) knownColumn(name string) bool {
	_, ok := idx.columns[strings.ToLower(name)]
	return ok
}

// resolveTablePath checks a table reference of the form table, dataset.table
// or project.dataset.table.
func (idx *schemaIndex) resolveTablePath(path []string) error {
	table := path[len(path)-1]
	if !idx.knownTable(table) {
		return &HallucinatedReferenceError{Kind: "table", Name: strings.Join(path, ".")}
	}
	if len(path) >= 2 {
		dataset := path[len(path)-2]
		if !idx.knownDataset(dataset) {
			return &HallucinatedReferenceError{Kind: "table", Name: strings.Join(path, ".")}
		}
	}
	return nil
}

// checkReferences walks the token stream and resolves every identifier path
// that is not a keyword, a declared alias, or an allow-listed function call.
// Column resolution is deferred until the whole stream has been walked, since
// a select list may use an alias the FROM clause declares later.
func checkReferences(tokens []token, idx *schemaIndex) error {
	aliases := map[string]struct{}{}
	var deferred [][]string

	expectTable := false
	expectAlias := false // previous token declared something via AS

	for i, t := range tokens {
		switch t.kind {
		case tokSymbol, tokLiteral:
			// FROM/USING followed by "(" opens a subquery, not a table name.
			if expectTable && t.kind == tokSymbol && t.text == "(" {
				expectTable = false
			}
			continue
		}

		lower := strings.ToLower(t.path[0])
		isKeyword := len(t.path) == 1 && isSQLKeyword(lower)

		if expectAlias {
			expectAlias = false
			if isKeyword {
				continue // CAST(x AS STRING) and friends
			}
			if len(t.path) != 1 {
				return &UnsafeStatementError{Reason: "alias must be a simple identifier"}
			}
			if err := ValidateIdentifier(t.path[0]); err != nil {
				// Output aliases frequently shadow reserved-looking target
				// column names; those are still rejected here because the
				// generator never emits them.
				return &UnsafeStatementError{Reason: err.Error()}
			}
			aliases[strings.ToLower(t.path[0])] = struct{}{}
			continue
		}

		if isKeyword {
			switch lower {
			case "from", "into", "join", "using", "merge":
				expectTable = true
			case "as":
				expectAlias = true
			}
			continue
		}

		// Function call?
		if len(t.path) == 1 && nextSymbolIs(tokens, i, "(") {
			if _, ok := allowedFunctions[lower]; !ok {
				return &UnsafeStatementError{Reason: "function " + t.path[0] + " is not on the allow-list"}
			}
			continue
		}

		if expectTable {
			expectTable = false
			if err := idx.resolveTablePath(t.path); err != nil {
				return err
			}
			// A bare identifier right after a table reference is its alias.
			if j := i + 1; j < len(tokens) && tokens[j].kind == tokPath && len(tokens[j].path) == 1 {
				next := strings.ToLower(tokens[j].path[0])
				if !isSQLKeyword(next) && !nextSymbolIs(tokens, j, "(") {
					aliases[next] = struct{}{}
				}
			}
			continue
		}

		// Column reference: column, alias.column or table.column.
		deferred = append(deferred, t.path)
	}

	for _, path := range deferred {
		if err := resolveColumnPath(path, idx, aliases); err != nil {
			return err
		}
	}
	return nil
}

func resolveColumnPath(path []string, idx *schemaIndex, aliases map[string]struct{}) error {
	name := strings.Join(path, ".")
	last := strings.ToLower(path[len(path)-1])

	switch len(path) {
	case 1:
		// Could legitimately be a previously declared alias (e.g. MERGE's
		// target alias used bare).
		if _, ok := aliases[last]; ok {
			return nil
		}
		if idx.knownColumn(last) || idx.knownTable(last) || idx.knownDataset(last) {
			return nil
		}
		return &HallucinatedReferenceError{Kind: "column", Name: name}
	case 2:
		qualifier := strings.ToLower(path[0])
		_, isAlias := aliases[qualifier]
		if !isAlias && !idx.knownTable(qualifier) && !idx.knownDataset(qualifier) {
			return &HallucinatedReferenceError{Kind: "column", Name: name}
		}
		if idx.knownColumn(last) {
			return nil
		}
		if idx.knownDataset(qualifier) && idx.knownTable(last) {
			return nil
		}
		return &HallucinatedReferenceError{Kind: "column", Name: name}
	default:
		// project.dataset.column shapes only appear for tables; anything
		// deeper than that is not something the generator produces.
		return &UnsafeStatementError{Reason: "unsupported reference " + name}
	}
}

func isSQLKeyword(lower string) bool {
	_, ok := sqlKeywords[lower]
	return ok
}

func nextSymbolIs(tokens []token, i int, sym string) bool {
	if i+1 >= len(tokens) {
		return false
	}
	t := tokens[i+1]
	return t.kind == tokSymbol && t.text == sym
}

// stripComments removes -- line comments and /* */ block comments, failing
// on unterminated blocks.
func stripComments(s string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		switch {
		case s[i] == '\'':
			end, err := scanStringLiteral(s, i)
			if err != nil {
				return "", err
			}
			b.WriteString(s[i:end])
			i = end
		case strings.HasPrefix(s[i:], "--"):
			nl := strings.IndexByte(s[i:], '\n')
			if nl < 0 {
				i = len(s)
			} else {
				i += nl
			}
		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return "", &UnsafeStatementError{Reason: "unterminated block comment"}
			}
			b.WriteByte(' ')
			i += 2 + end + 2
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), nil
}

// splitCommands splits on top-level semicolons, respecting string literals.
func splitCommands(s string) ([]string, error) {
	var commands []string
	var cur strings.Builder
	i := 0
	for i < len(s) {
		switch s[i] {
		case '\'':
			end, err := scanStringLiteral(s, i)
			if err != nil {
				return nil, err
			}
			cur.WriteString(s[i:end])
			i = end
		case ';':
			if strings.TrimSpace(cur.String()) != "" {
				commands = append(commands, cur.String())
			}
			cur.Reset()
			i++
		default:
			cur.WriteByte(s[i])
			i++
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		commands = append(commands, cur.String())
	}
	return commands, nil
}

func scanStringLiteral(s string, start int) (int, error) {
	i := start + 1
	for i < len(s) {
		if s[i] == '\'' {
			// Doubled quote escapes.
			if i+1 < len(s) && s[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, &UnsafeStatementError{Reason: "unterminated string literal"}
}

// tokenize produces the token stream. Backtick-quoted names become a single
// path token; template placeholders ({...}) make the statement dynamic and
// therefore invalid.
func tokenize(s string) ([]token, error) {
	var tokens []token
	parens := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			i++
		case c == '{' || c == '}':
			return nil, &UnsafeStatementError{Reason: "unresolved template placeholder"}
		case c == '(':
			parens++
			tokens = append(tokens, token{kind: tokSymbol, text: "("})
			i++
		case c == ')':
			parens--
			if parens < 0 {
				return nil, &UnsafeStatementError{Reason: "unbalanced parentheses"}
			}
			tokens = append(tokens, token{kind: tokSymbol, text: ")"})
			i++
		case c == '\'':
			end, err := scanStringLiteral(s, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokLiteral, text: "'...'"})
			i = end
		case c == '`':
			end := strings.IndexByte(s[i+1:], '`')
			if end < 0 {
				return nil, &UnsafeStatementError{Reason: "unterminated quoted identifier"}
			}
			quoted := s[i+1 : i+1+end]
			if quoted == "" {
				return nil, &UnsafeStatementError{Reason: "empty quoted identifier"}
			}
			tokens = append(tokens, token{kind: tokPath, path: strings.Split(quoted, ".")})
			i += end + 2
		case isIdentStart(rune(c)):
			j := i
			var segs []string
			for {
				k := j
				for k < len(s) && isIdentPart(rune(s[k])) {
					k++
				}
				segs = append(segs, s[j:k])
				if k < len(s) && s[k] == '.' {
					j = k + 1
					if j >= len(s) || !isIdentStart(rune(s[j])) {
						return nil, &UnsafeStatementError{Reason: "malformed dotted reference"}
					}
					continue
				}
				i = k
				break
			}
			tokens = append(tokens, token{kind: tokPath, path: segs})
		case c >= '0' && c <= '9':
			j := i
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: tokLiteral, text: s[i:j]})
			i = j
		case strings.ContainsRune("=<>!+-*/|&", rune(c)):
			tokens = append(tokens, token{kind: tokSymbol, text: string(c)})
			i++
		default:
			return nil, &UnsafeStatementError{Reason: "unparseable character " + string(c)}
		}
	}
	if parens != 0 {
		return nil, &UnsafeStatementError{Reason: "unbalanced parentheses"}
	}
	return tokens, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
