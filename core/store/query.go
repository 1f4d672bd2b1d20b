package store

import (
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/vocabulary"
)

const (
	xsdInteger = vocabulary.XSDNamespace + "integer"
	xsdDecimal = vocabulary.XSDNamespace + "decimal"
	xsdBoolean = vocabulary.XSDNamespace + "boolean"
)

// QueryForm is the kind of a query
type QueryForm int

const (
	QueryFormSelect QueryForm = iota
	QueryFormAsk
)

// Binding maps variable names without '?' to terms
type Binding map[string]Term

// QueryResult yields the solutions of a query lazily.
// It can not be rewound, run the query again to start over.
type QueryResult struct {
	Form      QueryForm
	Variables []string

	boolean bool
	next    func() (Binding, bool)
	stop    func()
	current Binding
}

// Boolean is the answer of an ASK query
func (r *QueryResult) Boolean() bool {
	return r.boolean
}

// Next advances to the next solution
func (r *QueryResult) Next() bool {
	if r.next == nil {
		return false
	}
	binding, ok := r.next()
	if !ok {
		r.Close()
		return false
	}
	r.current = binding
	return true
}

// Binding returns the current solution
func (r *QueryResult) Binding() Binding {
	return r.current
}

// Close releases the result, Next returns false afterwards
func (r *QueryResult) Close() {
	if r.stop != nil {
		r.stop()
	}
	r.next = nil
	r.stop = nil
}

// Bindings drains the remaining solutions
func (r *QueryResult) Bindings() []Binding {
	var bindings []Binding
	for r.Next() {
		bindings = append(bindings, r.Binding())
	}
	return bindings
}

// Query runs a read-only SPARQL query against the store.
// Supported are PREFIX and BASE, SELECT [DISTINCT] with variables or *,
// ASK, basic graph patterns with ';' ',' and 'a', GRAPH blocks, LIMIT and OFFSET.
// Patterns outside of GRAPH match the union of all graphs.
// SELECT solutions are produced lazily, callers must Close a result they do not drain.
func Query(s *GraphStore, text string) (*QueryResult, error) {
	q, err := parseQuery(text)
	if err != nil {
		return nil, helper.NewSerializationError("parse query", err)
	}

	solutions := q.solutions(s)

	if q.form == QueryFormAsk {
		next, stop := iter.Pull(solutions)
		_, ok := next()
		stop()
		return &QueryResult{Form: QueryFormAsk, boolean: ok}, nil
	}

	next, stop := iter.Pull(solutions)
	return &QueryResult{
		Form:      QueryFormSelect,
		Variables: q.projection(),
		next:      next,
		stop:      stop,
	}, nil
}

// node is a term or a variable in a pattern
type node struct {
	variable string
	term     Term
}

func (n node) isVariable() bool {
	return n.variable != ""
}

type pattern struct {
	subject, predicate, object, graph node
}

type parsedQuery struct {
	form      QueryForm
	distinct  bool
	variables []string
	patterns  []pattern
	limit     int
	offset    int
	seen      []string
}

func (q *parsedQuery) projection() []string {
	if q.variables != nil {
		return q.variables
	}
	var visible []string
	for _, v := range q.seen {
		if !strings.HasPrefix(v, "_:") {
			visible = append(visible, v)
		}
	}
	return visible
}

func (q *parsedQuery) solutions(s *GraphStore) iter.Seq[Binding] {
	variables := q.projection()

	return func(yield func(Binding) bool) {
		seen := map[string]bool{}
		skipped := 0
		emitted := 0

		q.match(s, 0, Binding{}, func(b Binding) bool {
			projected := make(Binding, len(variables))
			for _, v := range variables {
				if t, ok := b[v]; ok {
					projected[v] = t
				}
			}

			if q.distinct {
				key := bindingKey(projected, variables)
				if seen[key] {
					return true
				}
				seen[key] = true
			}
			if skipped < q.offset {
				skipped++
				return true
			}
			if q.limit >= 0 && emitted >= q.limit {
				return false
			}

			emitted++
			if !yield(projected) {
				return false
			}
			return q.limit < 0 || emitted < q.limit
		})
	}
}

// match joins the patterns from index i on with nested loops
func (q *parsedQuery) match(s *GraphStore, i int, binding Binding, yield func(Binding) bool) bool {
	if i == len(q.patterns) {
		return yield(binding)
	}

	p := q.patterns[i]
	candidates := s.Match(resolve(p.subject, binding), resolve(p.predicate, binding), resolve(p.object, binding), resolve(p.graph, binding))
	for _, quad := range candidates {
		if p.graph.isVariable() && quad.Graph.IsZero() {
			continue
		}

		next, ok := extend(binding, p, quad)
		if !ok {
			continue
		}
		if !q.match(s, i+1, next, yield) {
			return false
		}
	}
	return true
}

func resolve(n node, binding Binding) Term {
	if n.isVariable() {
		return binding[n.variable]
	}
	return n.term
}

func extend(binding Binding, p pattern, quad Quad) (Binding, bool) {
	next := make(Binding, len(binding)+4)
	for k, v := range binding {
		next[k] = v
	}

	pairs := []struct {
		n node
		t Term
	}{
		{p.subject, quad.Subject},
		{p.predicate, quad.Predicate},
		{p.object, quad.Object},
		{p.graph, quad.Graph},
	}
	for _, pair := range pairs {
		if !pair.n.isVariable() {
			continue
		}
		if bound, ok := next[pair.n.variable]; ok && bound != pair.t {
			return nil, false
		}
		next[pair.n.variable] = pair.t
	}
	return next, true
}

func bindingKey(b Binding, variables []string) string {
	var sb strings.Builder
	for _, v := range variables {
		sb.WriteString(b[v].String())
		sb.WriteByte(0)
	}
	return sb.String()
}

// Lexer

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIRI
	tokenPrefixedName
	tokenVariable
	tokenBlank
	tokenLiteral
	tokenPunct
	tokenWord
)

type token struct {
	kind     tokenKind
	text     string
	language string
	datatype string
	offset   int
}

func tokenize(text string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		start := i

		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '#':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				i = len(text)
			} else {
				i += end
			}
		case r == '<':
			end := strings.IndexByte(text[i:], '>')
			if end < 0 {
				return nil, fmt.Errorf("unterminated IRI at offset %d", i)
			}
			tokens = append(tokens, token{kind: tokenIRI, text: unescapeIRI(text[i+1 : i+end]), offset: start})
			i += end + 1
		case r == '?' || r == '$':
			j := i + 1
			for j < len(text) && isNameByte(text[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("empty variable name at offset %d", i)
			}
			tokens = append(tokens, token{kind: tokenVariable, text: text[i+1 : j], offset: start})
			i = j
		case r == '"' || r == '\'':
			end, err := stringEnd(text, i)
			if err != nil {
				return nil, err
			}
			quoteLen := 1
			if end-i >= 6 && text[i+1] == text[i] && text[i+2] == text[i] {
				quoteLen = 3
			}
			value, err := unescapeString(text[i+quoteLen : end-quoteLen])
			if err != nil {
				return nil, err
			}
			tok := token{kind: tokenLiteral, text: value, offset: start}
			i = end
			if i < len(text) && text[i] == '@' {
				j := i + 1
				for j < len(text) && (isNameByte(text[j]) || text[j] == '-') {
					j++
				}
				tok.language = text[i+1 : j]
				i = j
			} else if strings.HasPrefix(text[i:], "^^") {
				i += 2
				if i < len(text) && text[i] == '<' {
					end := strings.IndexByte(text[i:], '>')
					if end < 0 {
						return nil, fmt.Errorf("unterminated datatype IRI at offset %d", i)
					}
					tok.datatype = "<" + text[i+1:i+end]
					i += end + 1
				} else {
					j := i
					for j < len(text) && isPrefixedNameByte(text[j]) {
						j++
					}
					tok.datatype = strings.TrimRight(text[i:j], ".")
					i += len(tok.datatype)
				}
			}
			tokens = append(tokens, tok)
		case strings.ContainsRune("{}.;,()*", r):
			tokens = append(tokens, token{kind: tokenPunct, text: string(r), offset: start})
			i += size
		case unicode.IsDigit(r) || ((r == '-' || r == '+') && i+1 < len(text) && text[i+1] >= '0' && text[i+1] <= '9'):
			j := i + 1
			for j < len(text) && (text[j] >= '0' && text[j] <= '9' || text[j] == '.' && j+1 < len(text) && text[j+1] >= '0' && text[j+1] <= '9') {
				j++
			}
			number := text[i:j]
			datatype := "<" + xsdInteger
			if strings.Contains(number, ".") {
				datatype = "<" + xsdDecimal
			}
			tokens = append(tokens, token{kind: tokenLiteral, text: number, datatype: datatype, offset: start})
			i = j
		case r == '_' && strings.HasPrefix(text[i:], "_:"):
			j := i + 2
			for j < len(text) && isNameByte(text[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokenBlank, text: text[i:j], offset: start})
			i = j
		default:
			j := i
			for j < len(text) {
				r, size := utf8.DecodeRuneInString(text[j:])
				if !(r == ':' || r == '-' || r == '.' || r == '%' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
					break
				}
				j += size
			}
			if j == i {
				return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
			}
			word := strings.TrimRight(text[i:j], ".")
			kind := tokenWord
			if strings.Contains(word, ":") {
				kind = tokenPrefixedName
			}
			tokens = append(tokens, token{kind: kind, text: word, offset: start})
			i += len(word)
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, offset: len(text)})
	return tokens, nil
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isPrefixedNameByte(c byte) bool {
	return isNameByte(c) || c == ':' || c == '-' || c == '.'
}

func unescapeString(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '"', '\'', '\\':
			sb.WriteByte(s[i])
		case 'u', 'U':
			n := 4
			if s[i] == 'U' {
				n = 8
			}
			if i+n >= len(s) {
				return "", fmt.Errorf("invalid unicode escape in %q", s)
			}
			code, err := strconv.ParseUint(s[i+1:i+1+n], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid unicode escape in %q: %w", s, err)
			}
			sb.WriteRune(rune(code))
			i += n
		default:
			return "", fmt.Errorf("invalid escape \\%c", s[i])
		}
	}
	return sb.String(), nil
}

// Parser

type parser struct {
	tokens   []token
	pos      int
	prefixes map[string]string
	base     *url.URL
	query    *parsedQuery
	blanks   int
}

func parseQuery(text string) (*parsedQuery, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	p := &parser{
		tokens:   tokens,
		prefixes: map[string]string{},
		query:    &parsedQuery{limit: -1},
	}

	if err := p.prologue(); err != nil {
		return nil, err
	}

	switch {
	case p.acceptWord("SELECT"):
		err = p.selectClause()
	case p.acceptWord("ASK"):
		p.query.form = QueryFormAsk
	default:
		return nil, p.errorf("expected SELECT or ASK")
	}
	if err != nil {
		return nil, err
	}

	p.acceptWord("WHERE")
	if err := p.groupGraphPattern(node{}); err != nil {
		return nil, err
	}
	if err := p.solutionModifiers(); err != nil {
		return nil, err
	}
	if p.peek().kind != tokenEOF {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}

	for _, v := range p.query.variables {
		if !contains(p.query.seen, v) {
			return nil, fmt.Errorf("projected variable ?%s is not used in the pattern", v)
		}
	}

	return p.query, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%s at offset %d", fmt.Sprintf(format, args...), p.peek().offset)
}

func (p *parser) acceptWord(word string) bool {
	t := p.peek()
	if t.kind == tokenWord && strings.EqualFold(t.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptPunct(punct string) bool {
	t := p.peek()
	if t.kind == tokenPunct && t.text == punct {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectPunct(punct string) error {
	if !p.acceptPunct(punct) {
		return p.errorf("expected %q", punct)
	}
	return nil
}

func (p *parser) prologue() error {
	for {
		switch {
		case p.acceptWord("PREFIX"):
			name := p.advance()
			if name.kind != tokenPrefixedName || !strings.HasSuffix(name.text, ":") {
				return p.errorf("expected prefix name")
			}
			iri := p.advance()
			if iri.kind != tokenIRI {
				return p.errorf("expected IRI for prefix %s", name.text)
			}
			p.prefixes[strings.TrimSuffix(name.text, ":")] = p.resolveIRI(iri.text)
		case p.acceptWord("BASE"):
			iri := p.advance()
			if iri.kind != tokenIRI {
				return p.errorf("expected base IRI")
			}
			base, err := url.Parse(iri.text)
			if err != nil {
				return fmt.Errorf("invalid base IRI: %w", err)
			}
			p.base = base
		default:
			return nil
		}
	}
}

func (p *parser) selectClause() error {
	p.query.form = QueryFormSelect
	p.query.distinct = p.acceptWord("DISTINCT") || p.acceptWord("REDUCED")

	if p.acceptPunct("*") {
		return nil
	}

	variables := []string{}
	for p.peek().kind == tokenVariable {
		variables = append(variables, p.advance().text)
	}
	if len(variables) == 0 {
		return p.errorf("expected variables or '*'")
	}
	p.query.variables = variables
	return nil
}

func (p *parser) groupGraphPattern(graph node) error {
	if err := p.expectPunct("{"); err != nil {
		return err
	}

	for !p.acceptPunct("}") {
		switch {
		case p.peek().kind == tokenEOF:
			return p.errorf("unterminated group pattern")
		case p.acceptPunct("."):
		case p.acceptWord("GRAPH"):
			name, err := p.varOrTerm()
			if err != nil {
				return err
			}
			if !name.isVariable() && name.term.Kind != KindIRI {
				return p.errorf("graph name must be a variable or an IRI")
			}
			if err := p.groupGraphPattern(name); err != nil {
				return err
			}
		case p.peek().kind == tokenWord && !strings.EqualFold(p.peek().text, "a") && !isBooleanWord(p.peek().text):
			return p.errorf("unsupported keyword %q", p.peek().text)
		default:
			if err := p.triples(graph); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) triples(graph node) error {
	subject, err := p.varOrTerm()
	if err != nil {
		return err
	}
	if subject.term.Kind == KindLiteral {
		return p.errorf("subject can not be a literal")
	}

	for {
		predicate, err := p.verb()
		if err != nil {
			return err
		}

		for {
			object, err := p.varOrTerm()
			if err != nil {
				return err
			}
			p.query.patterns = append(p.query.patterns, pattern{subject: subject, predicate: predicate, object: object, graph: graph})

			if !p.acceptPunct(",") {
				break
			}
		}

		if !p.acceptPunct(";") {
			return nil
		}
		for p.acceptPunct(";") {
		}
		if t := p.peek(); t.kind == tokenPunct && (t.text == "." || t.text == "}") {
			return nil
		}
	}
}

func (p *parser) verb() (node, error) {
	if p.acceptWord("a") {
		return node{term: NewIRI(vocabulary.RDFType)}, nil
	}
	predicate, err := p.varOrTerm()
	if err != nil {
		return node{}, err
	}
	if !predicate.isVariable() && predicate.term.Kind != KindIRI {
		return node{}, p.errorf("predicate must be a variable or an IRI")
	}
	return predicate, nil
}

func (p *parser) varOrTerm() (node, error) {
	t := p.advance()
	switch t.kind {
	case tokenVariable:
		p.see(t.text)
		return node{variable: t.text}, nil
	case tokenBlank:
		// blank nodes in patterns behave like variables that are never projected
		p.see(t.text)
		return node{variable: t.text}, nil
	case tokenIRI:
		return node{term: NewIRI(p.resolveIRI(t.text))}, nil
	case tokenPrefixedName:
		iri, err := p.expand(t.text)
		if err != nil {
			return node{}, err
		}
		return node{term: NewIRI(iri)}, nil
	case tokenLiteral:
		if t.language != "" {
			return node{term: NewLangLiteral(t.text, t.language)}, nil
		}
		if t.datatype != "" {
			datatype := strings.TrimPrefix(t.datatype, "<")
			if !strings.HasPrefix(t.datatype, "<") {
				expanded, err := p.expand(t.datatype)
				if err != nil {
					return node{}, err
				}
				datatype = expanded
			} else {
				datatype = p.resolveIRI(datatype)
			}
			return node{term: NewTypedLiteral(t.text, datatype)}, nil
		}
		return node{term: NewLiteral(t.text)}, nil
	case tokenWord:
		if isBooleanWord(t.text) {
			return node{term: NewTypedLiteral(strings.ToLower(t.text), xsdBoolean)}, nil
		}
	}
	p.pos--
	return node{}, p.errorf("expected a variable or a term")
}

func (p *parser) see(variable string) {
	if !contains(p.query.seen, variable) {
		p.query.seen = append(p.query.seen, variable)
	}
}

func (p *parser) expand(name string) (string, error) {
	prefix, local, _ := strings.Cut(name, ":")
	namespace, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix %q", prefix)
	}
	return namespace + local, nil
}

func (p *parser) resolveIRI(iri string) string {
	if p.base == nil {
		return iri
	}
	ref, err := url.Parse(iri)
	if err != nil || ref.IsAbs() {
		return iri
	}
	return p.base.ResolveReference(ref).String()
}

func (p *parser) solutionModifiers() error {
	for {
		switch {
		case p.acceptWord("LIMIT"):
			n, err := p.integer()
			if err != nil {
				return err
			}
			p.query.limit = n
		case p.acceptWord("OFFSET"):
			n, err := p.integer()
			if err != nil {
				return err
			}
			p.query.offset = n
		default:
			return nil
		}
	}
}

func (p *parser) integer() (int, error) {
	t := p.advance()
	if t.kind != tokenLiteral || t.datatype != "<"+xsdInteger {
		p.pos--
		return 0, p.errorf("expected an integer")
	}
	n, err := strconv.Atoi(t.text)
	if err != nil || n < 0 {
		return 0, p.errorf("expected a non-negative integer")
	}
	return n, nil
}

func isBooleanWord(word string) bool {
	return strings.EqualFold(word, "true") || strings.EqualFold(word, "false")
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
