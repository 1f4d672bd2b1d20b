package store

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/knakk/rdf"
)

var directivePattern = regexp.MustCompile(`(?im)^\s*(@prefix|@base|prefix|base)\s[^\n]*$`)

// Decode reads quads in the given serialization
func Decode(r io.Reader, serialization Serialization) ([]Quad, error) {
	switch serialization.Name {
	case NTriples.Name:
		return decodeTriples(r, rdf.NTriples, Term{})
	case Turtle.Name:
		return decodeTriples(r, rdf.Turtle, Term{})
	case RDFXML.Name:
		return decodeTriples(r, rdf.RDFXML, Term{})
	case NQuads.Name:
		return decodeQuads(r)
	case TriG.Name:
		return decodeTriG(r)
	default:
		return nil, fmt.Errorf("no decoder for serialization %q", serialization.Name)
	}
}

func decodeTriples(r io.Reader, format rdf.Format, graph Term) ([]Quad, error) {
	decoder := rdf.NewTripleDecoder(r, format)

	var quads []Quad
	for {
		triple, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		q, err := quadFromTriple(triple, graph)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

func decodeQuads(r io.Reader) ([]Quad, error) {
	decoder := rdf.NewQuadDecoder(r, rdf.NQuads)

	var quads []Quad
	for {
		quad, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		// The decoder marks the default graph with a blank node of its own
		var graph Term
		if quad.Ctx != nil && !rdf.TermsEqual(quad.Ctx, decoder.DefaultGraph) {
			graph, err = termFromRDF(quad.Ctx)
			if err != nil {
				return nil, err
			}
		}

		q, err := quadFromTriple(quad.Triple, graph)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

func quadFromTriple(triple rdf.Triple, graph Term) (Quad, error) {
	subject, err := termFromRDF(triple.Subj)
	if err != nil {
		return Quad{}, err
	}
	predicate, err := termFromRDF(triple.Pred)
	if err != nil {
		return Quad{}, err
	}
	object, err := termFromRDF(triple.Obj)
	if err != nil {
		return Quad{}, err
	}

	q := NewQuad(subject, predicate, object, graph)
	return q, q.Validate()
}

func termFromRDF(term rdf.Term) (Term, error) {
	switch t := term.(type) {
	case rdf.IRI:
		return NewIRI(t.String()), nil
	case rdf.Blank:
		return NewBlank(t.String()), nil
	case rdf.Literal:
		if lang := t.Lang(); lang != "" {
			return NewLangLiteral(t.String(), lang), nil
		}
		return NewTypedLiteral(t.String(), t.DataType.String()), nil
	default:
		return Term{}, fmt.Errorf("unsupported term %v", term)
	}
}

// trigBlock is a graph block of a TriG document
type trigBlock struct {
	label string
	body  string
}

// decodeTriG decodes every graph block as Turtle. Directives apply to all blocks.
func decodeTriG(r io.Reader) ([]Quad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	topLevel, blocks, err := splitTriG(string(data))
	if err != nil {
		return nil, err
	}

	directives := strings.Join(directivePattern.FindAllString(topLevel, -1), "\n") + "\n"
	prefixes := parsePrefixes(directives)

	quads, err := decodeTriples(strings.NewReader(topLevel), rdf.Turtle, Term{})
	if err != nil {
		return nil, err
	}

	for _, block := range blocks {
		graph, err := graphLabel(block.label, prefixes)
		if err != nil {
			return nil, err
		}

		blockQuads, err := decodeTriples(strings.NewReader(directives+block.body), rdf.Turtle, graph)
		if err != nil {
			return nil, fmt.Errorf("graph %s: %w", block.label, err)
		}
		quads = append(quads, blockQuads...)
	}

	return quads, nil
}

// splitTriG separates the top level statements from the graph blocks.
// IRIs, strings and comments are skipped so braces inside them do not count.
func splitTriG(doc string) (string, []trigBlock, error) {
	var topLevel bytes.Buffer
	var blocks []trigBlock

	segment := bytes.Buffer{}
	body := bytes.Buffer{}
	depth := 0
	label := ""

	out := func() *bytes.Buffer {
		if depth > 0 {
			return &body
		}
		return &segment
	}

	for i := 0; i < len(doc); i++ {
		c := doc[i]
		switch {
		case c == '<':
			end := strings.IndexByte(doc[i:], '>')
			if end < 0 {
				return "", nil, fmt.Errorf("unterminated IRI at offset %d", i)
			}
			out().WriteString(doc[i : i+end+1])
			i += end
		case c == '"' || c == '\'':
			end, err := stringEnd(doc, i)
			if err != nil {
				return "", nil, err
			}
			out().WriteString(doc[i:end])
			i = end - 1
		case c == '#':
			end := strings.IndexByte(doc[i:], '\n')
			if end < 0 {
				i = len(doc)
			} else {
				i += end - 1
			}
		case c == '{':
			if depth == 0 {
				rest, l := splitLabel(segment.String())
				topLevel.WriteString(rest)
				segment.Reset()
				label = l
			} else {
				body.WriteByte(c)
			}
			depth++
		case c == '}':
			depth--
			if depth < 0 {
				return "", nil, fmt.Errorf("unbalanced '}' at offset %d", i)
			}
			if depth == 0 {
				blocks = append(blocks, trigBlock{label: label, body: body.String()})
				body.Reset()
			} else {
				body.WriteByte(c)
			}
		default:
			out().WriteByte(c)
		}
	}
	if depth != 0 {
		return "", nil, fmt.Errorf("unterminated graph block")
	}
	topLevel.WriteString(segment.String())

	return topLevel.String(), blocks, nil
}

// stringEnd returns the offset after the string literal starting at start
func stringEnd(doc string, start int) (int, error) {
	quote := doc[start : start+1]
	if strings.HasPrefix(doc[start:], strings.Repeat(quote, 3)) {
		quote = strings.Repeat(quote, 3)
	}
	for i := start + len(quote); i < len(doc); i++ {
		if doc[i] == '\\' {
			i++
			continue
		}
		if strings.HasPrefix(doc[i:], quote) {
			return i + len(quote), nil
		}
	}
	return 0, fmt.Errorf("unterminated string at offset %d", start)
}

// splitLabel removes the graph name in front of a block from a top level segment
func splitLabel(segment string) (string, string) {
	trimmed := strings.TrimRight(segment, " \t\r\n")
	if trimmed == "" || strings.HasSuffix(trimmed, ".") {
		return segment, ""
	}

	var start int
	if strings.HasSuffix(trimmed, ">") {
		start = strings.LastIndexByte(trimmed, '<')
	} else {
		start = strings.LastIndexAny(trimmed, " \t\r\n") + 1
	}
	label := trimmed[start:]
	rest := trimmed[:start]

	restTrimmed := strings.TrimRight(rest, " \t\r\n")
	if len(restTrimmed) >= 5 && strings.EqualFold(restTrimmed[len(restTrimmed)-5:], "GRAPH") {
		rest = restTrimmed[:len(restTrimmed)-5]
	}

	return rest, label
}

func parsePrefixes(directives string) map[string]string {
	prefixes := map[string]string{}
	for _, line := range strings.Split(directives, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || !strings.EqualFold(strings.TrimPrefix(fields[0], "@"), "prefix") {
			continue
		}
		prefixes[strings.TrimSuffix(fields[1], ":")] = strings.Trim(fields[2], "<>")
	}
	return prefixes
}

func graphLabel(label string, prefixes map[string]string) (Term, error) {
	switch {
	case label == "":
		return Term{}, nil
	case strings.HasPrefix(label, "<"):
		return NewIRI(unescapeIRI(strings.Trim(label, "<>"))), nil
	case strings.HasPrefix(label, "_:"):
		return NewBlank(label), nil
	}

	prefix, local, ok := strings.Cut(label, ":")
	if !ok {
		return Term{}, fmt.Errorf("invalid graph name %q", label)
	}
	namespace, ok := prefixes[prefix]
	if !ok {
		return Term{}, fmt.Errorf("undefined prefix %q in graph name", prefix)
	}
	return NewIRI(namespace + local), nil
}

func unescapeIRI(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if strings.HasPrefix(s[i:], `\u`) && i+6 <= len(s) {
			var r rune
			if _, err := fmt.Sscanf(s[i+2:i+6], "%04X", &r); err == nil {
				sb.WriteRune(r)
				i += 5
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
