package store

import (
	"fmt"
	"strings"

	"github.com/siherrmann/arkg/vocabulary"
)

// TermKind is the kind of an RDF term
type TermKind int

const (
	// KindNone is the zero term, used as wildcard and as the default graph
	KindNone TermKind = iota
	KindIRI
	KindBlank
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "none"
	}
}

// Term is an RDF term. It is comparable, two equal terms are the same node.
// Language and Datatype are only set on literals, plain strings carry neither.
type Term struct {
	Kind     TermKind
	Value    string
	Language string
	Datatype string
}

// NewIRI returns a named node
func NewIRI(iri string) Term {
	return Term{Kind: KindIRI, Value: iri}
}

// NewBlank returns a blank node with the given label
func NewBlank(label string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(label, "_:")}
}

// NewLiteral returns a plain string literal
func NewLiteral(value string) Term {
	return Term{Kind: KindLiteral, Value: value}
}

// NewLangLiteral returns a language tagged literal
func NewLangLiteral(value string, language string) Term {
	return Term{Kind: KindLiteral, Value: value, Language: strings.ToLower(language)}
}

// NewTypedLiteral returns a literal with a datatype.
// xsd:string and rdf:langString are dropped, they are implied.
func NewTypedLiteral(value string, datatype string) Term {
	if datatype == vocabulary.XSDString || datatype == vocabulary.RDFLangString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: value, Datatype: datatype}
}

// IsZero reports whether the term is unset
func (t Term) IsZero() bool {
	return t.Kind == KindNone
}

// IsIRI reports whether the term is a named node
func (t Term) IsIRI() bool {
	return t.Kind == KindIRI
}

// String returns the N-Triples form of the term
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + escapeIRI(t.Value) + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Language != "" {
			return s + "@" + t.Language
		}
		if t.Datatype != "" {
			return s + "^^<" + escapeIRI(t.Datatype) + ">"
		}
		return s
	default:
		return ""
	}
}

// Quad is a triple in a graph. A zero Graph is the default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// NewQuad returns a quad in the named graph
func NewQuad(subject, predicate, object, graph Term) Quad {
	return Quad{Subject: subject, Predicate: predicate, Object: object, Graph: graph}
}

// NewTriple returns a quad in the default graph
func NewTriple(subject, predicate, object Term) Quad {
	return Quad{Subject: subject, Predicate: predicate, Object: object}
}

// Triple returns the quad moved to the default graph
func (q Quad) Triple() Quad {
	q.Graph = Term{}
	return q
}

// Validate checks the positions of the terms
func (q Quad) Validate() error {
	if q.Subject.Kind != KindIRI && q.Subject.Kind != KindBlank {
		return fmt.Errorf("subject must be an IRI or a blank node, got %s", q.Subject.Kind)
	}
	if q.Predicate.Kind != KindIRI {
		return fmt.Errorf("predicate must be an IRI, got %s", q.Predicate.Kind)
	}
	if q.Object.IsZero() {
		return fmt.Errorf("object must be set")
	}
	if q.Graph.Kind == KindLiteral {
		return fmt.Errorf("graph name must be an IRI or a blank node")
	}
	return nil
}

func (q Quad) String() string {
	s := q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String()
	if !q.Graph.IsZero() {
		s += " " + q.Graph.String()
	}
	return s + " ."
}

func escapeLiteral(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// escapeIRI writes characters that are not allowed in an IRI reference as \u escapes
func escapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ ") && !containsControl(s) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			sb.WriteString(fmt.Sprintf(`\u%04X`, r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func containsControl(s string) bool {
	for _, r := range s {
		if r <= 0x20 {
			return true
		}
	}
	return false
}
