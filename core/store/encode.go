package store

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/knakk/rdf"
	"github.com/siherrmann/arkg/vocabulary"
)

var localNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Encode writes quads in the given serialization.
// Formats without named graphs get the union of all graphs.
func Encode(w io.Writer, quads []Quad, serialization Serialization) error {
	if !serialization.NamedGraphs {
		quads = mergeGraphs(quads)
	}

	bw := bufio.NewWriter(w)
	var err error
	switch serialization.Name {
	case NTriples.Name:
		err = writeNTriples(bw, quads)
	case NQuads.Name:
		err = writeNQuads(bw, quads)
	case Turtle.Name:
		err = writeTurtle(bw, quads, turtleNamespaces(quads, vocabulary.Prefixes()))
	case TriG.Name:
		err = writeTriG(bw, quads)
	case RDFXML.Name:
		err = writeRDFXML(bw, quads, vocabulary.Prefixes())
	default:
		return fmt.Errorf("no encoder for serialization %q", serialization.Name)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func mergeGraphs(quads []Quad) []Quad {
	seen := make(map[Quad]struct{}, len(quads))
	merged := make([]Quad, 0, len(quads))
	for _, q := range quads {
		t := q.Triple()
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

func writeNTriples(w io.Writer, quads []Quad) error {
	triples, err := rdfTriples(quads)
	if err != nil {
		return err
	}

	encoder := rdf.NewTripleEncoder(w, rdf.NTriples)
	err = encoder.EncodeAll(triples)
	if err != nil {
		return err
	}
	return encoder.Close()
}

// writeNQuads writes the default graph as plain triples followed by the named graphs
func writeNQuads(w io.Writer, quads []Quad) error {
	var defaultGraph []Quad
	var named []rdf.Quad
	for _, q := range quads {
		if q.Graph.IsZero() {
			defaultGraph = append(defaultGraph, q)
			continue
		}

		triple, err := rdfTriple(q)
		if err != nil {
			return err
		}
		graph, err := rdfTerm(q.Graph)
		if err != nil {
			return err
		}
		ctx, ok := graph.(rdf.Context)
		if !ok {
			return fmt.Errorf("invalid graph name %s", q.Graph.String())
		}
		named = append(named, rdf.Quad{Triple: triple, Ctx: ctx})
	}

	err := writeNTriples(w, defaultGraph)
	if err != nil {
		return err
	}

	encoder := rdf.NewQuadEncoder(w, rdf.NQuads)
	err = encoder.EncodeAll(named)
	if err != nil {
		return err
	}
	return encoder.Close()
}

// writeTurtle groups the triples by subject and predicate.
// namespaces maps namespace IRIs to the prefix they are written with.
func writeTurtle(w io.Writer, quads []Quad, namespaces map[string]string) error {
	triples, err := rdfTriples(quads)
	if err != nil {
		return err
	}
	if len(triples) == 0 {
		return nil
	}

	encoder := rdf.NewTripleEncoder(w, rdf.Turtle)
	encoder.GenerateNamespaces = false
	for iri, prefix := range namespaces {
		encoder.Namespaces[iri] = prefix
	}

	err = encoder.EncodeAll(triples)
	if err != nil {
		return err
	}
	err = encoder.Close()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// turtleNamespaces returns the namespaces of prefixes every IRI of quads can be written
// with as prefixed name. The encoder splits IRIs after the last '/' or '#' and does not
// escape local names, namespaces with a local name that needs escaping are left out.
func turtleNamespaces(quads []Quad, prefixes map[string]string) map[string]string {
	namespaces := map[string]string{}
	for prefix, iri := range prefixes {
		namespaces[iri] = prefix
	}

	exclude := func(iri string) {
		namespace, local := splitNamespace(iri)
		if _, ok := namespaces[namespace]; ok && !localNamePattern.MatchString(local) {
			delete(namespaces, namespace)
		}
	}

	for _, q := range quads {
		for _, term := range []Term{q.Subject, q.Predicate, q.Object} {
			switch {
			case term.Kind == KindIRI:
				exclude(term.Value)
			case term.Kind == KindLiteral && term.Datatype != "":
				exclude(term.Datatype)
				// Prefixed datatypes are written without escaping the value
				if strings.ContainsAny(term.Value, "\"\\\n\r") {
					namespace, _ := splitNamespace(term.Datatype)
					delete(namespaces, namespace)
				}
			}
		}
	}

	return namespaces
}

func splitNamespace(iri string) (string, string) {
	i := strings.LastIndexAny(iri, "/#")
	return iri[:i+1], iri[i+1:]
}

// writeTriG writes one block per graph. Blocks use full IRIs, prefix directives
// are not allowed inside of them.
func writeTriG(w io.Writer, quads []Quad) error {
	var graphs []Term
	byGraph := map[Term][]Quad{}
	for _, q := range quads {
		if _, ok := byGraph[q.Graph]; !ok {
			graphs = append(graphs, q.Graph)
		}
		byGraph[q.Graph] = append(byGraph[q.Graph], q)
	}

	for _, graph := range graphs {
		label := "{\n"
		if !graph.IsZero() {
			label = graph.String() + " {\n"
		}
		if _, err := io.WriteString(w, label); err != nil {
			return err
		}

		err := writeTurtle(w, byGraph[graph], nil)
		if err != nil {
			return err
		}

		if _, err := io.WriteString(w, "}\n\n"); err != nil {
			return err
		}
	}

	return nil
}

func rdfTriples(quads []Quad) ([]rdf.Triple, error) {
	triples := make([]rdf.Triple, 0, len(quads))
	for _, q := range quads {
		triple, err := rdfTriple(q)
		if err != nil {
			return nil, err
		}
		triples = append(triples, triple)
	}
	return triples, nil
}

func rdfTriple(q Quad) (rdf.Triple, error) {
	subject, err := rdfTerm(q.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	predicate, err := rdfTerm(q.Predicate)
	if err != nil {
		return rdf.Triple{}, err
	}
	object, err := rdfTerm(q.Object)
	if err != nil {
		return rdf.Triple{}, err
	}

	s, ok := subject.(rdf.Subject)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("invalid subject %s", q.Subject.String())
	}
	p, ok := predicate.(rdf.Predicate)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("invalid predicate %s", q.Predicate.String())
	}
	o, ok := object.(rdf.Object)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("invalid object %s", q.Object.String())
	}
	return rdf.Triple{Subj: s, Pred: p, Obj: o}, nil
}

// rdfTerm converts a term for the encoders of knakk/rdf
func rdfTerm(term Term) (rdf.Term, error) {
	switch term.Kind {
	case KindIRI:
		return rdf.NewIRI(term.Value)
	case KindBlank:
		return rdf.NewBlank(term.Value)
	case KindLiteral:
		if term.Language != "" {
			return rdf.NewLangLiteral(term.Value, term.Language)
		}
		datatype := term.Datatype
		if datatype == "" {
			datatype = vocabulary.XSDString
		}
		iri, err := rdf.NewIRI(datatype)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(term.Value, iri), nil
	default:
		return nil, fmt.Errorf("unsupported term %s", term.Kind)
	}
}

// xmlWriter keeps the first error of a sequence of writes
type xmlWriter struct {
	w   io.Writer
	err error
}

func (x *xmlWriter) write(format string, args ...any) {
	if x.err != nil {
		return
	}
	_, x.err = fmt.Fprintf(x.w, format, args...)
}

func (x *xmlWriter) escape(s string) string {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil && x.err == nil {
		x.err = err
	}
	return sb.String()
}

func writeRDFXML(w io.Writer, quads []Quad, prefixes map[string]string) error {
	namespaces := map[string]string{}
	for prefix, iri := range prefixes {
		namespaces[iri] = prefix
	}
	namespaces[vocabulary.RDFNamespace] = "rdf"

	groups := groupBySubject(quads)

	// Predicates need a QName, declare a namespace for every one of them
	for _, group := range groups {
		for _, predicate := range group.predicates {
			namespace, _, ok := splitIRI(predicate.predicate.Value)
			if !ok {
				return fmt.Errorf("predicate %s can not be written as RDF/XML element", predicate.predicate.String())
			}
			if _, ok := namespaces[namespace]; !ok {
				namespaces[namespace] = fmt.Sprintf("ns%d", len(namespaces))
			}
		}
	}

	byPrefix := map[string]string{}
	for iri, prefix := range namespaces {
		byPrefix[prefix] = iri
	}

	x := &xmlWriter{w: w}
	x.write("%s<rdf:RDF", xml.Header)
	for _, prefix := range sortedPrefixes(byPrefix) {
		x.write("\n    xmlns:%s=\"%s\"", prefix, x.escape(byPrefix[prefix]))
	}
	x.write(">\n")

	for _, group := range groups {
		switch group.subject.Kind {
		case KindBlank:
			x.write("  <rdf:Description rdf:nodeID=\"%s\">\n", x.escape(group.subject.Value))
		default:
			x.write("  <rdf:Description rdf:about=\"%s\">\n", x.escape(group.subject.Value))
		}

		for _, predicate := range group.predicates {
			namespace, local, _ := splitIRI(predicate.predicate.Value)
			element := namespaces[namespace] + ":" + local
			for _, o := range predicate.objects {
				switch o.Kind {
				case KindIRI:
					x.write("    <%s rdf:resource=\"%s\"/>\n", element, x.escape(o.Value))
				case KindBlank:
					x.write("    <%s rdf:nodeID=\"%s\"/>\n", element, x.escape(o.Value))
				default:
					attributes := ""
					if o.Language != "" {
						attributes = fmt.Sprintf(" xml:lang=\"%s\"", x.escape(o.Language))
					} else if o.Datatype != "" {
						attributes = fmt.Sprintf(" rdf:datatype=\"%s\"", x.escape(o.Datatype))
					}
					x.write("    <%s%s>%s</%s>\n", element, attributes, x.escape(o.Value), element)
				}
			}
		}
		x.write("  </rdf:Description>\n")
	}
	x.write("</rdf:RDF>\n")

	return x.err
}

type predicateObjects struct {
	predicate Term
	objects   []Term
}

type subjectGroup struct {
	subject    Term
	predicates []*predicateObjects
}

// groupBySubject keeps the order of first appearance of subjects, predicates and objects
func groupBySubject(quads []Quad) []*subjectGroup {
	var groups []*subjectGroup
	bySubject := map[Term]*subjectGroup{}
	byPredicate := map[[2]Term]*predicateObjects{}

	for _, q := range quads {
		group, ok := bySubject[q.Subject]
		if !ok {
			group = &subjectGroup{subject: q.Subject}
			bySubject[q.Subject] = group
			groups = append(groups, group)
		}

		key := [2]Term{q.Subject, q.Predicate}
		predicate, ok := byPredicate[key]
		if !ok {
			predicate = &predicateObjects{predicate: q.Predicate}
			byPredicate[key] = predicate
			group.predicates = append(group.predicates, predicate)
		}
		predicate.objects = append(predicate.objects, q.Object)
	}

	return groups
}

// splitIRI splits an IRI into namespace and an XML local name
func splitIRI(iri string) (string, string, bool) {
	i := strings.LastIndexAny(iri, "#/")
	if i < 0 || i == len(iri)-1 {
		return "", "", false
	}
	local := iri[i+1:]
	if !localNamePattern.MatchString(local) {
		return "", "", false
	}
	return iri[:i+1], local, true
}

func sortedPrefixes(prefixes map[string]string) []string {
	keys := make([]string, 0, len(prefixes))
	for k := range prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
