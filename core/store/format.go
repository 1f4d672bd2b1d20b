package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/siherrmann/arkg/helper"
)

// Serialization describes a supported RDF file format
type Serialization struct {
	// Name is the format identifier
	Name string
	// ContentType is the MIME type
	ContentType string
	// Extension is the file extension with dot
	Extension string
	// NamedGraphs is true if the format keeps graph names
	NamedGraphs bool
}

// Supported serializations
var (
	NTriples = Serialization{Name: "n_triples", ContentType: "application/n-triples", Extension: ".nt"}
	NQuads   = Serialization{Name: "n_quads", ContentType: "application/n-quads", Extension: ".nq", NamedGraphs: true}
	Turtle   = Serialization{Name: "turtle", ContentType: "text/turtle", Extension: ".ttl"}
	TriG     = Serialization{Name: "trig", ContentType: "application/trig", Extension: ".trig", NamedGraphs: true}
	RDFXML   = Serialization{Name: "rdf_xml", ContentType: "application/rdf+xml", Extension: ".rdf"}
)

// Serializations is the closed set of formats a store can be dumped to and loaded from
var Serializations = []Serialization{NTriples, NQuads, Turtle, TriG, RDFXML}

var contentTypeAliases = map[string]Serialization{
	"application/turtle":   Turtle,
	"application/x-turtle": Turtle,
	"application/xml":      RDFXML,
	"text/plain":           NTriples,
}

// SerializationByContentType returns the serialization of a MIME type.
// Parameters like charset are ignored.
func SerializationByContentType(contentType string) (Serialization, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, s := range Serializations {
		if s.ContentType == mediaType {
			return s, nil
		}
	}
	if s, ok := contentTypeAliases[mediaType]; ok {
		return s, nil
	}
	return Serialization{}, helper.NewSerializationError("lookup serialization", fmt.Errorf("unsupported content type %q", contentType))
}

// SerializationByName returns the serialization with the given name
func SerializationByName(name string) (Serialization, error) {
	for _, s := range Serializations {
		if s.Name == strings.ToLower(strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return Serialization{}, helper.NewSerializationError("lookup serialization", fmt.Errorf("unsupported serialization %q", name))
}

// SerializationByExtension returns the serialization of a file extension or path
func SerializationByExtension(path string) (Serialization, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = "." + strings.TrimPrefix(strings.ToLower(path), ".")
	}
	for _, s := range Serializations {
		if s.Extension == ext {
			return s, nil
		}
	}
	return Serialization{}, helper.NewSerializationError("lookup serialization", fmt.Errorf("unsupported file extension %q", ext))
}

// LookupSerialization accepts a name, a content type or an extension
func LookupSerialization(s string) (Serialization, error) {
	if strings.Contains(s, "/") {
		return SerializationByContentType(s)
	}
	if strings.HasPrefix(s, ".") {
		return SerializationByExtension(s)
	}
	if serialization, err := SerializationByName(s); err == nil {
		return serialization, nil
	}
	return SerializationByExtension(s)
}

// FileName returns base with the extension of the serialization
func (s Serialization) FileName(base string) string {
	return strings.TrimSuffix(base, filepath.Ext(base)) + s.Extension
}
