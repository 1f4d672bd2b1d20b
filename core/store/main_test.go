package store

import (
	"testing"

	"github.com/siherrmann/arkg/vocabulary"
	"github.com/stretchr/testify/require"
)

const (
	mouseionIRI = vocabulary.WikipediaBaseURL + "Mouseion"
	sankoreIRI  = vocabulary.WikipediaBaseURL + "Sankoré_Madrasah"
	mouseionKB  = vocabulary.WikidataEntityNamespace + "Q684645"
	linkIRI     = vocabulary.ARKGNamespace + ":uuid:4f0c1b5e-3c3a-4d7e-9a43-0b7f3d1f2a10"
	namedGraph  = "http://example.org/graphs/arkg"
)

// testQuads is a small anti-recommendation graph with every kind of literal
func testQuads() []Quad {
	return []Quad{
		NewTriple(NewIRI(mouseionIRI), NewIRI(vocabulary.RDFType), NewIRI(vocabulary.SchemaArticle)),
		NewTriple(NewIRI(mouseionIRI), NewIRI(vocabulary.RDFType), NewIRI(vocabulary.SchemaWebPage)),
		NewTriple(NewIRI(mouseionIRI), NewIRI(vocabulary.SchemaTitle), NewLiteral("Mouseion")),
		NewTriple(NewIRI(mouseionIRI), NewIRI(vocabulary.SchemaURL), NewLiteral(mouseionIRI)),
		NewTriple(NewIRI(mouseionIRI), NewIRI(vocabulary.SchemaInLanguage), NewLiteral("en")),
		NewTriple(NewIRI(mouseionIRI), NewIRI(vocabulary.SchemaAbout), NewIRI(mouseionKB)),
		NewTriple(NewIRI(mouseionKB), NewIRI(vocabulary.RDFType), NewIRI(vocabulary.WikibaseItem)),
		NewTriple(NewIRI(linkIRI), NewIRI(vocabulary.RDFType), NewIRI(vocabulary.SchemaRecommendation)),
		NewTriple(NewIRI(linkIRI), NewIRI(vocabulary.SchemaItemReviewed), NewIRI(mouseionKB)),
		NewTriple(NewIRI(linkIRI), NewIRI(vocabulary.SchemaAbout), NewIRI(sankoreIRI)),
		NewTriple(NewIRI(sankoreIRI), NewIRI(vocabulary.RDFType), NewIRI(vocabulary.SchemaWebPage)),
		NewTriple(NewIRI(sankoreIRI), NewIRI(vocabulary.SchemaTitle), NewLiteral("Sankoré Madrasah")),
		NewTriple(NewIRI(sankoreIRI), NewIRI(vocabulary.SchemaName), NewLangLiteral("Sankoré \"Madrasah\"\nTimbuktu", "fr")),
		NewTriple(NewIRI(sankoreIRI), NewIRI(vocabulary.SchemaNamespace+"foundingDate"), NewTypedLiteral("1581", vocabulary.XSDNamespace+"integer")),
	}
}

func testStore(t *testing.T) *GraphStore {
	s := NewGraphStore()
	added, err := s.Add(testQuads()...)
	require.NoError(t, err)
	require.Equal(t, len(testQuads()), added)
	return s
}
