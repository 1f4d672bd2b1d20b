// Package vocabulary holds the IRIs used by the anti-recommendation knowledge graph.
package vocabulary

// RDF namespace.
const (
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	RDFType       = RDFNamespace + "type"
	RDFLangString = RDFNamespace + "langString"
)

// XSD namespace.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	XSDString = XSDNamespace + "string"
)

// Schema.org namespace.
const (
	SchemaNamespace = "http://schema.org/"

	SchemaAbout          = SchemaNamespace + "about"
	SchemaArticle        = SchemaNamespace + "Article"
	SchemaInLanguage     = SchemaNamespace + "inLanguage"
	SchemaIsPartOf       = SchemaNamespace + "isPartOf"
	SchemaItemReviewed   = SchemaNamespace + "itemReviewed"
	SchemaName           = SchemaNamespace + "name"
	SchemaRecommendation = SchemaNamespace + "Recommendation"
	SchemaThing          = SchemaNamespace + "Thing"
	SchemaTitle          = SchemaNamespace + "title"
	SchemaURL            = SchemaNamespace + "url"
	SchemaWebPage        = SchemaNamespace + "WebPage"
)

// WikidataEntityNamespace is the prefix of resolved knowledge-base identifiers.
const WikidataEntityNamespace = "http://www.wikidata.org/entity/"

// Wikibase ontology.
const (
	WikibaseNamespace = "http://wikiba.se/ontology#"

	WikibaseItem = WikibaseNamespace + "Item"
)

// ARKGNamespace is the base of minted anti-recommendation link nodes.
const ARKGNamespace = "http://imlapps.github.io/anti-recommender/anti-recommendation/"

// Wikipedia site the records are read from.
const (
	WikipediaSite     = "https://en.wikipedia.org/"
	WikipediaBaseURL  = WikipediaSite + "wiki/"
	WikipediaLanguage = "en"
	WikipediaAPI      = "https://en.wikipedia.org/w/api.php"
)

// Prefixes maps the conventional prefix of every namespace above to its IRI.
func Prefixes() map[string]string {
	return map[string]string{
		"rdf":      RDFNamespace,
		"xsd":      XSDNamespace,
		"schema":   SchemaNamespace,
		"wd":       WikidataEntityNamespace,
		"wikibase": WikibaseNamespace,
		"arkg":     ARKGNamespace,
	}
}
