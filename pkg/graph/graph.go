package graph

// Document is a unit of source content in the knowledge graph. Documents are
// created by the ingestion process and are immutable at query time. Reference
// edges to other documents are exposed through the store's Neighbors and
// Degrees operations rather than embedded here.
type Document struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	WordCount int    `json:"word_count"`
}

// Passage is a vector-searchable sub-unit of a Document, typically a section.
// Every passage belongs to exactly one document; a document may have zero or
// more passages.
type Passage struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	WordCount     int    `json:"word_count"`
	DocumentTitle string `json:"document_title"`
}

// SearchHit is a passage returned from nearest-neighbor search together with
// its cosine similarity to the query vector.
type SearchHit struct {
	Passage    Passage `json:"passage"`
	Similarity float64 `json:"similarity"`
}

// Direction selects which reference edges Neighbors traverses.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// Exemplar is a curated question/answer pair used to steer synthesis style.
// The question embedding is computed once when the exemplar set is loaded.
type Exemplar struct {
	Question  string    `json:"question"`
	Evidence  string    `json:"evidence"`
	Answer    string    `json:"answer"`
	Embedding []float32 `json:"-"`
}

// Stats summarizes the shape of a graph. AvgDegree is reference edges per
// document and decides whether authority reranking is meaningful.
type Stats struct {
	Documents int     `json:"documents"`
	Passages  int     `json:"passages"`
	Edges     int     `json:"edges"`
	AvgDegree float64 `json:"avg_degree"`
}
