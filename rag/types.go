package rag

import "fmt"

// DocumentID identifies a document section by its title and heading.
// Two sections may share a title as long as their headings differ.
type DocumentID struct {
	Title   string `json:"title"`
	Heading string `json:"heading"`
}

func (id DocumentID) String() string {
	return fmt.Sprintf("%s / %s", id.Title, id.Heading)
}

// DocumentVector is a precomputed embedding for one document section.
type DocumentVector struct {
	ID        DocumentID
	Embedding []float64
}

// Corpus is the ordered, read-only collection of document vectors searched
// per query. Order is the load order and is used to break score ties.
type Corpus []DocumentVector

// Dimension returns the embedding length of the first document, or 0 for
// an empty corpus.
func (c Corpus) Dimension() int {
	if len(c) == 0 {
		return 0
	}
	return len(c[0].Embedding)
}

// Section is the text behind a document vector, inserted into prompts as
// context.
type Section struct {
	ID      DocumentID
	Content string
	Tokens  int
}

// RankedResult is a document id paired with its similarity to a query.
type RankedResult struct {
	ID    DocumentID `json:"id"`
	Score float64    `json:"score"`
}

// Answer is the result of a retrieval-augmented completion.
type Answer struct {
	Text    string         `json:"answer"`
	Prompt  string         `json:"-"`
	Sources []RankedResult `json:"sources"`
}
