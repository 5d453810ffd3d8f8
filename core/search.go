package core

// Passage is a ranked knowledge snippet returned by a Retriever.
type Passage struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}
