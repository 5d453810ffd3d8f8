// Package memory contains concrete core.Retriever implementations: knowledge
// bases the retrieval augmentor can query for passages. The Retriever
// interface and Passage type reside in the core package; select an
// implementation (like the in-memory store below) at wiring time.
package memory
