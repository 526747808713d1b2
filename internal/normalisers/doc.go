// Package normalisers holds the implementations of the driven.Normaliser
// port. Each normaliser turns one provider's job output into the canonical
// {summary, sources} result.
package normalisers
