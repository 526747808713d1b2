// Package taskoutput normalises research job output into a canonical result.
//
// Providers return output in several shapes: a structured object carrying
// summary or answer with a source list under one of several keys, a text
// output with content and basis citations, a JSON document encoded as a
// string, or the string form of a composite object such as
//
//	TaskRunTextOutput(basis=[...], content='...', citations=[...])
//
// Structured fields are preferred. Composite strings go through a tolerant
// scanner (ParseComposite) that never fails and returns the raw text when it
// finds no markers.
package taskoutput
