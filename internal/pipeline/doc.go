// Package pipeline implements the document-processing stages.
//
// This package handles Markdown conversion, formula extraction, and HTML
// assembly stages:
//   - Markdown to HTML conversion via Goldmark, with $...$ / $$...$$ math
//     spans emitted as <eq> formula elements
//   - Formula element extraction and placeholder token substitution
//   - Replacement fragment construction (embedded images, error markers)
//   - Stylesheet injection into HTML documents
//
// Formula rendering is handled separately by the root htex package, which
// compiles extracted formulas with the configured fonts and merges the
// resulting fragments back over the placeholder tokens. This separation
// keeps the pipeline focused on document structure and content, while the
// renderer handles typesetting, measurement, and image encoding concerns.
package pipeline
