// Package htex renders the math formulas embedded in HTML documents into
// self-contained images, so documents display correctly offline without a
// client-side typesetting library.
//
// # Quick Start
//
// Create a service and render a document:
//
//	svc := htex.New()
//
//	result, err := svc.Render(ctx, htex.Input{
//	    HTML: `<p>Euler: <eq>e^{i\pi} = -1</eq></p>`,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("output.html", []byte(result.HTML), 0644)
//
// The result carries the converted document plus per-formula failures and
// warnings; failed formulas become inline error markers rather than
// aborting the document.
//
// # Pipeline
//
// A render runs four stages:
//
//  1. Scan: the document is parsed, every <eq> element is extracted in
//     document order and replaced by a unique placeholder token.
//  2. Compile: each formula is translated and typeset with the configured
//     fonts by a compiled engine, built once per font configuration and
//     cached across calls.
//  3. Encode: each compiled page is serialized to SVG or rasterized to PNG.
//  4. Merge: workers substitute each placeholder with an <img> element
//     carrying a base64 data URI (or an error marker), under a lock held
//     only for the replacement itself.
//
// Formulas render concurrently; the output document is byte-identical
// regardless of worker count or completion order, and the failure report
// is sorted by formula position.
//
// Markdown input (Input.Markdown) runs through a goldmark front-end first:
// $...$ and $$...$$ spans become <eq> elements and the result enters the
// same pipeline.
//
// # Fonts
//
// Formulas are typeset at 10pt with a body font (prose inside \text{...})
// and a math font, each selected by installed family name, font file path,
// or raw bytes. Names resolve through an on-disk index of the platform
// font directories; the generic aliases serif, sans, mono and math pick a
// reasonable installed face.
package htex
