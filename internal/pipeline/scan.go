package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// formulaTag is the element name marking embedded formulas.
const formulaTag = "eq"

// envAttr is the formula attribute selecting inline vs display layout.
const envAttr = "env"

// Formula is one extracted formula element.
type Formula struct {
	Index  int    // document order, 0-based
	Source string // formula text content
	Env    string // raw env attribute value
	EnvSet bool   // whether the attribute was present at all
	Token  string // placeholder substituted for the element
}

// ScanResult is a scanned document: the serialized HTML with every formula
// element replaced by its placeholder token, plus the extraction list.
type ScanResult struct {
	HTML     string
	Formulas []Formula
}

// ScanDocument parses doc, extracts <eq> elements in document order and
// substitutes a unique placeholder token for each. Tokens share a random
// nonce chosen to be absent from the document, so they cannot collide with
// ordinary text. Formula-free documents come back with an empty extraction
// list and the parser's serialization of the input.
func ScanDocument(doc string) (*ScanResult, error) {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	serialized, err := parsed.Html()
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}

	sel := parsed.Find(formulaTag)
	if sel.Length() == 0 {
		return &ScanResult{HTML: serialized}, nil
	}

	nonce, err := newNonce(serialized)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{HTML: serialized}
	var scanErr error
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		outer, err := goquery.OuterHtml(s)
		if err != nil {
			scanErr = fmt.Errorf("serializing formula %d: %w", i, err)
			return false
		}
		env, ok := s.Attr(envAttr)
		f := Formula{
			Index:  i,
			Source: s.Text(),
			Env:    env,
			EnvSet: ok,
			Token:  placeholderToken(nonce, i),
		}
		// Replace the first occurrence only: identical formula elements
		// are consumed one at a time, in document order.
		result.HTML = strings.Replace(result.HTML, outer, f.Token, 1)
		result.Formulas = append(result.Formulas, f)
		return true
	})
	if scanErr != nil {
		return nil, scanErr
	}
	return result, nil
}

// placeholderToken builds the substitution marker for one formula.
func placeholderToken(nonce string, index int) string {
	return fmt.Sprintf("__htex_%s_%d__", nonce, index)
}

// newNonce picks a random marker component that does not occur in the
// document. Retries are all but impossible in practice.
func newNonce(doc string) (string, error) {
	for {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "", fmt.Errorf("generating token nonce: %w", err)
		}
		nonce := hex.EncodeToString(b[:])
		if !strings.Contains(doc, nonce) {
			return nonce, nil
		}
	}
}
