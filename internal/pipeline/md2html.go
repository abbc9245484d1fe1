package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/gohugoio/hugo-goldmark-extensions/passthrough"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// htmlTemplate wraps Goldmark's fragment output in a complete HTML5 document.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Document</title>
</head>
<body>
%s
</body>
</html>`

// Math span delimiters recognized in Markdown input.
var (
	inlineDelimiters = []passthrough.Delimiters{
		{Open: "$", Close: "$"},
		{Open: "\\(", Close: "\\)"},
	}

	blockDelimiters = []passthrough.Delimiters{
		{Open: "$$", Close: "$$"},
		{Open: "\\[", Close: "\\]"},
	}
)

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// GoldmarkConverter converts Markdown to HTML using goldmark (pure Go).
// Math spans pass through Markdown rendering untouched and come out as
// <eq> formula elements for the document scanner.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions,
// syntax highlighting and math passthrough.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,         // Tables, strikethrough, autolinks, task lists
			extension.Footnote,    // [^1] footnotes
			extension.Typographer, // Smart quotes and dashes
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // CSS classes for smaller HTML and external stylesheet control
				),
			),
			mathExtension{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(), // Stable anchors for intra-document links
		),
		goldmark.WithRendererOptions(
			ghtml.WithHardWraps(), // Treat newlines as <br>
			ghtml.WithXHTML(),     // Self-closing tags
		),
	)
	return &GoldmarkConverter{md: md}
}

// ToHTML converts Markdown content to a standalone HTML5 document.
// Supports context cancellation via goroutine + select pattern since
// Goldmark doesn't natively support context.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	// Fast path: check context before starting
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: fmt.Sprintf(htmlTemplate, buf.String())}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// mathExtension wires math passthrough parsing and <eq> rendering into a
// goldmark instance.
type mathExtension struct{}

var _ renderer.NodeRenderer = (*mathRenderer)(nil)

func (mathExtension) Extend(m goldmark.Markdown) {
	passthrough.New(passthrough.Config{
		InlineDelimiters: inlineDelimiters,
		BlockDelimiters:  blockDelimiters,
	}).Extend(m)

	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&mathRenderer{}, 98),
	))
}

// mathRenderer emits passthrough math spans as <eq> formula elements with
// the raw TeX source escaped inside.
type mathRenderer struct{}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(passthrough.KindPassthroughInline, r.renderInlineMath)
	reg.Register(passthrough.KindPassthroughBlock, r.renderBlockMath)
}

func (r *mathRenderer) renderInlineMath(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		node, ok := n.(*passthrough.PassthroughInline)
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		raw := string(node.Text(source))
		raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, node.Delimiters.Open), node.Delimiters.Close))
		writeFormulaElement(w, raw, "math")
	}
	return ast.WalkContinue, nil
}

func (r *mathRenderer) renderBlockMath(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		node, ok := n.(*passthrough.PassthroughBlock)
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		var buf bytes.Buffer
		l := node.Lines().Len()
		for i := 0; i < l; i++ {
			line := node.Lines().At(i)
			buf.Write(line.Value(source))
		}
		raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(buf.String(), node.Delimiters.Open), node.Delimiters.Close))
		writeFormulaElement(w, raw, "displaymath")
	}
	return ast.WalkSkipChildren, nil
}

func writeFormulaElement(w util.BufWriter, source, env string) {
	_, _ = w.WriteString(`<eq env="`)
	_, _ = w.WriteString(env)
	_, _ = w.WriteString(`">`)
	_, _ = w.WriteString(html.EscapeString(source))
	_, _ = w.WriteString(`</eq>`)
}
