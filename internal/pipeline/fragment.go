package pipeline

import (
	"encoding/base64"
	"fmt"
	"html"
)

// Image describes one successfully rendered formula for embedding.
type Image struct {
	ModeClass string // resolved layout mode: "math" or "displaymath"
	MIME      string // "image/svg+xml" or "image/png"
	Data      []byte // encoded image bytes
	WidthEm   float64
	HeightEm  float64
	Alt       string // original formula source
}

// ImageFragment builds the self-contained <img> element substituted for a
// rendered formula. Dimensions are em-based so images scale with the
// surrounding text, fixed to four decimals for stable output.
func ImageFragment(img Image) string {
	return fmt.Sprintf(
		`<img class="htex %s" style="width: %.4fem; height: %.4fem; vertical-align: middle;" src="data:%s;base64,%s" alt="%s"/>`,
		img.ModeClass,
		img.WidthEm,
		img.HeightEm,
		img.MIME,
		base64.StdEncoding.EncodeToString(img.Data),
		html.EscapeString(img.Alt),
	)
}

// ErrorFragment builds the inline marker substituted for a formula that
// failed to render. The detail lands in the title attribute so it shows on
// hover; the visible text points the reader at the log.
func ErrorFragment(source, detail string) string {
	return fmt.Sprintf(
		`<span class="htex-error" title="%s">failed to render formula (see log): %s</span>`,
		html.EscapeString(detail),
		html.EscapeString(source),
	)
}
