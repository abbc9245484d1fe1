package pipeline_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/htexlab/go-htex/internal/pipeline"
)

// ---------------------------------------------------------------------------
// TestImageFragment - Embedded image construction
// ---------------------------------------------------------------------------

func TestImageFragment(t *testing.T) {
	t.Parallel()

	data := []byte("<svg/>")
	frag := pipeline.ImageFragment(pipeline.Image{
		ModeClass: "math",
		MIME:      "image/svg+xml",
		Data:      data,
		WidthEm:   1.23456,
		HeightEm:  0.5,
		Alt:       "a+b",
	})

	wantPayload := base64.StdEncoding.EncodeToString(data)
	checks := []string{
		`class="htex math"`,
		`width: 1.2346em`, // four decimals, rounded
		`height: 0.5000em`,
		`vertical-align: middle`,
		`src="data:image/svg+xml;base64,` + wantPayload + `"`,
		`alt="a+b"`,
	}
	for _, want := range checks {
		if !strings.Contains(frag, want) {
			t.Errorf("fragment missing %q\nfragment: %s", want, frag)
		}
	}
	if !strings.HasPrefix(frag, "<img ") || !strings.HasSuffix(frag, "/>") {
		t.Errorf("fragment is not a self-closing img element: %s", frag)
	}
}

func TestImageFragment_EscapesAltText(t *testing.T) {
	t.Parallel()

	frag := pipeline.ImageFragment(pipeline.Image{
		ModeClass: "displaymath",
		MIME:      "image/png",
		Data:      []byte{1, 2, 3},
		WidthEm:   1,
		HeightEm:  1,
		Alt:       `x < "y" & z`,
	})

	if strings.Contains(frag, `alt="x < "`) {
		t.Error("alt text must be escaped")
	}
	if !strings.Contains(frag, "x &lt; &#34;y&#34; &amp; z") {
		t.Errorf("expected escaped alt text, got: %s", frag)
	}
	if !strings.Contains(frag, `class="htex displaymath"`) {
		t.Error("expected display mode class")
	}
}

func TestImageFragment_Deterministic(t *testing.T) {
	t.Parallel()

	img := pipeline.Image{
		ModeClass: "math",
		MIME:      "image/png",
		Data:      []byte{9, 8, 7},
		WidthEm:   2.0 / 3.0,
		HeightEm:  1.0 / 3.0,
		Alt:       "q",
	}
	if pipeline.ImageFragment(img) != pipeline.ImageFragment(img) {
		t.Error("identical inputs must produce identical fragments")
	}
}

// ---------------------------------------------------------------------------
// TestErrorFragment - Inline failure markers
// ---------------------------------------------------------------------------

func TestErrorFragment(t *testing.T) {
	t.Parallel()

	frag := pipeline.ErrorFragment(`\unknown{x}`, `unknown command \unknown`)

	if !strings.Contains(frag, `class="htex-error"`) {
		t.Error("expected error marker class")
	}
	if !strings.Contains(frag, `title="unknown command \unknown"`) {
		t.Errorf("expected detail in title attribute, got: %s", frag)
	}
	if !strings.Contains(frag, `failed to render formula (see log): \unknown{x}`) {
		t.Errorf("expected visible source text, got: %s", frag)
	}
}

func TestErrorFragment_EscapesContent(t *testing.T) {
	t.Parallel()

	frag := pipeline.ErrorFragment(`a<b>"c"`, `detail with "quotes" & <tags>`)

	if strings.Contains(frag, "<b>") {
		t.Error("source markup must be escaped")
	}
	if strings.Contains(frag, `title="detail with "`) {
		t.Error("title detail must be escaped")
	}
	if !strings.Contains(frag, "a&lt;b&gt;") {
		t.Errorf("expected escaped source, got: %s", frag)
	}
}
