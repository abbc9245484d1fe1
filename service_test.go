package htex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Fakes: engine and page injected through the cache build function
// ---------------------------------------------------------------------------

type fakePage struct {
	w, h   float64
	svg    []byte
	png    []byte
	svgErr error
	pngErr error
}

func (p *fakePage) Size() (float64, float64)      { return p.w, p.h }
func (p *fakePage) SVG() ([]byte, error)          { return p.svg, p.svgErr }
func (p *fakePage) PNG(float64) ([]byte, error)   { return p.png, p.pngErr }

type fakeEngine struct {
	compile func(source string, mode Mode) (Page, error)
}

func (e *fakeEngine) Compile(source string, mode Mode) (Page, error) {
	return e.compile(source, mode)
}
func (e *fakeEngine) BodyFontName() string { return "Fake Serif" }
func (e *fakeEngine) MathFontName() string { return "Fake Math" }

// okCompile renders every formula to a 20x10pt page whose SVG payload
// embeds the source, so fragments are distinguishable in the output.
func okCompile(source string, _ Mode) (Page, error) {
	return &fakePage{
		w:   20,
		h:   10,
		svg: []byte("<svg>" + source + "</svg>"),
		png: []byte("png:" + source),
	}, nil
}

// newFakeService builds a Service whose engines compile with fn.
func newFakeService(fn func(string, Mode) (Page, error), opts ...Option) *Service {
	opts = append(opts,
		WithLogger(slog.New(slog.DiscardHandler)),
		withBuildFunc(func(_ context.Context, _ Style) (Engine, error) {
			return &fakeEngine{compile: fn}, nil
		}),
	)
	return New(opts...)
}

func docWithFormulas(formulas ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>t</title></head><body>")
	for i, f := range formulas {
		fmt.Fprintf(&b, "<p>para %d <eq>%s</eq></p>", i, f)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// ---------------------------------------------------------------------------
// TestRender - Full pipeline over the fake engine
// ---------------------------------------------------------------------------

func TestRender_ReplacesEveryPlaceholder(t *testing.T) {
	t.Parallel()

	svc := newFakeService(okCompile)
	res, err := svc.Render(context.Background(), Input{
		HTML: docWithFormulas("a+b", "c^2", "a+b"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(res.HTML, "__htex_") {
		t.Error("placeholder tokens survived in the output")
	}
	if got := strings.Count(res.HTML, "<img"); got != 3 {
		t.Errorf("got %d <img> elements, want 3", got)
	}
	if res.Stats.Formulas != 3 || res.Stats.Failed != 0 {
		t.Errorf("stats = %+v", res.Stats)
	}
	// Identical formulas render as identical fragments in distinct spots.
	if got := strings.Count(res.HTML, `alt="a+b"`); got != 2 {
		t.Errorf("got %d fragments for the duplicated formula, want 2", got)
	}
	if !strings.Contains(res.HTML, `class="htex math"`) {
		t.Error("missing inline mode class")
	}
	if !strings.Contains(res.HTML, "width: 2.0000em; height: 1.0000em") {
		t.Errorf("missing em sizing in %q", res.HTML)
	}
	if !strings.Contains(res.HTML, "data:image/svg+xml;base64,") {
		t.Error("missing SVG data URI")
	}
}

func TestRender_DeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	formulas := make([]string, 12)
	for i := range formulas {
		formulas[i] = fmt.Sprintf("x_%d + y", i)
	}
	doc := docWithFormulas(formulas...)

	// Stagger completion so higher worker counts finish out of order.
	compile := func(source string, mode Mode) (Page, error) {
		time.Sleep(time.Duration(len(source)%4) * time.Millisecond)
		return okCompile(source, mode)
	}

	var outputs []string
	for _, workers := range []int{1, 2, 8} {
		svc := newFakeService(compile, WithWorkers(workers))
		res, err := svc.Render(context.Background(), Input{HTML: doc})
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		outputs = append(outputs, res.HTML)
	}

	for i := 1; i < len(outputs); i++ {
		if outputs[i] != outputs[0] {
			t.Errorf("output differs between worker counts 1 and %d", []int{1, 2, 8}[i])
		}
	}
}

func TestRender_FailureContainment(t *testing.T) {
	t.Parallel()

	boom := &CompileError{Message: "unknown command \\bogus"}
	compile := func(source string, mode Mode) (Page, error) {
		if source == "FAIL" {
			return nil, boom
		}
		return okCompile(source, mode)
	}

	svc := newFakeService(compile, WithWorkers(4))
	res, err := svc.Render(context.Background(), Input{
		HTML: docWithFormulas("ok0", "ok1", "FAIL", "ok3"),
	})
	if err != nil {
		t.Fatalf("per-formula failure must not fail the document: %v", err)
	}

	if len(res.Failures) != 1 {
		t.Fatalf("got %d failures, want 1: %+v", len(res.Failures), res.Failures)
	}
	f := res.Failures[0]
	if f.Index != 2 || f.Source != "FAIL" {
		t.Errorf("failure = %+v", f)
	}
	if !errors.Is(f.Err, ErrCompile) {
		t.Errorf("failure error %v should match ErrCompile", f.Err)
	}

	if got := strings.Count(res.HTML, "<img"); got != 3 {
		t.Errorf("got %d rendered formulas, want 3", got)
	}
	if !strings.Contains(res.HTML, `<span class="htex-error"`) {
		t.Error("missing inline error marker")
	}
	if !strings.Contains(res.HTML, "failed to render formula (see log): FAIL") {
		t.Errorf("error marker should name the formula: %q", res.HTML)
	}
	if res.Stats.Failed != 1 || res.Stats.Formulas != 4 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestRender_FailuresSortedByIndex(t *testing.T) {
	t.Parallel()

	compile := func(source string, _ Mode) (Page, error) {
		// Later formulas fail faster, so detection order is reversed.
		time.Sleep(time.Duration(10-len(source)) * time.Millisecond)
		return nil, &CompileError{Message: "no"}
	}

	svc := newFakeService(compile, WithWorkers(4))
	res, err := svc.Render(context.Background(), Input{
		HTML: docWithFormulas("aaaaaaa", "aaaaa", "aaa", "a"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Failures) != 4 {
		t.Fatalf("got %d failures, want 4", len(res.Failures))
	}
	for i, f := range res.Failures {
		if f.Index != i {
			t.Errorf("failure %d has index %d, want %d", i, f.Index, i)
		}
	}
}

func TestRender_EmptyDocumentSkipsEngine(t *testing.T) {
	t.Parallel()

	svc := newFakeService(okCompile)
	res, err := svc.Render(context.Background(), Input{
		HTML: "<html><head></head><body><p>no formulas here</p></body></html>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := svc.Cache().Builds(); got != 0 {
		t.Errorf("engine builds = %d, want 0 for a formula-free document", got)
	}
	if len(res.Failures) != 0 || res.Stats.Formulas != 0 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.HTML, "<p>no formulas here</p>") {
		t.Errorf("document content lost: %q", res.HTML)
	}
}

func TestRender_ZeroSizePNGSkipped(t *testing.T) {
	t.Parallel()

	compile := func(source string, mode Mode) (Page, error) {
		if source == "tiny" {
			return &fakePage{w: 0.001, h: 0.001, svg: []byte("<svg/>"), png: nil}, nil
		}
		return okCompile(source, mode)
	}

	svc := newFakeService(compile)
	res, err := svc.Render(context.Background(), Input{
		HTML:   docWithFormulas("ok", "tiny"),
		Format: FormatPNG,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Failures) != 0 {
		t.Errorf("zero-size page must not be reported as a failure: %+v", res.Failures)
	}
	if res.Stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Stats.Skipped)
	}
	if got := strings.Count(res.HTML, "<img"); got != 1 {
		t.Errorf("got %d <img> elements, want 1", got)
	}
	if strings.Contains(res.HTML, "__htex_") {
		t.Error("skipped formula left its token behind")
	}

	found := false
	for _, w := range res.Warnings {
		if w.Index == 1 && strings.Contains(w.Message, "zero") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing zero-size warning: %+v", res.Warnings)
	}
}

func TestRender_NestedFormulaWarns(t *testing.T) {
	t.Parallel()

	svc := newFakeService(okCompile)
	res, err := svc.Render(context.Background(), Input{
		HTML: `<html><head></head><body><eq>a + <eq>b</eq></eq></body></html>`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The outer element's substitution consumes the inner one; the inner
	// task's output has nowhere to land and is dropped with a warning.
	if got := strings.Count(res.HTML, "<img"); got != 1 {
		t.Errorf("got %d <img> elements, want 1", got)
	}
	if strings.Contains(res.HTML, "__htex_") {
		t.Error("placeholder tokens survived in the output")
	}
	if len(res.Failures) != 0 {
		t.Errorf("a dropped nested formula is not a failure: %+v", res.Failures)
	}

	found := false
	for _, w := range res.Warnings {
		if w.Index == 1 && strings.Contains(w.Message, "enclosing formula") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing dropped-formula warning: %+v", res.Warnings)
	}
}

func TestRender_ModeClassification(t *testing.T) {
	t.Parallel()

	var displaySeen atomic.Bool
	compile := func(source string, mode Mode) (Page, error) {
		if mode.Display() {
			displaySeen.Store(true)
		}
		return okCompile(source, mode)
	}

	svc := newFakeService(compile)
	doc := `<html><head></head><body>` +
		`<eq env="displaymath">d</eq>` +
		`<eq env="math">i</eq>` +
		`<eq>u</eq>` +
		`<eq env="weird">w</eq>` +
		`</body></html>`
	res, err := svc.Render(context.Background(), Input{HTML: doc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !displaySeen.Load() {
		t.Error("display mode never reached the engine")
	}
	if !strings.Contains(res.HTML, `class="htex displaymath"`) {
		t.Error("missing display mode class")
	}
	if got := strings.Count(res.HTML, `class="htex math"`); got != 3 {
		t.Errorf("got %d inline fragments, want 3", got)
	}

	// Only the unrecognized env value warns; absent and empty do not.
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %+v, want exactly 1", res.Warnings)
	}
	if res.Warnings[0].Index != 3 || !strings.Contains(res.Warnings[0].Message, "weird") {
		t.Errorf("warning = %+v", res.Warnings[0])
	}
}

func TestRender_EngineCacheReuse(t *testing.T) {
	t.Parallel()

	svc := newFakeService(okCompile)
	ctx := context.Background()
	doc := docWithFormulas("x")

	style := Style{BodyFont: SystemFont("serif"), MathFont: SystemFont("math")}
	for i := 0; i < 2; i++ {
		if _, err := svc.Render(ctx, Input{HTML: doc, Style: style}); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
	}
	if got := svc.Cache().Builds(); got != 1 {
		t.Errorf("builds = %d after identical renders, want 1", got)
	}

	changed := Style{BodyFont: SystemFont("serif"), MathFont: SystemFont("other")}
	if _, err := svc.Render(ctx, Input{HTML: doc, Style: changed}); err != nil {
		t.Fatalf("render with changed style: %v", err)
	}
	if got := svc.Cache().Builds(); got != 2 {
		t.Errorf("builds = %d after style change, want 2", got)
	}
}

func TestRender_InputValidation(t *testing.T) {
	t.Parallel()

	svc := newFakeService(okCompile)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   Input
		wantErr error
	}{
		{"empty", Input{}, ErrEmptyInput},
		{"ambiguous", Input{HTML: "<p/>", Markdown: "# x"}, ErrAmbiguousInput},
		{"bad format", Input{HTML: "<p/>", Format: "jpeg"}, ErrInvalidFormat},
		{"ppi too low", Input{HTML: "<p/>", PPI: 1}, ErrInvalidPPI},
		{"ppi too high", Input{HTML: "<p/>", PPI: 1e6}, ErrInvalidPPI},
		{
			"conflicting font source",
			Input{HTML: "<p/>", Style: Style{BodyFont: FontSource{Name: "a", Path: "b"}}},
			ErrFontSource,
		},
		{
			"missing font file",
			Input{HTML: "<p/>", Style: Style{MathFont: FontFile("/nonexistent/font.otf")}},
			ErrFontFileMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Render(ctx, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRender_MarkdownFrontend(t *testing.T) {
	t.Parallel()

	var sources []string
	compile := func(source string, mode Mode) (Page, error) {
		sources = append(sources, source)
		return okCompile(source, mode)
	}

	svc := newFakeService(compile, WithWorkers(1))
	res, err := svc.Render(context.Background(), Input{
		Markdown: "# Title\n\nInline $a+b$ and display:\n\n$$\\sum k$$\n",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Stats.Formulas != 2 {
		t.Fatalf("formulas = %d, want 2", res.Stats.Formulas)
	}
	if got := strings.Count(res.HTML, "<img"); got != 2 {
		t.Errorf("got %d <img> elements, want 2", got)
	}
	joined := strings.Join(sources, "|")
	if !strings.Contains(joined, "a+b") || !strings.Contains(joined, "\\sum k") {
		t.Errorf("compiled sources = %v", sources)
	}
	if !strings.Contains(res.HTML, "<h1") {
		t.Error("markdown structure lost")
	}
}

func TestRender_CSSInjection(t *testing.T) {
	t.Parallel()

	svc := newFakeService(okCompile)
	res, err := svc.Render(context.Background(), Input{
		HTML: docWithFormulas("x"),
		CSS:  ".htex-error { color: red; }",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.HTML, "<style>") || !strings.Contains(res.HTML, ".htex-error") {
		t.Error("stylesheet not injected")
	}
	idx := strings.Index(res.HTML, "<style>")
	head := strings.Index(res.HTML, "</head>")
	if idx == -1 || head == -1 || idx > head {
		t.Error("stylesheet should land inside <head>")
	}
}

func TestRender_PanicContainedPerTask(t *testing.T) {
	t.Parallel()

	compile := func(source string, mode Mode) (Page, error) {
		if source == "KABOOM" {
			panic("engine bug")
		}
		return okCompile(source, mode)
	}

	svc := newFakeService(compile, WithWorkers(2))
	res, err := svc.Render(context.Background(), Input{
		HTML: docWithFormulas("ok", "KABOOM", "ok2"),
	})
	if err != nil {
		t.Fatalf("a panicking task must not fail the document: %v", err)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("failures = %+v, want 1", res.Failures)
	}
	if !errors.Is(res.Failures[0].Err, ErrInternal) {
		t.Errorf("failure %v should match ErrInternal", res.Failures[0].Err)
	}
	if got := strings.Count(res.HTML, "<img"); got != 2 {
		t.Errorf("got %d rendered formulas, want 2", got)
	}
}

func TestRender_CancelledContextDrainsTasks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newFakeService(okCompile, WithWorkers(2))
	res, err := svc.Render(ctx, Input{HTML: docWithFormulas("a", "b", "c")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.HTML, "__htex_") {
		t.Error("cancelled render left tokens in the document")
	}
	if len(res.Failures) != 3 {
		t.Fatalf("failures = %d, want 3", len(res.Failures))
	}
	for _, f := range res.Failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Errorf("failure %v should wrap context.Canceled", f.Err)
		}
	}
}

func TestRender_ProgressCallback(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	var sawFinal atomic.Bool
	svc := newFakeService(okCompile, WithWorkers(3), WithProgress(func(completed, total int) {
		calls.Add(1)
		if completed == total {
			sawFinal.Store(true)
		}
	}))

	_, err := svc.Render(context.Background(), Input{HTML: docWithFormulas("a", "b", "c", "d", "e")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 5 {
		t.Errorf("progress called %d times, want 5", got)
	}
	if !sawFinal.Load() {
		t.Error("progress never reported completion")
	}
}

func TestRender_PNGFormatFragment(t *testing.T) {
	t.Parallel()

	svc := newFakeService(okCompile)
	res, err := svc.Render(context.Background(), Input{
		HTML:   docWithFormulas("x"),
		Format: FormatPNG,
		PPI:    300,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.HTML, "data:image/png;base64,") {
		t.Errorf("missing PNG data URI: %q", res.HTML)
	}
}

func TestRender_AltTextEscaped(t *testing.T) {
	t.Parallel()

	svc := newFakeService(okCompile)
	res, err := svc.Render(context.Background(), Input{
		HTML: `<html><head></head><body><eq>a &lt; b</eq></body></html>`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.HTML, `alt="a &lt; b"`) {
		t.Errorf("alt text not escaped: %q", res.HTML)
	}
}

// ---------------------------------------------------------------------------
// TestResolveWorkers / options
// ---------------------------------------------------------------------------

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	if got := ResolveWorkers(0); got < MinWorkers || got > autoWorkerCap {
		t.Errorf("auto = %d, want within [%d, %d]", got, MinWorkers, autoWorkerCap)
	}
	if got := ResolveWorkers(3); got != 3 {
		t.Errorf("ResolveWorkers(3) = %d", got)
	}
	if got := ResolveWorkers(1000); got != MaxWorkers {
		t.Errorf("ResolveWorkers(1000) = %d, want %d", got, MaxWorkers)
	}
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(){
		"negative workers":  func() { WithWorkers(-1) },
		"excessive workers": func() { WithWorkers(MaxWorkers + 1) },
		"nil logger":        func() { WithLogger(nil) },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			fn()
		})
	}
}
