package extract

import (
	"strings"
	"testing"
)

func TestNormalize_Regions(t *testing.T) {
	// WHAT: Region selection prefers main, then role=main, then body.
	// WHY: Navigation and footers outside the main region churn between fetches.
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "main element",
			raw:  `<html><body><nav>menu</nav><main id="m" class="c">Hello <b>world</b></main><footer>f</footer></body></html>`,
			want: `<main class="c" id="m">Hello <b>world</b></main>`,
		},
		{
			name: "role main",
			raw:  `<html><body><div role="main">X</div><p>y</p></body></html>`,
			want: `<div role="main">X</div>`,
		},
		{
			name: "body fallback",
			raw:  `<html><body><p>Only body</p></body></html>`,
			want: `<body><p>Only body</p></body>`,
		},
		{
			name: "plain text",
			raw:  `just text`,
			want: `<body>just text</body>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_AttributeOrder(t *testing.T) {
	// WHAT: Attribute order does not change the output.
	// WHY: Re-fetches of unchanged pages may serialise attributes differently.
	a := Normalize(`<main><a href="/x" class="btn" id="go">Go</a></main>`)
	b := Normalize(`<main><a id="go" class="btn" href="/x">Go</a></main>`)
	if a != b {
		t.Fatalf("attribute order changed output:\n%s\n%s", a, b)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := `<html><head><title>t</title></head><body><main><p>a</p><ul><li data-x="1" data-a="2">b</li></ul></main></body></html>`
	first := Normalize(raw)
	for i := 0; i < 20; i++ {
		if got := Normalize(raw); got != first {
			t.Fatalf("run %d differs: %q vs %q", i, got, first)
		}
	}
}

func TestNormalize_StripsNoise(t *testing.T) {
	// WHAT: Comments, scripts, styles and layout whitespace are removed.
	// WHY: Cache-busting timestamps in comments and inline scripts must not
	// register as content changes.
	raw := "<main>\n  <!-- rendered at 12:00:01 -->\n  <script>var t = 1;</script>\n  <style>p{}</style>\n  <p>a\n\n   b</p>\n</main>"
	want := `<main><p>a b</p></main>`
	if got := Normalize(raw); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_PreservesPre(t *testing.T) {
	raw := "<main><pre>line 1\n   line 2</pre></main>"
	got := Normalize(raw)
	if !strings.Contains(got, "line 1\n   line 2") {
		t.Errorf("pre whitespace lost: %q", got)
	}
}

func TestNormalize_Fallbacks(t *testing.T) {
	// WHAT: Empty or region-less input never fails and falls back to the raw input.
	if got := Normalize(""); got != "" {
		t.Errorf("Normalize(\"\") = %q", got)
	}
	if got := Normalize("  <html></html>  "); got != "<html></html>" {
		t.Errorf("Normalize(empty doc) = %q", got)
	}
	got := Normalize("<main><p>unclosed <b>bold</main>")
	if !strings.Contains(got, "unclosed") || !strings.Contains(got, "bold") {
		t.Errorf("malformed markup lost content: %q", got)
	}
}

func TestNormalize_EmptyMainFallsThrough(t *testing.T) {
	// WHAT: An empty or script-only <main> yields to [role=main], then <body>.
	// WHY: SPA shells ship an empty <main>; falling back to the raw document
	// would pull per-request head nonces into the comparison.
	page := func(nonce string) string {
		return `<html><head><meta name="csrf" content="` + nonce + `"><script nonce="` + nonce +
			`"></script></head><body><main id="app"></main><div><p>Static body</p></div></body></html>`
	}
	a, b := Normalize(page("n-1")), Normalize(page("n-2"))
	if a != b {
		t.Fatalf("head noise changed output:\n%s\n%s", a, b)
	}
	if !strings.HasPrefix(a, "<body>") || !strings.Contains(a, "Static body") || strings.Contains(a, "n-1") {
		t.Errorf("Normalize() = %q, want body region", a)
	}

	got := Normalize(`<main><script>x()</script></main><section role="main"><p>Real</p></section>`)
	want := `<section role="main"><p>Real</p></section>`
	if got != want {
		t.Errorf("Normalize(script-only main) = %q, want %q", got, want)
	}
}

func TestText(t *testing.T) {
	got := Text("<p>a &amp; b</p>\n<p>c</p>")
	if got != "a & b c" {
		t.Errorf("Text() = %q, want %q", got, "a & b c")
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(`<main><h1>Title</h1><p>Body <a href="/x">link</a></p></main>`, "https://example.com")
	if !strings.Contains(got, "# Title") {
		t.Errorf("heading missing: %q", got)
	}
	if !strings.Contains(got, "https://example.com/x") {
		t.Errorf("relative link not resolved: %q", got)
	}
	if Markdown("  ", "") != "" {
		t.Error("blank input should yield empty markdown")
	}
}
