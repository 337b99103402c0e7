package markdown

import "testing"

func TestToMarkdownBasic(t *testing.T) {
	c := New()
	out, err := c.ToMarkdown("<p>hello <b>world</b></p>", "https://example.com")
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty markdown output")
	}
}

func TestToCitationsConvertsInlineLinks(t *testing.T) {
	in := "See [Google](https://google.com) and [GitHub](https://github.com)"
	out := ToCitations(in)

	if out == in {
		t.Fatal("expected citations conversion to change the input")
	}
	for _, want := range []string{"[Google][1]", "[GitHub][2]", "[1]: https://google.com", "[2]: https://github.com"} {
		if !contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestToCitationsReusesReferenceForDuplicateURL(t *testing.T) {
	in := "[one](https://x.com) and [two](https://x.com)"
	out := ToCitations(in)

	if !contains(out, "[one][1]") || !contains(out, "[two][1]") {
		t.Errorf("expected duplicate URL to reuse reference number, got: %s", out)
	}
}

func TestToCitationsNoLinksReturnsUnchanged(t *testing.T) {
	in := "plain text, no links here"
	if out := ToCitations(in); out != in {
		t.Errorf("expected unchanged output, got: %s", out)
	}
}

func TestToMarkdownDropsPlaceholderImages(t *testing.T) {
	c := New()
	out, err := c.ToMarkdown(`<p>text</p><img src="https://example.com/blank.gif"><img src="https://example.com/real.png">`, "https://example.com")
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if contains(out, "blank.gif") {
		t.Errorf("expected placeholder image to be dropped, got: %s", out)
	}
	if !contains(out, "real.png") {
		t.Errorf("expected real image to survive, got: %s", out)
	}
}

func TestToMarkdownDropsOversizedTable(t *testing.T) {
	var rows string
	for i := 0; i < 25; i++ {
		rows += "<tr><td>x</td></tr>"
	}
	c := New()
	out, err := c.ToMarkdown("<p>intro</p><table>"+rows+"</table><p>outro</p>", "https://example.com")
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if contains(out, "|") {
		t.Errorf("expected oversized table to be dropped and leave no pipe-bearing lines, got: %s", out)
	}
	if !contains(out, "intro") || !contains(out, "outro") {
		t.Errorf("expected surrounding content to survive, got: %s", out)
	}
}

func TestToMarkdownDropsEmptyAndHashAnchors(t *testing.T) {
	c := New()
	out, err := c.ToMarkdown(`<p><a href="/x">  </a><a href="/y">#</a>real text</p>`, "https://example.com")
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if contains(out, "](/x)") || contains(out, "](/y)") {
		t.Errorf("expected empty/hash anchors to be dropped, got: %s", out)
	}
	if !contains(out, "real text") {
		t.Errorf("expected surrounding text to survive, got: %s", out)
	}
}

func TestPostProcessCollapsesNewlinesAndFixesEscapedLinks(t *testing.T) {
	in := "line one\n\n\n\nline two\\[text\\](https://example.com)"
	out := postProcess(in)
	if contains(out, "\n\n\n") {
		t.Errorf("expected newline runs collapsed, got: %q", out)
	}
	if !contains(out, "[text](https://example.com)") {
		t.Errorf("expected escaped link syntax fixed, got: %q", out)
	}
}

func TestUnescapeChars(t *testing.T) {
	in := `some\_thing \\ a\` + "`" + `b \'c`
	out := unescapeChars(in)
	if contains(out, `\_`) {
		t.Errorf("expected escaped underscore unescaped, got: %q", out)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
