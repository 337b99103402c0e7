package cleaner

import (
	"strings"
	"testing"

	"github.com/use-agent/sf4ai-go/rules"
)

func TestRemoveBoilerplateDropsMatchedSelectors(t *testing.T) {
	dr := rules.DomainRules{RemoveSelectors: []string{"nav", "footer"}}
	out := removeBoilerplate(`<div><nav>menu</nav><p>body</p><footer>bye</footer></div>`, dr)

	if strings.Contains(out, "menu") || strings.Contains(out, "bye") {
		t.Errorf("expected nav/footer content removed, got: %s", out)
	}
	if !strings.Contains(out, "body") {
		t.Errorf("expected surrounding content preserved, got: %s", out)
	}
}

func TestRemoveBoilerplatePreservesSelectorTakesPrecedence(t *testing.T) {
	dr := rules.DomainRules{
		RemoveSelectors:   []string{"aside"},
		PreserveSelectors: []string{".keep"},
	}
	out := removeBoilerplate(`<div><aside class="keep">gallery</aside></div>`, dr)

	if !strings.Contains(out, "gallery") {
		t.Errorf("expected preserve-selector match to survive removal, got: %s", out)
	}
}

func TestRemoveBoilerplateClonesImagesOutOfRemovedContainers(t *testing.T) {
	dr := rules.DomainRules{RemoveSelectors: []string{"header"}}
	out := removeBoilerplate(`<div><header><img src="/logo.png">site name</header><p>article</p></div>`, dr)

	if strings.Contains(out, "site name") {
		t.Errorf("expected header text removed, got: %s", out)
	}
	if !strings.Contains(out, `src="/logo.png"`) {
		t.Errorf("expected image inside removed header to survive, got: %s", out)
	}
	if !strings.Contains(out, "article") {
		t.Errorf("expected surrounding content preserved, got: %s", out)
	}
}

func TestRemoveImagesStripsAllImgTags(t *testing.T) {
	out := removeImages(`<p><img src="/a.png">text<img src="/b.png"></p>`)
	if strings.Contains(out, "<img") {
		t.Errorf("expected all images stripped, got: %s", out)
	}
	if !strings.Contains(out, "text") {
		t.Errorf("expected surrounding text preserved, got: %s", out)
	}
}

func TestCleanPreservesImagesByDefault(t *testing.T) {
	html := `<html><body><header><img src="/logo.png">nav chrome</header><article><p>Enough real article text to clear the richness floor used by the pipeline's probe, repeated for length so readability treats this as the main content block of the page under test.</p><img src="/inline.png"></article></body></html>`

	result, err := Clean(html, "https://example.com/article", "readability", Options{})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if !strings.Contains(result.Content, "/inline.png") {
		t.Errorf("expected inline article image preserved, got: %s", result.Content)
	}
}

func TestCleanRemovesImagesWhenRequested(t *testing.T) {
	html := `<html><body><article><p>Enough real article text to clear the richness floor used by the pipeline's probe, repeated for length so readability treats this as the main content block of the page under test.</p><img src="/inline.png"></article></body></html>`

	result, err := Clean(html, "https://example.com/article", "readability", Options{RemoveImages: true})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if strings.Contains(result.Content, "<img") {
		t.Errorf("expected images stripped when RemoveImages is set, got: %s", result.Content)
	}
}
