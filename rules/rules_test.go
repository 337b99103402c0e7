package rules

import "testing"

func TestForFallsBackToDefault(t *testing.T) {
	s := &Store{}
	dr := s.For("unknown.example.com")
	if len(dr.RemoveSelectors) == 0 {
		t.Fatal("expected default remove selectors")
	}
}

func TestNormalizePatternApply(t *testing.T) {
	s := &Store{}
	dr := s.For("*")

	text := "a   b"
	for _, pat := range dr.Normalize {
		text = pat.Apply(text)
	}
	if text != "a b" {
		t.Fatalf("expected collapsed whitespace after the full pass, got %q", text)
	}
}

func TestNormalizeStripsEscapeCharsAndTableResidue(t *testing.T) {
	s := &Store{}
	dr := s.For("*")

	text := "real content\n\\_escaped\\_ word\n| col1 | col2 |\n| --- | --- |\ntrailing\\\n\n\n\nend"
	for _, pat := range dr.Normalize {
		text = pat.Apply(text)
	}

	for _, bad := range []string{"\\_", "|", "\\\n"} {
		if containsSubstring(text, bad) {
			t.Errorf("expected %q removed from normalized output, got: %q", bad, text)
		}
	}
	if !containsSubstring(text, "real content") || !containsSubstring(text, "end") {
		t.Errorf("expected surrounding content preserved, got: %q", text)
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
