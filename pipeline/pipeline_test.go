package pipeline

import (
	"testing"

	"github.com/use-agent/sf4ai-go/config"
)

func TestRichnessBelowFloorIsThin(t *testing.T) {
	p := &Pipeline{cleaningCfg: config.CleaningConfig{MinContentLength: 200}}

	rich, textLen := p.richness("<p>too short</p>")
	if rich {
		t.Errorf("expected thin result for short content, got rich (len=%d)", textLen)
	}
}

func TestRichnessAboveFloorIsRich(t *testing.T) {
	p := &Pipeline{cleaningCfg: config.CleaningConfig{MinContentLength: 10}}

	rich, textLen := p.richness("<p>this paragraph has comfortably more than ten characters of text</p>")
	if !rich {
		t.Errorf("expected rich result, got thin (len=%d)", textLen)
	}
}
