package htmltext

import (
	"strings"
	"testing"
)

func TestConvertStripsTags(t *testing.T) {
	c := NewConverter()

	got := c.Convert("<p>Hello <b>Jane</b>, welcome!</p>")
	if got != "Hello Jane, welcome!" {
		t.Errorf("Convert = %q", got)
	}
}

func TestConvertBlockElementsBecomeLines(t *testing.T) {
	c := NewConverter()

	got := c.Convert("<div>First line</div><div>Second line</div>")
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", got)
	}
	if lines[0] != "First line" || lines[1] != "Second line" {
		t.Errorf("lines = %v", lines)
	}
}

func TestConvertDropsScriptAndStyle(t *testing.T) {
	c := NewConverter()

	got := c.Convert(`<style>p{color:red}</style><p>Visible</p><script>alert(1)</script>`)
	if got != "Visible" {
		t.Errorf("Convert = %q", got)
	}
}

func TestConvertListItems(t *testing.T) {
	c := NewConverter()

	got := c.Convert("<ul><li>Monday</li><li>Tuesday</li></ul>")
	if !strings.Contains(got, "Monday") || !strings.Contains(got, "Tuesday") {
		t.Fatalf("Convert = %q", got)
	}
	if !strings.Contains(got, "\n") {
		t.Errorf("list items should be on separate lines: %q", got)
	}
}

func TestConvertEmptyInput(t *testing.T) {
	c := NewConverter()
	if got := c.Convert(""); got != "" {
		t.Errorf("Convert(\"\") = %q", got)
	}
}

func TestConvertCollapsesWhitespace(t *testing.T) {
	c := NewConverter()

	got := c.Convert("<p>Too     many\t\tspaces</p>")
	if got != "Too many spaces" {
		t.Errorf("Convert = %q", got)
	}
}

func TestStripTagsFallbackDecodesEntities(t *testing.T) {
	c := NewConverter()

	got := c.stripTags("<p>Fish &amp; chips &lt;today&gt;</p>")
	if got != "Fish & chips <today>" {
		t.Errorf("stripTags = %q", got)
	}
}
