package svg

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeStripsActiveContent(t *testing.T) {
	input := `<svg xmlns="http://www.w3.org/2000/svg" onload="alert(1)">` +
		`<script>alert(2)</script>` +
		`<foreignObject><iframe src="x"></iframe></foreignObject>` +
		`<a href='javascript:alert(3)'><rect width="10" height="10" onclick='steal()'/></a>` +
		`</svg>`

	out, err := Sanitize([]byte(input))
	if err != nil {
		t.Fatalf("Sanitize() error: %v", err)
	}
	got := string(out)
	for _, banned := range []string{"onload", "<script", "foreignObject", "javascript:", "onclick"} {
		if strings.Contains(got, banned) {
			t.Fatalf("sanitized output still contains %q: %s", banned, got)
		}
	}
	if !strings.Contains(got, `<rect width="10" height="10"`) {
		t.Fatalf("sanitized output lost drawing content: %s", got)
	}
}

func TestSanitizeRejectsNonSVG(t *testing.T) {
	if _, err := Sanitize([]byte("<html></html>")); !errors.Is(err, ErrNotSVG) {
		t.Fatalf("Sanitize() error = %v, want ErrNotSVG", err)
	}
}
