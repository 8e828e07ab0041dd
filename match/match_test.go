package match

import "testing"

var testPatterns = []string{"test.ts", "test.tsx", "test.js", "test.jsx", ".spec.", ".test."}

func TestAny(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		patterns []string
		want     bool
	}{
		{"test file", "src/components/Button.test.ts", []string{"test.ts"}, true},
		{"source file", "src/components/Button.tsx", []string{"test.ts"}, false},
		{"spec file", "  lib/parser.spec.js\n", testPatterns, true},
		{"padded text", "\n\t  a.test.jsx  ", []string{"test.jsx"}, true},
		{"empty patterns", "Button.test.ts", nil, false},
		{"empty text", "", testPatterns, false},
		{"blank text", "   \n", []string{""}, false},
		{"case sensitive", "Button.TEST.ts", []string{"test.ts"}, false},
		{"second pattern", "x.spec.ts", []string{"nope", ".spec."}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Any(tc.text, tc.patterns); got != tc.want {
				t.Errorf("Any(%q, %v): got %v, want %v", tc.text, tc.patterns, got, tc.want)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	rest, ok := Prefix("  Find emails from Jane Doe ", "Find emails from")
	if !ok {
		t.Fatal("Prefix: expected match")
	}
	if rest != "Jane Doe" {
		t.Errorf("rest: got %q, want %q", rest, "Jane Doe")
	}

	if _, ok := Prefix("Reply to Jane", "Find emails from"); ok {
		t.Error("Prefix: unexpected match")
	}
	if _, ok := Prefix("anything", ""); ok {
		t.Error("Prefix: empty marker must not match")
	}
}
