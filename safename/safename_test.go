package safename

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Plain Title", 80, "Plain Title"},
		{`a<b>c:d"e/f\g|h?i*j`, 80, "a_b_c_d_e_f_g_h_i_j"},
		{"émojis 🎉 and symbols €", 80, "mojis and symbols"},
		{"  lots   of\t\twhitespace  ", 80, "lots of whitespace"},
		{"", 80, "untitled"},
		{"🎉🎉🎉", 80, "untitled"},
		{"dots.and-dashes_keep.ok", 80, "dots.and-dashes_keep.ok"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in, tt.max); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeNeverReserved(t *testing.T) {
	inputs := []string{
		`C:\Windows\System32`,
		"what? <really> | yes: *all* of/them",
		strings.Repeat(`a/b\c`, 50),
	}
	for _, in := range inputs {
		got := Sanitize(in, 80)
		if strings.ContainsAny(got, `<>:"/\|?*`) {
			t.Errorf("Sanitize(%q) = %q still contains reserved characters", in, got)
		}
		if got == "" {
			t.Errorf("Sanitize(%q) returned empty string", in)
		}
	}
}

func TestSanitizeTruncatesAtWordBoundary(t *testing.T) {
	in := "one two three four five six seven eight nine ten"
	got := Sanitize(in, 20)
	if len([]rune(got)) > 20 {
		t.Fatalf("length %d exceeds max 20: %q", len(got), got)
	}
	if strings.HasSuffix(got, " ") {
		t.Fatalf("trailing space in %q", got)
	}
	// The cut should land between words, not inside one.
	if !strings.HasPrefix(in, got) {
		t.Fatalf("%q is not a prefix of the input", got)
	}
	if got != "one two three four" {
		t.Fatalf("got %q, want %q", got, "one two three four")
	}
}

func TestUniqueCollisions(t *testing.T) {
	dir := t.TempDir()

	first := Unique(dir, "Same Title", 80, ".pdf")
	if filepath.Base(first) != "Same Title.pdf" {
		t.Fatalf("first path = %q", first)
	}
	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	second := Unique(dir, "Same Title", 80, ".pdf")
	if second == first {
		t.Fatal("collision not resolved")
	}
	if filepath.Base(second) != "Same Title_1.pdf" {
		t.Fatalf("second path = %q", second)
	}
	if err := os.WriteFile(second, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	third := Unique(dir, "Same Title", 80, ".pdf")
	if filepath.Base(third) != "Same Title_2.pdf" {
		t.Fatalf("third path = %q", third)
	}
}

func TestUniqueSuffixRespectsBudget(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("word ", 40)

	first := Unique(dir, long, 40, ".pdf")
	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	second := Unique(dir, long, 40, ".pdf")

	stem := strings.TrimSuffix(filepath.Base(second), ".pdf")
	if len([]rune(stem)) > 40 {
		t.Fatalf("suffixed stem %q exceeds budget", stem)
	}
}
