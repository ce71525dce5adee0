package normalize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Write a Python Script", "write a python script"},
		{"strips punctuation", "Compare quinoa and brown rice nutritionally.", "compare quinoa and brown rice nutritionally"},
		{"collapses whitespace", "hello    world\t\tagain", "hello world again"},
		{"trims", "  padded text  ", "padded text"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"Write a Python script to scrape a website.",
		"COMPARE QUINOA AND BROWN RICE!!",
		"   lots   of   space   ",
	}
	for _, in := range inputs {
		once := Text(in)
		twice := Text(once)
		if once != twice {
			t.Errorf("Text not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestText_Deterministic(t *testing.T) {
	in := "Deterministic Input, Please!"
	a := Text(in)
	b := Text(in)
	if a != b {
		t.Errorf("Text not deterministic: %q != %q", a, b)
	}
}
