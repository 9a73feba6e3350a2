package models

import "testing"

func TestShortID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		n    int
		want string
	}{
		{"object id", "665f1c2ab8e4d3a1c0ffee42", 6, "FFEE42"},
		{"four chars", "665f1c2ab8e4d3a1c0ffee42", 4, "EE42"},
		{"shorter than n", "ab1", 6, "AB1"},
		{"empty", "", 6, ""},
		{"zero width", "abcdef", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShortID(tt.id, tt.n)
			if got != tt.want {
				t.Errorf("ShortID(%q, %d) = %q, want %q", tt.id, tt.n, got, tt.want)
			}
		})
	}
}
