package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Sea View Villa  ", "Sea View Villa"},
		{"collapse inner spaces", "Sea    View", "Sea View"},
		{"tabs and newlines", "Sea\t\nView", "Sea View"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"keep special characters", " Café & Spa™ ", "Café & Spa™"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimAndNormalize(tt.input)
			if got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := TrimAndNormalize(got); again != got {
				t.Errorf("TrimAndNormalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Guest@Example.COM "); got != "guest@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
	if got := NormalizeEmail(""); got != "" {
		t.Errorf("NormalizeEmail(\"\") = %q", got)
	}
}

func TestNormalizeSearchTerm(t *testing.T) {
	if got := NormalizeSearchTerm("  North   Goa "); got != "North Goa" {
		t.Errorf("NormalizeSearchTerm() = %q", got)
	}
}

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase host", "https://CDN.Example.com/Villa.jpg", "https://cdn.example.com/Villa.jpg"},
		{"drop tracking params", "https://cdn.example.com/a.jpg?utm_source=mail&w=400", "https://cdn.example.com/a.jpg?w=400"},
		{"plain http allowed", "http://cdn.example.com/a.jpg", "http://cdn.example.com/a.jpg"},
		{"trim whitespace", "  https://cdn.example.com/a.jpg ", "https://cdn.example.com/a.jpg"},
		{"other scheme rejected", "ftp://cdn.example.com/a.jpg", ""},
		{"relative path rejected", "/images/a.jpg", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeImageURL(tt.input); got != tt.want {
				t.Errorf("NormalizeImageURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
