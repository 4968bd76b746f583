package youtube

import (
	"errors"
	"testing"
)

func TestIsValid(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://youtu.be/abc123", true},
		{"  https://www.youtube.com/watch?v=dQw4w9WgXcQ  ", true},
		{"youtube.com/shorts/xyz-_9", true},
		{"https://m.youtube.com/watch?v=abc", true},
		{"http://youtu.be/abc?t=10", true},
		{"https://vimeo.com/123", false},
		{"https://youtube.com/channel/abc", false},
		{"https://youtu.be/", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValid(tc.in); got != tc.want {
			t.Fatalf("IsValid(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	got, err := Validate("  https://youtu.be/abc123 ")
	if err != nil || got != "https://youtu.be/abc123" {
		t.Fatalf("Validate = %q, %v", got, err)
	}
	if _, err := Validate("not a link"); !errors.Is(err, ErrInvalidLink) {
		t.Fatalf("Validate error = %v, want ErrInvalidLink", err)
	}
}

func TestVideoID(t *testing.T) {
	cases := map[string]string{
		"https://youtu.be/abc123":                    "abc123",
		"https://www.youtube.com/watch?v=dQw4w9&t=1": "dQw4w9",
		"https://youtube.com/watch?feature=x&v=q-_1": "q-_1",
		"https://youtube.com/shorts/short_1":         "short_1",
		"https://example.com":                        "",
	}
	for in, want := range cases {
		if got := VideoID(in); got != want {
			t.Fatalf("VideoID(%q) = %q, want %q", in, got, want)
		}
	}
}
