package domain

import (
	"errors"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain file", in: "/docs/report.pdf", want: "/docs/report.pdf"},
		{name: "missing leading slash", in: "docs/report.pdf", want: "/docs/report.pdf"},
		{name: "nested path survives", in: "/docs/sub/deep.md", want: "/docs/sub/deep.md"},
		{name: "dot segments collapse", in: "/docs/./sub/../notes.txt", want: "/docs/notes.txt"},
		{name: "backslashes normalized", in: "docs\\notes.txt", want: "/docs/notes.txt"},
		{name: "traversal rejected", in: "../../etc/passwd", wantErr: true},
		{name: "interior traversal rejected", in: "/../secret", wantErr: true},
		{name: "empty rejected", in: "", wantErr: true},
		{name: "root allowed", in: "/", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePath(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Fatalf("NormalizePath(%q) error = %v, want ErrInvalidPath", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePath(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
