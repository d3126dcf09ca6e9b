package docproc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestConvert_Text(t *testing.T) {
	conv := NewTextConverter(zap.NewNop())
	path := writeTempFile(t, "notes.txt", "plain content here")

	doc, err := conv.Convert(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Filename != "notes.txt" || doc.Format != "text" {
		t.Errorf("unexpected doc: %+v", doc)
	}
	if doc.Text != "plain content here" {
		t.Errorf("unexpected text: %q", doc.Text)
	}
	if !doc.IsValid() {
		t.Error("expected valid document")
	}
}

func TestConvert_Markdown(t *testing.T) {
	conv := NewTextConverter(zap.NewNop())
	path := writeTempFile(t, "guide.MD", "# Title\n\nbody")

	doc, err := conv.Convert(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Format != "markdown" {
		t.Errorf("expected markdown format, got %q", doc.Format)
	}
}

func TestConvert_UnsupportedExtension(t *testing.T) {
	conv := NewTextConverter(zap.NewNop())
	path := writeTempFile(t, "image.png", "binary")

	_, err := conv.Convert(path)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestConvert_MissingFile(t *testing.T) {
	conv := NewTextConverter(zap.NewNop())

	_, err := conv.Convert(filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSupports(t *testing.T) {
	conv := NewTextConverter(zap.NewNop())

	tests := []struct {
		ext  string
		want bool
	}{
		{".txt", true},
		{".md", true},
		{".MD", true},
		{".pdf", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := conv.Supports(tc.ext); got != tc.want {
			t.Errorf("Supports(%q) = %v, want %v", tc.ext, got, tc.want)
		}
	}
}
