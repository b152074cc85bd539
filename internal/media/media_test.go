package media

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

var png = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{1}, 4096)...)

func TestInspect_DetectsAndReplays(t *testing.T) {
	d, r, err := Inspect(bytes.NewReader(png), int64(len(png)), Limits{MaxImageBytes: 1 << 20})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if d.Kind != KindImage || d.MIME != "image/png" || d.Extension != ".png" {
		t.Fatalf("unexpected detection %+v", d)
	}
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, png) {
		t.Fatalf("replayed body differs: %d vs %d bytes", len(got), len(png))
	}
}

func TestInspect_Rejections(t *testing.T) {
	if _, _, err := Inspect(bytes.NewReader(nil), 0, Limits{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, _, err := Inspect(bytes.NewReader(nil), 10, Limits{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty reader with a size: expected ErrEmpty, got %v", err)
	}
	text := strings.NewReader("hello world")
	if _, _, err := Inspect(text, 11, Limits{}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	_, _, err := Inspect(bytes.NewReader(png), 2<<20, Limits{MaxImageBytes: 1 << 20, MaxVideoBytes: 8 << 20})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	a, b := ObjectKey(7, ".png"), ObjectKey(7, ".png")
	if a == b {
		t.Fatalf("keys must be unique")
	}
	if !strings.HasPrefix(a, "stories/7/") || !strings.HasSuffix(a, ".png") {
		t.Fatalf("unexpected key %q", a)
	}
}
