// Package media validates uploaded story media and hands it to a blob store.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	KindImage = "image"
	KindVideo = "video"

	sniffLen = 3072
)

var (
	ErrEmpty           = errors.New("empty upload")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("media exceeds size limit")
)

var allowed = map[string]string{
	"image/jpeg":      KindImage,
	"image/png":       KindImage,
	"image/gif":       KindImage,
	"image/webp":      KindImage,
	"video/mp4":       KindVideo,
	"video/quicktime": KindVideo,
	"video/webm":      KindVideo,
}

// Store persists an object and returns its public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Limits caps upload sizes per media kind.
type Limits struct {
	MaxImageBytes int64
	MaxVideoBytes int64
}

// Detected is the outcome of inspecting an upload.
type Detected struct {
	MIME      string
	Kind      string
	Extension string
}

// Inspect sniffs the content type of r and checks size against limits. The
// returned reader replays the sniffed prefix followed by the rest of r.
func Inspect(r io.Reader, size int64, limits Limits) (Detected, io.Reader, error) {
	if size == 0 {
		return Detected{}, nil, ErrEmpty
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Detected{}, nil, err
	}
	head = head[:n]
	if n == 0 {
		return Detected{}, nil, ErrEmpty
	}

	mt := mimetype.Detect(head)
	var d Detected
	for m, kind := range allowed {
		if mt.Is(m) {
			d = Detected{MIME: m, Kind: kind, Extension: mt.Extension()}
			break
		}
	}
	if d.Kind == "" {
		return Detected{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	max := limits.MaxImageBytes
	if d.Kind == KindVideo {
		max = limits.MaxVideoBytes
	}
	if max > 0 && size > max {
		return Detected{}, nil, fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, size, max)
	}
	return d, io.MultiReader(bytes.NewReader(head), r), nil
}

// ObjectKey builds a unique object name for an owner's story media.
func ObjectKey(ownerID uint, ext string) string {
	return fmt.Sprintf("stories/%d/%s%s", ownerID, uuid.NewString(), ext)
}
