package maskserver

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// referenceImage is the still camera frame the masks are drawn over. It is
// read once at startup and decoded lazily for the overlay.
type referenceImage struct {
	data        []byte
	contentType string
	format      string
	width       int
	height      int

	once    sync.Once
	decoded image.Image
	err     error
}

func loadReference(path string) (*referenceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference image: %w", err)
	}
	return newReference(data)
}

func newReference(data []byte) (*referenceImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode reference image header: %w", err)
	}
	return &referenceImage{
		data:        data,
		contentType: http.DetectContentType(data),
		format:      format,
		width:       cfg.Width,
		height:      cfg.Height,
	}, nil
}

func (r *referenceImage) image() (image.Image, error) {
	r.once.Do(func() {
		r.decoded, _, r.err = image.Decode(bytes.NewReader(r.data))
		if r.err != nil {
			r.err = fmt.Errorf("decode reference image: %w", r.err)
		}
	})
	return r.decoded, r.err
}

func (r *referenceImage) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", r.contentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(r.data)
}
