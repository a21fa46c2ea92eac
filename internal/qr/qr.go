package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	MinSize = 100
	MaxSize = 1000
)

// Renderer produces QR PNGs for short URLs.
type Renderer interface {
	RenderPNG(content string, size int) ([]byte, error)
}

// PNGRenderer renders with medium error correction.
type PNGRenderer struct{}

func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{}
}

func (PNGRenderer) RenderPNG(content string, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}
	return png, nil
}

// ValidSize reports whether size is within the accepted pixel range.
func ValidSize(size int) bool {
	return size >= MinSize && size <= MaxSize
}
