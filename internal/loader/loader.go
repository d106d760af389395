// Package loader decodes encoded images into pictures. It registers png, jpeg, gif,
// bmp, tiff and webp with image.Decode.
package loader

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"pixel-compare/internal/picture"
	"pixel-compare/internal/storage"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

func Decode(name string, data []byte) (*picture.Picture, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", xerrors.Errorf("failed to decode %s: %w", name, err)
	}

	p := picture.FromImage(name, img)
	if err := p.Err(); err != nil {
		return nil, "", xerrors.Errorf("failed to decode %s: %w", name, err)
	}
	return p, format, nil
}

// Load fetches url through s and decodes it.
func Load(ctx context.Context, s storage.Storage, url string) (*picture.Picture, error) {
	data, err := s.Get(ctx, url)
	if err != nil {
		return nil, xerrors.Errorf("failed to load %s: %w", url, err)
	}

	p, _, err := Decode(url, data)
	if err != nil {
		return nil, err
	}
	return p, nil
}
