package picture_test

import (
	"errors"
	"image"
	"image/color"
	"pixel-compare/internal/picture"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPicture_PixelGrid(t *testing.T) {
	t.Run("BuildsOnFirstAccess", func(t *testing.T) {
		p := picture.New("fixture.png", []byte{0x10, 0x20, 0x30}, 1, 1, false)

		if p.Loaded() {
			t.Fatal("expected grid not to be built before first access")
		}

		grid := p.PixelGrid()
		if !p.Loaded() {
			t.Fatal("expected grid to be built after first access")
		}
		if diff := cmp.Diff(picture.PixelGrid{{0xff302010}}, grid); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if p.Err() != nil {
			t.Errorf("unexpected error: %v", p.Err())
		}
	})

	t.Run("ReturnsCachedGrid", func(t *testing.T) {
		p := picture.New("fixture.png", []byte{0xff, 0x10, 0x20, 0x30}, 1, 1, true)

		first := p.PixelGrid()
		second := p.PixelGrid()

		if &first[0][0] != &second[0][0] {
			t.Error("expected the same backing grid on repeated access")
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		raw := make([]byte, 32*32*3)
		for i := range raw {
			raw[i] = byte(i)
		}
		p := picture.New("fixture.png", raw, 32, 32, false)
		want, _ := picture.NewPixelGrid(raw, 32, 32, false)

		var wg sync.WaitGroup
		grids := make([]picture.PixelGrid, 8)
		for i := range grids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				grids[i] = p.PixelGrid()
			}(i)
		}
		wg.Wait()

		for _, got := range grids {
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		}
	})

	t.Run("TruncatedBuffer", func(t *testing.T) {
		p := picture.New("broken.png", []byte{0x10, 0x20}, 1, 1, false)

		var truncated *picture.TruncatedBufferError
		if !errors.As(p.Err(), &truncated) {
			t.Fatalf("expected *TruncatedBufferError, got %v", p.Err())
		}
		if truncated.Expected != 3 || truncated.Actual != 2 {
			t.Errorf("expected 3/2 bytes, got %d/%d", truncated.Expected, truncated.Actual)
		}
		if diff := cmp.Diff("BGR pixel buffer truncated: expected 3 bytes, got 2", truncated.Error()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(picture.PixelGrid{{0}}, p.PixelGrid()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestFromImage(t *testing.T) {
	t.Run("TranslucentNRGBA", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
		img.SetNRGBA(0, 0, color.NRGBA{R: 0x30, G: 0x20, B: 0x10, A: 0x80})
		img.SetNRGBA(1, 0, color.NRGBA{R: 0x01, G: 0x02, B: 0x03, A: 0xff})

		p := picture.FromImage("translucent.png", img)

		if !p.HasAlphaChannel() {
			t.Fatal("expected alpha channel")
		}
		if diff := cmp.Diff(picture.PixelGrid{{0x80302010, 0xff010203}}, p.PixelGrid()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("OpaqueRGBA", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 1, 2))
		img.SetRGBA(0, 0, color.RGBA{R: 0x30, G: 0x20, B: 0x10, A: 0xff})
		img.SetRGBA(0, 1, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})

		p := picture.FromImage("opaque.png", img)

		if p.HasAlphaChannel() {
			t.Fatal("expected no alpha channel")
		}
		if p.Width() != 1 || p.Height() != 2 {
			t.Fatalf("expected 1x2, got %dx%d", p.Width(), p.Height())
		}
		if diff := cmp.Diff(picture.PixelGrid{{0xff302010}, {0xffffffff}}, p.PixelGrid()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Gray", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 1, 1))
		img.SetGray(0, 0, color.Gray{Y: 0x7f})

		p := picture.FromImage("gray.png", img)

		if diff := cmp.Diff(picture.PixelGrid{{0xff7f7f7f}}, p.PixelGrid()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("YCbCr", func(t *testing.T) {
		img := image.NewYCbCr(image.Rect(0, 0, 1, 1), image.YCbCrSubsampleRatio444)
		img.Y[0] = 0x80
		img.Cb[0] = 0x60
		img.Cr[0] = 0xa0

		r, g, b := color.YCbCrToRGB(0x80, 0x60, 0xa0)
		want := picture.Pack(0xff, r, g, b)

		p := picture.FromImage("photo.jpeg", img)

		if diff := cmp.Diff(picture.PixelGrid{{want}}, p.PixelGrid()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("SubImageIsAnchoredAtOrigin", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), A: 0xff})
			}
		}

		p := picture.FromImage("crop.png", img.SubImage(image.Rect(1, 1, 3, 3)))

		want := picture.PixelGrid{
			{0xff010100, 0xff020100},
			{0xff010200, 0xff020200},
		}
		if diff := cmp.Diff(want, p.PixelGrid()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}
