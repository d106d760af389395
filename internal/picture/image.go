package picture

import (
	"image"
	"image/color"
)

// FromImage converts a decoded image into a Picture. Images that are fully opaque are
// stored in the 3-byte BGR layout, everything else in the 4-byte ABGR layout with
// non-premultiplied channels. The result is anchored at (0, 0) whatever img.Bounds().Min is.
func FromImage(name string, img image.Image) *Picture {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	hasAlphaChannel := !isOpaque(img)
	stride := LayoutFor(hasAlphaChannel).BytesPerPixel()
	raw := make([]byte, width*height*stride)

	put := func(i int, c color.NRGBA) {
		o := i * stride
		if hasAlphaChannel {
			raw[o] = c.A
			raw[o+1] = c.B
			raw[o+2] = c.G
			raw[o+3] = c.R
		} else {
			raw[o] = c.B
			raw[o+1] = c.G
			raw[o+2] = c.R
		}
	}

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			rowStart := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < width; x++ {
				s := src.Pix[rowStart+x*4 : rowStart+x*4+4 : rowStart+x*4+4]
				put(y*width+x, color.NRGBA{R: s[0], G: s[1], B: s[2], A: s[3]})
			}
		}
	case *image.YCbCr:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				yi := src.YOffset(bounds.Min.X+x, bounds.Min.Y+y)
				ci := src.COffset(bounds.Min.X+x, bounds.Min.Y+y)
				r, g, b := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				put(y*width+x, color.NRGBA{R: r, G: g, B: b, A: 0xff})
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				put(y*width+x, c)
			}
		}
	}

	return New(name, raw, width, height, hasAlphaChannel)
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
