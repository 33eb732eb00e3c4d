// Package pixel implements the (luma, chroma) amount/type-identifier pair
// committed to a Bitcoin output via public-key tweaking, and the tweaked-key
// math used to recompute and verify that commitment.
package pixel

// Pixel is the (luma, chroma) pair committed to a single Bitcoin output.
type Pixel struct {
	Luma   Luma
	Chroma Chroma
}

// NewPixel constructs a Pixel.
func NewPixel(luma Luma, chroma Chroma) Pixel {
	return Pixel{Luma: luma, Chroma: chroma}
}

// IsEmpty reports whether this is the EmptyPixel marker: zero luma and
// zero chroma, used for uncolored change outputs.
func (p Pixel) IsEmpty() bool {
	return p.Luma.IsZero() && p.Chroma.IsZero()
}
