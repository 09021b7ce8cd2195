package hal

import "image/color"

// RGB565 packs an 8-bit-per-channel colour into 16bpp.
func RGB565(r, g, b uint8) uint16 {
	rr := uint16(r>>3) & 0x1F
	gg := uint16(g>>2) & 0x3F
	bb := uint16(b>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

// RGB888 expands a 16bpp pixel to 8 bits per channel.
func RGB888(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	r = uint8((rr * 255) / 31)
	g = uint8((gg * 255) / 63)
	b = uint8((bb * 255) / 31)
	return r, g, b
}

// RGB565ToRGBA converts little-endian RGB565 pixels in src into RGBA bytes
// in dst. Conversion stops at whichever slice runs out first.
func RGB565ToRGBA(dst, src []byte) {
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, g, b := RGB888(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = g
		dst[j+2] = b
		dst[j+3] = 0xFF
	}
}

func colorRGBA(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 0xFF} }

// swapStripBytes bounds the byte-swap scratch of drivers that want
// big-endian pixels.
const swapStripBytes = 4096

// swapBands converts a w x h little-endian RGB565 block to big-endian one
// band of rows at a time. draw receives the band's first row, its row count
// and the swapped pixels; buf is reused between calls. scratch is grown to
// one band if needed and returned for reuse.
func swapBands(pixels []byte, w, h int, scratch []byte, draw func(y, rows int, buf []byte) error) ([]byte, error) {
	row := w * 2
	rows := max(swapStripBytes/row, 1)
	if cap(scratch) < rows*row {
		scratch = make([]byte, rows*row)
	}
	for y := 0; y < h; y += rows {
		n := min(rows, h-y)
		src := pixels[y*row : (y+n)*row]
		buf := scratch[:len(src)]
		for i := 0; i < len(src); i += 2 {
			buf[i] = src[i+1]
			buf[i+1] = src[i]
		}
		if err := draw(y, n, buf); err != nil {
			return scratch, err
		}
	}
	return scratch, nil
}
