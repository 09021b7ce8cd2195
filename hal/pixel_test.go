package hal

import (
	"bytes"
	"errors"
	"testing"
)

func TestSwapBandsBoundedScratch(t *testing.T) {
	const w, h = 320, 240
	pixels := make([]byte, w*h*2)
	for i := range pixels {
		pixels[i] = byte(i * 7)
	}

	var got []byte
	var bands, nextY int
	scratch, err := swapBands(pixels, w, h, nil, func(y, rows int, buf []byte) error {
		if y != nextY {
			t.Fatalf("band %d starts at row %d, want %d", bands, y, nextY)
		}
		if len(buf) != rows*w*2 || len(buf) > swapStripBytes {
			t.Fatalf("band %d: %d bytes for %d rows", bands, len(buf), rows)
		}
		got = append(got, buf...)
		nextY += rows
		bands++
		return nil
	})
	if err != nil {
		t.Fatalf("swapBands() = %v", err)
	}
	if cap(scratch) > swapStripBytes {
		t.Fatalf("scratch cap = %d, want <= %d", cap(scratch), swapStripBytes)
	}
	if nextY != h {
		t.Fatalf("rows drawn = %d, want %d", nextY, h)
	}
	if want := (h + 5) / 6; bands != want {
		t.Fatalf("bands = %d, want %d", bands, want)
	}

	want := make([]byte, len(pixels))
	for i := 0; i < len(pixels); i += 2 {
		want[i], want[i+1] = pixels[i+1], pixels[i]
	}
	if !bytes.Equal(got, want) {
		t.Fatal("swapped pixels differ from big-endian input")
	}
}

func TestSwapBandsWideRowAndError(t *testing.T) {
	const w, h = 3000, 3
	pixels := make([]byte, w*h*2)
	calls := 0
	boom := errors.New("spi")
	_, err := swapBands(pixels, w, h, nil, func(y, rows int, buf []byte) error {
		calls++
		if rows != 1 {
			t.Fatalf("rows = %d for a row wider than the strip, want 1", rows)
		}
		if y == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) || calls != 2 {
		t.Fatalf("swapBands() = %v after %d calls, want draw error after 2", err, calls)
	}
}
